package server

import (
	v1 "github.com/convoke-ai/convoke/internal/server/v1"
)

func (s *Server) setupRoutes() {
	chatHandler := v1.NewChatHandler(s.logger, s.service, s.config.Server.RequestTimeout)
	healthHandler := v1.NewHealthHandler(s.prober, s.providers)

	s.router.POST("/chat/:provider", chatHandler.StreamChat)
	s.router.GET("/health", healthHandler.Overview)
	s.router.GET("/health/:provider", healthHandler.Provider)

	if s.repo != nil {
		analyticsHandler := v1.NewAnalyticsHandler(s.repo)
		s.router.GET("/conversations/:provider", analyticsHandler.Recent)
		s.router.GET("/conversations/:provider/:id", analyticsHandler.Messages)
	}
}
