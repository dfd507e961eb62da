package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/pkg/api"
)

// ProbePrompt is deterministic on purpose so a healthy backend answers in a
// handful of tokens.
const ProbePrompt = "What is 2+2? Reply with just the number."

// Prober checks provider health through the same orchestrator path that
// serves production traffic, fallback logic included.
type Prober struct {
	logger  *zap.Logger
	service Service
}

func NewProber(logger *zap.Logger, service Service) *Prober {
	return &Prober{logger: logger, service: service}
}

// Check probes one provider and reduces the outcome to a HealthResult.
// It never fails hard: every orchestrator error folds into Success=false.
func (p *Prober) Check(ctx context.Context, providerID string) api.HealthResult {
	start := time.Now()

	results, err := p.service.StreamChat(ctx, providerID, []api.Message{
		{Role: "user", Content: ProbePrompt},
	})
	if err != nil {
		p.logger.Warn("health check failed to start",
			zap.String("provider", providerID),
			zap.Error(err),
		)
		return api.HealthResult{
			Success: false,
			Message: api.KindOf(err).PublicMessage(),
			Latency: time.Since(start),
		}
	}

	// Drain the whole stream; the deltas themselves are discarded.
	var streamErr error
	for res := range results {
		if res.Err != nil {
			streamErr = res.Err
		}
	}

	latency := time.Since(start)
	if streamErr != nil {
		p.logger.Warn("health check failed",
			zap.String("provider", providerID),
			zap.Duration("latency", latency),
			zap.Error(streamErr),
		)
		return api.HealthResult{
			Success: false,
			Message: api.KindOf(streamErr).PublicMessage(),
			Latency: latency,
		}
	}

	p.logger.Debug("health check passed",
		zap.String("provider", providerID),
		zap.Duration("latency", latency),
	)
	return api.HealthResult{
		Success: true,
		Message: "model responding correctly",
		Latency: latency,
	}
}
