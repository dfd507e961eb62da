package gateway

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/convoke-ai/convoke/internal/analytics"
	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/internal/store"
	"github.com/convoke-ai/convoke/pkg/api"
)

// Service drives chat completions against a provider with model fallback.
type Service interface {
	// StreamChat resolves the provider and returns the orchestrated delta
	// stream. Errors returned directly occurred before the stream started;
	// later failures arrive as the final StreamResult. A clean channel close
	// signals successful completion. Consumers must drain the channel until
	// it closes; the terminal error is delivered unconditionally.
	StreamChat(ctx context.Context, providerID string, msgs []api.Message) (<-chan api.StreamResult, error)
}

type service struct {
	logger   *zap.Logger
	registry *Registry
	ingestor analytics.Ingestor
	tracer   trace.Tracer
}

// NewService builds the fallback orchestrator. The ingestor may be nil when
// conversation persistence is disabled.
func NewService(logger *zap.Logger, registry *Registry, ingestor analytics.Ingestor) Service {
	return &service{
		logger:   logger,
		registry: registry,
		ingestor: ingestor,
		tracer:   otel.Tracer("convoke/gateway"),
	}
}

func (s *service) StreamChat(ctx context.Context, providerID string, msgs []api.Message) (<-chan api.StreamResult, error) {
	client, profile, err := s.registry.Resolve(providerID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, api.Errorf(api.KindValidation, "conversation is empty")
	}

	systemPrompt := effectiveSystemPrompt(msgs, profile)
	out := make(chan api.StreamResult)

	go func() {
		defer close(out)
		s.run(ctx, client, profile, msgs, systemPrompt, out)
	}()

	return out, nil
}

func (s *service) run(ctx context.Context, client provider.Client, profile config.ProviderProfile, msgs []api.Message, systemPrompt string, out chan<- api.StreamResult) {
	ctx, span := s.tracer.Start(ctx, "gateway.StreamChat",
		trace.WithAttributes(
			attribute.String("provider", profile.ID),
			attribute.String("model", profile.DefaultModel),
		))
	defer span.End()

	start := time.Now()
	var reply strings.Builder

	model := profile.DefaultModel
	s.logger.Debug("stream started",
		zap.String("provider", profile.ID),
		zap.String("model", model),
		zap.Int("messages", len(msgs)),
	)

	sent, err := s.attempt(ctx, client, model, msgs, systemPrompt, out, &reply)

	// Fallback is only legal while nothing has reached the caller: once
	// partial output is delivered, a second attempt would duplicate or
	// contradict it. A cancelled request never retries either.
	if err != nil && sent == 0 && profile.FallbackModel != "" && ctx.Err() == nil {
		s.logger.Warn("default model failed before first fragment, engaging fallback",
			zap.String("provider", profile.ID),
			zap.String("default_model", model),
			zap.String("fallback_model", profile.FallbackModel),
			zap.Error(err),
		)
		span.AddEvent("fallback_engaged", trace.WithAttributes(
			attribute.String("fallback_model", profile.FallbackModel),
		))

		model = profile.FallbackModel
		sent, err = s.attempt(ctx, client, model, msgs, systemPrompt, out, &reply)
	}

	duration := time.Since(start)

	if err != nil {
		classified := provider.Classify(err)
		s.logger.Error("stream failed",
			zap.String("provider", profile.ID),
			zap.String("model", model),
			zap.Int("fragments", sent),
			zap.Duration("duration", duration),
			zap.Error(classified),
		)
		span.SetStatus(codes.Error, classified.Error())
		// Unconditional send: every consumer drains until close, and a
		// select against ctx.Done here could drop the terminal error and
		// pass a failed stream off as a clean completion.
		out <- api.StreamResult{Err: classified}
		return
	}

	s.logger.Info("stream completed",
		zap.String("provider", profile.ID),
		zap.String("model", model),
		zap.Int("fragments", sent),
		zap.Duration("duration", duration),
	)
	span.SetAttributes(attribute.Int("fragments", sent))

	if s.ingestor != nil {
		s.ingestor.Ingest(&analytics.Record{
			Provider:  profile.ID,
			Model:     model,
			RequestID: store.RequestIDFrom(ctx),
			Turns:     msgs,
			Reply:     reply.String(),
		})
	}
}

// attempt runs one model attempt, forwarding fragments as they arrive.
// It reports how many fragments reached the caller; the fallback decision
// hinges on that count.
func (s *service) attempt(ctx context.Context, client provider.Client, model string, msgs []api.Message, systemPrompt string, out chan<- api.StreamResult, reply *strings.Builder) (int, error) {
	in, err := client.Stream(ctx, provider.StreamRequest{
		Model:        model,
		Messages:     msgs,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for {
		select {
		case res, ok := <-in:
			if !ok {
				// Adapters close without a terminal item when their
				// ctx.Done branch wins; a close after expiry is the
				// timeout, not a completion.
				if err := ctx.Err(); err != nil {
					return sent, err
				}
				return sent, nil
			}
			if res.Err != nil {
				return sent, res.Err
			}
			reply.WriteString(res.Content)
			select {
			case out <- api.StreamResult{Delta: &api.Delta{Content: res.Content, Model: model}}:
				sent++
			case <-ctx.Done():
				return sent, ctx.Err()
			}
		case <-ctx.Done():
			return sent, ctx.Err()
		}
	}
}
