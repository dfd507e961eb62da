package provider

import (
	"context"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/pkg/api"
)

// StreamRequest carries everything a client needs for one completion attempt.
// The system prompt is resolved by the orchestrator before it gets here.
type StreamRequest struct {
	Model        string
	Messages     []api.Message
	SystemPrompt string
}

// StreamResult is one item of a backend's normalized fragment stream.
// Content carries a plain text increment; Err, when set, is always the last
// item before the channel closes.
type StreamResult struct {
	Content string
	Err     error
}

// Client adapts one backend's native API. Implementations normalize the
// backend's chunk shape to plain text fragments before anything leaves the
// adapter; metadata beyond text is dropped there.
type Client interface {
	Name() string

	// Stream starts a completion and returns a lazily produced fragment
	// sequence. The returned error covers request construction only;
	// transport and backend failures arrive on the channel. Producers must
	// stop promptly when ctx is cancelled and release the backend stream.
	Stream(ctx context.Context, req StreamRequest) (<-chan StreamResult, error)

	// HealthCheck probes the backend with a single short exchange. It never
	// fails hard: any backend error folds into Success=false.
	HealthCheck(ctx context.Context, model, probe string) api.HealthResult
}

// Factory constructs a client from a provider profile.
type Factory func(profile config.ProviderProfile) (Client, error)
