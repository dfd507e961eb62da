package api

import "time"

// Message is one turn of a conversation as supplied by the caller.
type Message struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required,min=1,max=24000"`
}

// ChatRequest is the provider-agnostic request body for /chat/:provider.
// The caller always sends the full message history; the gateway is stateless.
type ChatRequest struct {
	Messages []Message `json:"messages" binding:"required,min=1,max=50,dive"`
}

// Delta is one incremental fragment of generated text together with the
// model that actually produced it. The model may differ from the provider's
// default when the fallback model served the request.
type Delta struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

// StreamChunk is the canonical wire representation of a single delta.
type StreamChunk struct {
	ID    string `json:"id"`
	Delta Delta  `json:"delta"`
}

// StreamResult is one item of the orchestrated stream. Exactly one of the
// fields is set. A closed channel with no Err signals clean completion.
type StreamResult struct {
	Delta *Delta
	Err   error
}

// HealthResult is the outcome of a single provider probe. It is computed
// fresh per probe and never cached.
type HealthResult struct {
	Success bool
	Message string
	Latency time.Duration
}

// HealthResponse is the JSON body returned for one provider's probe.
type HealthResponse struct {
	Provider string            `json:"provider,omitempty"`
	Status   string            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Metrics  map[string]string `json:"metrics,omitempty"`
	Error    *ErrorDetail      `json:"error,omitempty"`
}

// HealthOverview aggregates all provider probes. Status is "healthy" only
// when every provider passed.
type HealthOverview struct {
	Status    string                    `json:"status"`
	Providers map[string]HealthResponse `json:"providers"`
}

type ErrorDetail struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse is the JSON body for every failed request, streaming or not.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewErrorResponse reduces an error to its public representation. Internal
// detail stays in the logs.
func NewErrorResponse(err error, requestID string) ErrorResponse {
	kind := KindOf(err)
	return ErrorResponse{
		Error:     ErrorDetail{Kind: kind.String(), Message: kind.PublicMessage()},
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
}
