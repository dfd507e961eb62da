package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/internal/provider/anthropic"
	"github.com/convoke-ai/convoke/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(baseURL string) config.ProviderProfile {
	return config.ProviderProfile{
		ID:          "claude",
		Type:        "anthropic",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Temperature: 0.3,
		MaxTokens:   8192,
	}
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be helpful", body["system"])

		// No system turns in the message list.
		for _, raw := range body["messages"].([]interface{}) {
			m := raw.(map[string]interface{})
			assert.NotEqual(t, "system", m["role"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: message_start\ndata: {\"type\":\"message_start\"}\n\n"))
		_, _ = w.Write([]byte("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n"))
		_, _ = w.Write([]byte("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\" there\"}}\n\n"))
		_, _ = w.Write([]byte("event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"))
	}))
	defer server.Close()

	client, err := anthropic.New(testProfile(server.URL + "/v1"))
	require.NoError(t, err)

	ch, err := client.Stream(context.Background(), provider.StreamRequest{
		Model: "claude-3-5-sonnet-latest",
		Messages: []api.Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "Hello!"},
		},
		SystemPrompt: "be helpful",
	})
	require.NoError(t, err)

	var fragments []string
	for res := range ch {
		require.NoError(t, res.Err)
		fragments = append(fragments, res.Content)
	}
	assert.Equal(t, []string{"Hi", " there"}, fragments)
}

func TestStream_ErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"partial\"}}\n\n"))
		_, _ = w.Write([]byte("event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n"))
	}))
	defer server.Close()

	client, err := anthropic.New(testProfile(server.URL + "/v1"))
	require.NoError(t, err)

	ch, err := client.Stream(context.Background(), provider.StreamRequest{
		Model:    "claude-3-5-sonnet-latest",
		Messages: []api.Message{{Role: "user", Content: "Hello!"}},
	})
	require.NoError(t, err)

	var fragments []string
	var streamErr error
	for res := range ch {
		if res.Err != nil {
			streamErr = res.Err
			continue
		}
		fragments = append(fragments, res.Content)
	}

	assert.Equal(t, []string{"partial"}, fragments)
	require.Error(t, streamErr)
	assert.Equal(t, api.KindUnavailable, api.KindOf(streamErr))
}

func TestStream_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	client, err := anthropic.New(testProfile(server.URL + "/v1"))
	require.NoError(t, err)

	ch, err := client.Stream(context.Background(), provider.StreamRequest{
		Model:    "claude-3-5-sonnet-latest",
		Messages: []api.Message{{Role: "user", Content: "Hello!"}},
	})
	require.NoError(t, err)

	res := <-ch
	require.Error(t, res.Err)
	assert.Equal(t, api.KindRateLimited, api.KindOf(res.Err))
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"4"}]}`))
	}))
	defer server.Close()

	client, err := anthropic.New(testProfile(server.URL + "/v1"))
	require.NoError(t, err)

	res := client.HealthCheck(context.Background(), "claude-3-5-sonnet-latest", "What is 2+2? Reply with just the number.")
	assert.True(t, res.Success)
	assert.Equal(t, "4", res.Message)
}
