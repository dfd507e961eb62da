package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/internal/provider/gemini"
	"github.com/convoke-ai/convoke/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile(baseURL string) config.ProviderProfile {
	return config.ProviderProfile{
		ID:          "gemini",
		Type:        "gemini",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Temperature: 0.3,
		MaxTokens:   8192,
	}
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body, "systemInstruction")

		// Assistant turns are mapped to the "model" role.
		contents := body["contents"].([]interface{})
		second := contents[1].(map[string]interface{})
		assert.Equal(t, "model", second["role"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":"Hi"}]}}]}` + "\n\n"))
		_, _ = w.Write([]byte(`data: {"candidates":[{"content":{"parts":[{"text":" there"}]}}]}` + "\n\n"))
	}))
	defer server.Close()

	client, err := gemini.New(testProfile(server.URL + "/v1beta"))
	require.NoError(t, err)

	ch, err := client.Stream(context.Background(), provider.StreamRequest{
		Model: "gemini-2.0-flash",
		Messages: []api.Message{
			{Role: "user", Content: "Hello!"},
			{Role: "assistant", Content: "Hi, how can I help?"},
			{Role: "user", Content: "Tell me more."},
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

func TestStream_Forbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer server.Close()

	client, err := gemini.New(testProfile(server.URL + "/v1beta"))
	require.NoError(t, err)

	ch, err := client.Stream(context.Background(), provider.StreamRequest{
		Model:    "gemini-2.0-flash",
		Messages: []api.Message{{Role: "user", Content: "Hello!"}},
	})
	require.NoError(t, err)

	res := <-ch
	require.Error(t, res.Err)
	assert.Equal(t, api.KindAuth, api.KindOf(res.Err))
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"4"}]}}]}`))
	}))
	defer server.Close()

	client, err := gemini.New(testProfile(server.URL + "/v1beta"))
	require.NoError(t, err)

	res := client.HealthCheck(context.Background(), "gemini-2.0-flash", "What is 2+2? Reply with just the number.")
	assert.True(t, res.Success)
	assert.Equal(t, "4", res.Message)
}
