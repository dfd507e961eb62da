package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/httpclient"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/pkg/api"
)

func init() {
	provider.Register("openai", New)
}

const healthSystemPrompt = "You are a calculator. Answer math questions with just the number, no explanation."

type Client struct {
	profile config.ProviderProfile
	http    *http.Client
}

func New(profile config.ProviderProfile) (provider.Client, error) {
	if profile.BaseURL == "" {
		profile.BaseURL = "https://api.openai.com/v1"
	}
	if profile.APIKey == "" {
		return nil, api.Errorf(api.KindAuth, "provider %q has no API key configured", profile.ID)
	}
	return &Client{
		profile: profile,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *Client) Name() string { return c.profile.ID }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// formatMessages puts the resolved system prompt first and drops any system
// turns from the history; the orchestrator already folded them in.
func formatMessages(req provider.StreamRequest) []chatMessage {
	out := []chatMessage{{Role: "system", Content: req.SystemPrompt}}
	for _, m := range req.Messages {
		if m.Role == "system" {
			continue
		}
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *Client) completionsURL() string {
	return strings.TrimRight(c.profile.BaseURL, "/") + "/chat/completions"
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.profile.APIKey}
}

func (c *Client) Stream(ctx context.Context, req provider.StreamRequest) (<-chan provider.StreamResult, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    formatMessages(req),
		Stream:      true,
		Temperature: c.profile.Temperature,
		MaxTokens:   c.profile.MaxTokens,
	}

	ch := make(chan provider.StreamResult)
	go func() {
		defer close(ch)

		err := httpclient.StreamSSE(ctx, c.http, c.completionsURL(), c.headers(), body, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return nil
			}

			var chunk chatChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return nil
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				return nil
			}

			select {
			case ch <- provider.StreamResult{Content: chunk.Choices[0].Delta.Content}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case ch <- provider.StreamResult{Err: provider.Classify(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

func (c *Client) HealthCheck(ctx context.Context, model, probe string) api.HealthResult {
	start := time.Now()

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: healthSystemPrompt},
			{Role: "user", Content: probe},
		},
		Temperature: 0,
		MaxTokens:   5,
	}

	var resp chatResponse
	if err := httpclient.PostJSON(ctx, c.http, c.completionsURL(), c.headers(), body, &resp); err != nil {
		return api.HealthResult{Success: false, Message: provider.Classify(err).Error(), Latency: time.Since(start)}
	}

	msg := "model responding correctly"
	if len(resp.Choices) > 0 {
		msg = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	return api.HealthResult{Success: true, Message: msg, Latency: time.Since(start)}
}
