package anthropic

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
	provider.Register("anthropic", New)
}

const (
	apiVersion         = "2023-06-01"
	healthSystemPrompt = "You are a calculator. Answer math questions with just the number, no explanation."
)

type Client struct {
	profile config.ProviderProfile
	http    *http.Client
}

func New(profile config.ProviderProfile) (provider.Client, error) {
	if profile.BaseURL == "" {
		profile.BaseURL = "https://api.anthropic.com/v1"
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

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// streamEvent covers the subset of the messages event stream the gateway
// consumes: text deltas, the stop event and in-band errors.
type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// formatMessages drops system turns; Anthropic takes the system prompt as a
// dedicated request field.
func formatMessages(msgs []api.Message) []message {
	var out []message
	for _, m := range msgs {
		if m.Role == "system" {
			continue
		}
		out = append(out, message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *Client) messagesURL() string {
	return strings.TrimRight(c.profile.BaseURL, "/") + "/messages"
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.profile.APIKey,
		"anthropic-version": apiVersion,
	}
}

func (c *Client) Stream(ctx context.Context, req provider.StreamRequest) (<-chan provider.StreamResult, error) {
	body := messagesRequest{
		Model:       req.Model,
		Messages:    formatMessages(req.Messages),
		System:      req.SystemPrompt,
		MaxTokens:   c.profile.MaxTokens,
		Temperature: c.profile.Temperature,
		Stream:      true,
	}

	ch := make(chan provider.StreamResult)
	go func() {
		defer close(ch)

		err := httpclient.StreamSSE(ctx, c.http, c.messagesURL(), c.headers(), body, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")

			var event streamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return nil
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta == nil || event.Delta.Text == "" {
					return nil
				}
				select {
				case ch <- provider.StreamResult{Content: event.Delta.Text}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			case "error":
				msg := "stream error"
				if event.Error != nil {
					msg = event.Error.Message
				}
				return api.Errorf(api.KindUnavailable, "anthropic stream error: %s", msg)
			default:
				return nil
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

	body := messagesRequest{
		Model:       model,
		Messages:    []message{{Role: "user", Content: probe}},
		System:      healthSystemPrompt,
		MaxTokens:   5,
		Temperature: 0,
	}

	var resp messagesResponse
	if err := httpclient.PostJSON(ctx, c.http, c.messagesURL(), c.headers(), body, &resp); err != nil {
		return api.HealthResult{Success: false, Message: provider.Classify(err).Error(), Latency: time.Since(start)}
	}

	msg := "model responding correctly"
	for _, block := range resp.Content {
		if block.Type == "text" {
			msg = strings.TrimSpace(block.Text)
			break
		}
	}
	return api.HealthResult{Success: true, Message: msg, Latency: time.Since(start)}
}
