package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/httpclient"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/pkg/api"
)

func init() {
	provider.Register("gemini", New)
}

const healthSystemPrompt = "You are a calculator. Answer math questions with just the number, no explanation."

type Client struct {
	profile config.ProviderProfile
	http    *http.Client
}

func New(profile config.ProviderProfile) (provider.Client, error) {
	if profile.BaseURL == "" {
		profile.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
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

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// formatContents maps conversation roles onto Gemini's user/model pair.
// System turns are dropped; the system prompt rides in systemInstruction.
func formatContents(msgs []api.Message) []content {
	var out []content
	for _, m := range msgs {
		switch m.Role {
		case "system":
			continue
		case "assistant":
			out = append(out, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			out = append(out, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	return out
}

func (c *Client) url(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", strings.TrimRight(c.profile.BaseURL, "/"), model, method)
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.profile.APIKey}
}

func (c *Client) Stream(ctx context.Context, req provider.StreamRequest) (<-chan provider.StreamResult, error) {
	body := generateRequest{
		Contents:          formatContents(req.Messages),
		SystemInstruction: &content{Parts: []part{{Text: req.SystemPrompt}}},
		GenerationConfig: generationConfig{
			Temperature:     c.profile.Temperature,
			MaxOutputTokens: c.profile.MaxTokens,
		},
	}

	url := c.url(req.Model, "streamGenerateContent") + "?alt=sse"

	ch := make(chan provider.StreamResult)
	go func() {
		defer close(ch)

		err := httpclient.StreamSSE(ctx, c.http, url, c.headers(), body, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}
			data := strings.TrimPrefix(line, "data: ")

			var chunk generateResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return nil
			}
			if len(chunk.Candidates) == 0 {
				return nil
			}
			for _, p := range chunk.Candidates[0].Content.Parts {
				if p.Text == "" {
					continue
				}
				select {
				case ch <- provider.StreamResult{Content: p.Text}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
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

	body := generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: probe}}}},
		SystemInstruction: &content{Parts: []part{{Text: healthSystemPrompt}}},
		GenerationConfig:  generationConfig{Temperature: 0, MaxOutputTokens: 5},
	}

	var resp generateResponse
	if err := httpclient.PostJSON(ctx, c.http, c.url(model, "generateContent"), c.headers(), body, &resp); err != nil {
		return api.HealthResult{Success: false, Message: provider.Classify(err).Error(), Latency: time.Since(start)}
	}

	msg := "model responding correctly"
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		msg = strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	}
	return api.HealthResult{Success: true, Message: msg, Latency: time.Since(start)}
}
