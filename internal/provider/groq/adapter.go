// Package groq wires Groq's OpenAI-compatible chat completions API into the
// provider registry. The wire protocol is identical to OpenAI's; only the
// endpoint differs.
package groq

import (
	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/internal/provider/openai"
)

func init() {
	provider.Register("groq", New)
}

func New(profile config.ProviderProfile) (provider.Client, error) {
	if profile.BaseURL == "" {
		profile.BaseURL = "https://api.groq.com/openai/v1"
	}
	return openai.New(profile)
}
