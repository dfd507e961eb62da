package gateway

import (
	"strings"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/pkg/api"
)

// effectiveSystemPrompt resolves the system prompt for one request: the
// caller's own non-blank system turns win, joined in order; otherwise the
// provider's configured prompt applies. Computed once per request.
func effectiveSystemPrompt(msgs []api.Message, profile config.ProviderProfile) string {
	var parts []string
	for _, m := range msgs {
		if m.Role != "system" {
			continue
		}
		if strings.TrimSpace(strings.ReplaceAll(m.Content, ".", "")) == "" {
			continue
		}
		parts = append(parts, m.Content)
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return profile.SystemPrompt
}
