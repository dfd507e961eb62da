package provider

import (
	"context"
	"errors"

	"github.com/convoke-ai/convoke/internal/httpclient"
	"github.com/convoke-ai/convoke/pkg/api"
)

// Classify maps a transport-level failure to a structured gateway error.
// Upstream statuses carry the classification; anything that never reached
// the backend counts as the backend being unavailable.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var kindErr *api.Error
	if errors.As(err, &kindErr) {
		return err
	}

	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		return api.FromStatus(upstream.StatusCode, err, "upstream returned status %d", upstream.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return api.Wrap(api.KindUnavailable, err, "backend stream timed out")
	}
	if errors.Is(err, context.Canceled) {
		return api.Wrap(api.KindUnexpected, err, "stream cancelled")
	}

	return api.Wrap(api.KindUnavailable, err, "backend request failed")
}
