package httpclient

import "fmt"

// UpstreamError is a non-2xx response from a backend, with the body kept
// so adapters can classify the failure.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}
