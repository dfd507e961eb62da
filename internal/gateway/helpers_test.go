package gateway

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/convoke-ai/convoke/internal/analytics"
	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/pkg/api"
)

var (
	stubMu       sync.Mutex
	stubClients  = map[string]provider.Client{}
	factoryCalls atomic.Int64
)

func init() {
	provider.Register("stub", func(p config.ProviderProfile) (provider.Client, error) {
		factoryCalls.Add(1)
		stubMu.Lock()
		defer stubMu.Unlock()
		c, ok := stubClients[p.ID]
		if !ok {
			return nil, api.Errorf(api.KindUnexpected, "no stub client for %q", p.ID)
		}
		return c, nil
	})
}

func installStub(id string, c provider.Client) {
	stubMu.Lock()
	defer stubMu.Unlock()
	stubClients[id] = c
}

// stubScript describes one model's behavior: fragments first, then an
// optional terminal error. startErr fails Stream before any channel exists.
// hang keeps the stream open after the fragments until the context ends,
// then closes the channel without a terminal item, the way the real
// adapters do when their ctx.Done branch wins.
type stubScript struct {
	fragments []string
	err       error
	startErr  error
	hang      bool
}

type stubClient struct {
	name    string
	scripts map[string]stubScript

	mu       sync.Mutex
	attempts []provider.StreamRequest
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Stream(ctx context.Context, req provider.StreamRequest) (<-chan provider.StreamResult, error) {
	s.mu.Lock()
	s.attempts = append(s.attempts, req)
	script := s.scripts[req.Model]
	s.mu.Unlock()

	if script.startErr != nil {
		return nil, script.startErr
	}

	out := make(chan provider.StreamResult)
	go func() {
		defer close(out)
		for _, f := range script.fragments {
			select {
			case out <- provider.StreamResult{Content: f}:
			case <-ctx.Done():
				return
			}
		}
		if script.hang {
			<-ctx.Done()
			return
		}
		if script.err != nil {
			select {
			case out <- provider.StreamResult{Err: script.err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (s *stubClient) HealthCheck(ctx context.Context, model, probe string) api.HealthResult {
	return api.HealthResult{Success: true, Message: "model responding correctly"}
}

func (s *stubClient) attemptedModels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	models := make([]string, len(s.attempts))
	for i, a := range s.attempts {
		models[i] = a.Model
	}
	return models
}

type recordingIngestor struct {
	mu      sync.Mutex
	records []*analytics.Record
}

func (r *recordingIngestor) Ingest(rec *analytics.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recordingIngestor) Start(ctx context.Context) {}
func (r *recordingIngestor) Stop()                     {}

func (r *recordingIngestor) all() []*analytics.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*analytics.Record(nil), r.records...)
}

// drain collects every result until the channel closes, split into deltas
// and the terminal error if any.
func drain(in <-chan api.StreamResult) ([]api.Delta, error) {
	var deltas []api.Delta
	var err error
	for res := range in {
		if res.Err != nil {
			err = res.Err
			continue
		}
		if res.Delta != nil {
			deltas = append(deltas, *res.Delta)
		}
	}
	return deltas, err
}
