package gateway

import (
	"sync"

	"github.com/convoke-ai/convoke/internal/config"
	"github.com/convoke-ai/convoke/internal/provider"
	"github.com/convoke-ai/convoke/pkg/api"
)

// Registry maps provider identifiers to their configuration and lazily
// constructs exactly one client per identifier. Profiles are immutable after
// construction; the client cache is the only mutable state.
type Registry struct {
	profiles map[string]config.ProviderProfile

	mu      sync.Mutex
	entries map[string]*clientEntry
}

// clientEntry gives each identifier its own construction gate so a slow
// first build of one provider never serializes another's.
type clientEntry struct {
	once   sync.Once
	client provider.Client
	err    error
}

func NewRegistry(profiles []config.ProviderProfile) *Registry {
	r := &Registry{
		profiles: make(map[string]config.ProviderProfile, len(profiles)),
		entries:  make(map[string]*clientEntry, len(profiles)),
	}
	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		r.profiles[p.ID] = p
	}
	return r
}

// Identifiers returns the configured provider identifiers.
func (r *Registry) Identifiers() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	return ids
}

// Resolve returns the client and profile for an identifier. The same client
// instance is returned for every call; concurrent first resolves of the same
// identifier construct it exactly once.
func (r *Registry) Resolve(id string) (provider.Client, config.ProviderProfile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, config.ProviderProfile{}, api.Errorf(api.KindNotFound, "provider %q is not configured", id)
	}

	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		entry = &clientEntry{}
		r.entries[id] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		factory, err := provider.Lookup(profile.Type)
		if err != nil {
			entry.err = api.Wrap(api.KindUnexpected, err, "no adapter for provider %q", id)
			return
		}
		entry.client, entry.err = factory(profile)
	})
	if entry.err != nil {
		return nil, profile, entry.err
	}
	return entry.client, profile, nil
}
