package provider

import (
	"fmt"
	"sync"
)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register installs a factory for a provider type. Adapter packages call
// this from init; registering the same type twice is a programming error.
func Register(providerType string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[providerType]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", providerType))
	}
	factories[providerType] = f
}

// Lookup returns the factory registered for a provider type.
func Lookup(providerType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for type: %s", providerType)
	}
	return f, nil
}
