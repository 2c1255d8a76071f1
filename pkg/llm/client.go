// Package llm defines the provider-agnostic completion client consumed by
// pipeline nodes, plus a registry of provider adapters. Nodes receive a
// Client by injection; nothing in this module talks to a provider through
// package-level state.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Client is the completion-service contract. Complete performs a single
// blocking generation. The context is the caller's cancellation and timeout
// seam; a hung provider call ends when ctx does.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// ProviderFactory creates a Client for a given model name within a provider.
type ProviderFactory func(modelName string) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

// RegisterProvider registers a factory function for a named provider.
// Call this from init() in provider packages.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewClient constructs a Client for the given model ID.
// Model IDs use the form "provider:model-name".
func NewClient(modelID string) (Client, error) {
	provider, modelName, err := ParseModelID(modelID)
	if err != nil {
		return nil, fmt.Errorf("NewClient: %w", err)
	}
	registryMu.RLock()
	factory, ok := registry[provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no provider registered for %q (model ID %q) — did you import the provider package?", provider, modelID)
	}
	return factory(modelName)
}

// ParseModelID splits "provider:model-name" into (provider, modelName, nil).
// Both parts must be non-empty and the colon separator is required.
func ParseModelID(id string) (provider, modelName string, err error) {
	for i, c := range id {
		if c == ':' {
			p := id[:i]
			m := id[i+1:]
			if p == "" {
				return "", "", fmt.Errorf("model ID %q: empty provider name", id)
			}
			if m == "" {
				return "", "", fmt.Errorf("model ID %q: empty model name", id)
			}
			return p, m, nil
		}
	}
	return "", "", fmt.Errorf("model ID %q: missing 'provider:model-name' format", id)
}
