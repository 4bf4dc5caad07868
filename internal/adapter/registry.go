package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrVendorNotRegistered is returned when no adapter is registered for a
// requested vendor tag.
var ErrVendorNotRegistered = errors.New("vendor not registered")

// ErrMissingAPIKey is returned when a vendor's required environment
// variable is unset or empty.
var ErrMissingAPIKey = errors.New("missing API key")

// apiKeyEnvVar returns the `<VENDOR>_API_KEY` environment variable name
// for a vendor tag, with the Google special case from spec.md §6.
func apiKeyEnvVar(vendor string) string {
	if vendor == "google" {
		return "GEMINI_API_KEY"
	}
	upper := make([]byte, 0, len(vendor)+8)
	for i := 0; i < len(vendor); i++ {
		c := vendor[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = append(upper, c)
	}
	return string(upper) + "_API_KEY"
}

// Registry routes a vendor tag to its constructed Adapter, built lazily on
// first use and cached for the process lifetime. Grounded on the thread
// safety pattern of the teacher's config.LLMProviderRegistry
// (sync.RWMutex-guarded map, defensive-copy reads).
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry builds an empty Registry. Adapters are created on demand by
// Get, which looks up the vendor's API key env var; this avoids failing
// process startup just because one vendor's key is absent (spec.md §7
// "NoAPIKey" is a per-model sentinel, not a fatal boot error).
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// RegisterMock installs a fixed Adapter for a vendor tag, bypassing env-key
// lookup. Used by tests.
func (r *Registry) RegisterMock(vendor string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[vendor] = a
}

// Get returns the Adapter for vendor, constructing it from the vendor's
// env-provided API key on first use.
func (r *Registry) Get(ctx context.Context, vendor string) (Adapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[vendor]
	r.mu.RUnlock()
	if ok {
		return a, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.adapters[vendor]; ok {
		return a, nil
	}

	built, err := buildAdapter(ctx, vendor)
	if err != nil {
		return nil, err
	}
	r.adapters[vendor] = built
	return built, nil
}

func buildAdapter(ctx context.Context, vendor string) (Adapter, error) {
	envVar := apiKeyEnvVar(vendor)
	key := os.Getenv(envVar)
	if key == "" {
		return nil, fmt.Errorf("%w: %s unset for vendor %s", ErrMissingAPIKey, envVar, vendor)
	}

	switch vendor {
	case "anthropic":
		return NewAnthropicAdapter(key), nil
	case "openai":
		return NewOpenAIAdapter(key), nil
	case "google":
		return NewGeminiAdapter(ctx, key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrVendorNotRegistered, vendor)
	}
}
