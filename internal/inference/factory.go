package inference

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"

	"formscan/internal/config"
	"formscan/internal/port"
)

// BackendFactory creates a ModelBackend from a provider config.
type BackendFactory func(ctx context.Context, cfg *config.ProviderConfig) (port.ModelBackend, error)

// registry of backend factories, populated by init() in each provider package.
var factories = map[string]BackendFactory{}

// RegisterBackend registers a backend factory by provider name.
func RegisterBackend(name string, factory BackendFactory) {
	factories[name] = factory
}

// RegisteredBackends returns the sorted names of registered providers.
func RegisteredBackends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewGatewayFromConfig builds a Gateway with a backend for every registered
// provider that has an API key configured.
func NewGatewayFromConfig(ctx context.Context, cfg *config.InferenceConfig) (*Gateway, error) {
	providerCfgs := map[string]*config.ProviderConfig{
		"gemini": &cfg.Gemini,
		"claude": &cfg.Claude,
		"openai": &cfg.OpenAI,
	}

	var backends []port.ModelBackend
	for _, name := range RegisteredBackends() {
		pcfg, ok := providerCfgs[name]
		if !ok || pcfg.APIKey == "" {
			continue
		}
		b, err := factories[name](ctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("creating %s backend: %w", name, err)
		}
		log.Printf("inference.NewGatewayFromConfig: %s backend enabled", name)
		backends = append(backends, b)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no inference provider configured: set an API key for one of %v", RegisteredBackends())
	}

	return NewGateway(cfg.ModelCandidates, backends...), nil
}

// Close releases backends that hold client connections.
func (g *Gateway) Close() error {
	var firstErr error
	for _, b := range g.backends {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
