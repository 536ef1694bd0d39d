package llm

import (
	"fmt"
	"net/http"
)

// Provider adapts the client to one backend's wire format. Implementations
// are stateless; all credentials and endpoint settings come from the Config
// passed into each method.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// BuildURL constructs the full completion endpoint URL.
	BuildURL(cfg Config) string

	// SetHeaders adds provider-specific authentication headers.
	SetHeaders(req *http.Request, cfg Config)

	// BuildRequestBody creates the JSON request body.
	BuildRequestBody(cfg Config, system, prompt string, temperature float64, maxTokens int) ([]byte, error)

	// ParseResponse extracts the completion text from provider-specific JSON.
	ParseResponse(body []byte) (text string, model string, err error)
}

// providers maps provider names to implementations. The map is built once
// and never mutated; provider selection is a pure lookup.
var providers = map[string]Provider{
	"openai":    &openAIProvider{},
	"anthropic": &anthropicProvider{},
	"azure":     &azureProvider{},
}

// providerFor resolves a provider by name.
func providerFor(name string) (Provider, error) {
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrMisconfigured, name)
	}
	return p, nil
}
