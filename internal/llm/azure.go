package llm

import (
	"net/http"
	"strings"
)

// azureProvider implements the Azure OpenAI service. The wire format is the
// OpenAI chat-completions format; only URL shape and auth differ: requests
// are scoped to a deployment and authenticated with an api-key header.
type azureProvider struct {
	openAIProvider // shared request/response format
}

func (p *azureProvider) Name() string { return "azure" }

func (p *azureProvider) BuildURL(cfg Config) string {
	base := strings.TrimSuffix(cfg.Endpoint, "/")
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-02-01"
	}
	return base + "/openai/deployments/" + cfg.Deployment + "/chat/completions?api-version=" + apiVersion
}

func (p *azureProvider) SetHeaders(req *http.Request, cfg Config) {
	req.Header.Set("api-key", cfg.APIKey)
}
