package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// anthropicVersion is the Anthropic API version header value.
const anthropicVersion = "2023-06-01"

// anthropicProvider implements the Anthropic messages API.
type anthropicProvider struct{}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) BuildURL(cfg Config) string {
	base := cfg.Endpoint
	if base == "" {
		base = "https://api.anthropic.com"
	}
	return strings.TrimSuffix(base, "/") + "/v1/messages"
}

func (p *anthropicProvider) SetHeaders(req *http.Request, cfg Config) {
	req.Header.Set("x-api-key", cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *anthropicProvider) BuildRequestBody(cfg Config, system, prompt string, temperature float64, maxTokens int) ([]byte, error) {
	return json.Marshal(anthropicRequest{
		Model:       cfg.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (p *anthropicProvider) ParseResponse(body []byte) (string, string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("decoding anthropic response: %w", err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", "", fmt.Errorf("anthropic response contained no text content")
	}
	return text.String(), resp.Model, nil
}
