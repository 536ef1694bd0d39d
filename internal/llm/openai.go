package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// openAIProvider implements the OpenAI chat-completions API. It also serves
// any OpenAI-compatible endpoint (OpenRouter, vLLM, local servers) via a
// custom Endpoint in the config.
type openAIProvider struct{}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) BuildURL(cfg Config) string {
	base := cfg.Endpoint
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func (p *openAIProvider) SetHeaders(req *http.Request, cfg Config) {
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
}

// chatRequest is the OpenAI chat-completions request format, shared with the
// azure provider.
type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *openAIProvider) BuildRequestBody(cfg Config, system, prompt string, temperature float64, maxTokens int) ([]byte, error) {
	return json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    chatMessages(system, prompt),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
}

func chatMessages(system, prompt string) []chatMessage {
	var msgs []chatMessage
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt})
}

// chatResponse is the OpenAI chat-completions response format.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *openAIProvider) ParseResponse(body []byte) (string, string, error) {
	return parseChatResponse(body)
}

func parseChatResponse(body []byte) (string, string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("chat response contained no choices")
	}
	return resp.Choices[0].Message.Content, resp.Model, nil
}
