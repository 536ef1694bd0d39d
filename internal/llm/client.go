// Package llm provides a provider-agnostic language model client with
// bounded retries, a structured-output extractor, and call observability.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// maxResponseSize caps the response body read to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// maxErrorBody caps how much of a provider error body gets wrapped into an
// error message.
const maxErrorBody = 200

// GenerateRequest holds the parameters for one generation call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  *float64 // nil uses the configured default
	MaxTokens    *int     // nil uses the configured default
}

// GenerateResponse holds the result of a generation call.
type GenerateResponse struct {
	Text      string
	Model     string
	LatencyMs int64
	Attempts  int
}

// LLMClient provides access to a language model for text generation.
type LLMClient interface {
	// Generate sends a prompt and returns the raw text response.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Client implements LLMClient over a pluggable provider backend.
type Client struct {
	cfg      Config
	provider Provider
	http     *http.Client
	observer Observer
}

// NewClient creates a Client for the configured provider. Configuration is
// validated here, before any network call, so a missing credential fails
// construction with ErrMisconfigured.
func NewClient(cfg Config, observer Observer) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := providerFor(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Client{
		cfg:      cfg,
		provider: provider,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
	}, nil
}

// Generate sends a completion request with bounded retries. Only transient
// failures (rate limits, 5xx, network errors) are retried; auth and request
// errors fail immediately. The prompt and credentials are never logged.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	temp := c.cfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTok := c.cfg.MaxTokens
	if req.MaxTokens != nil {
		maxTok = *req.MaxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	maxAttempts := 1 + c.cfg.MaxRetries
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		text, model, err := c.doRequest(ctx, temp, maxTok, req)
		if err == nil {
			latency := time.Since(start).Milliseconds()
			c.observer.OnCallComplete(CallEvent{
				Provider:  c.cfg.Provider,
				Model:     model,
				LatencyMs: latency,
				Attempts:  attempt,
				Success:   true,
			})
			return &GenerateResponse{
				Text:      text,
				Model:     model,
				LatencyMs: latency,
				Attempts:  attempt,
			}, nil
		}
		lastErr = err

		if ctx.Err() != nil || IsFatal(err) {
			break
		}
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(backoff(attempt)):
			}
		}
	}

	latency := time.Since(start).Milliseconds()
	finalErr := c.classifyFailure(ctx, lastErr, attempts)
	c.observer.OnCallComplete(CallEvent{
		Provider:  c.cfg.Provider,
		Model:     c.cfg.Model,
		LatencyMs: latency,
		Attempts:  attempts,
		Success:   false,
		ErrorCode: errorCode(finalErr),
	})
	return nil, finalErr
}

func (c *Client) classifyFailure(ctx context.Context, lastErr error, attempts int) error {
	var base error
	switch {
	case ctx.Err() != nil:
		base = fmt.Errorf("%w after %d attempt(s)", ErrTimeout, attempts)
	case isConnectionError(lastErr):
		base = fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	case IsFatal(lastErr):
		base = lastErr
	default:
		base = fmt.Errorf("%w after %d attempt(s): %v", ErrRetryExhausted, attempts, lastErr)
	}
	return &CallError{Err: base, Attempts: attempts}
}

// doRequest executes one HTTP round trip to the provider.
func (c *Client) doRequest(ctx context.Context, temperature float64, maxTokens int, req GenerateRequest) (string, string, error) {
	body, err := c.provider.BuildRequestBody(c.cfg, req.SystemPrompt, req.UserPrompt, temperature, maxTokens)
	if err != nil {
		return "", "", Fatal(fmt.Errorf("building request body: %w", err))
	}

	url := c.provider.BuildURL(c.cfg)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", Fatal(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq, c.cfg)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return "", "", Transient(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", "", Transient(fmt.Errorf("reading response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", "", classifyHTTPError(httpResp.StatusCode, respBody)
	}

	text, model, err := c.provider.ParseResponse(respBody)
	if err != nil {
		return "", "", Fatal(err)
	}
	return text, model, nil
}

// classifyHTTPError determines whether an HTTP error status is transient or
// fatal. The body is truncated before wrapping so provider error payloads
// cannot flood logs or leak request content.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > maxErrorBody {
		bodyStr = bodyStr[:maxErrorBody] + "..."
	}
	err := fmt.Errorf("provider returned status %d: %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return Transient(err)
	case statusCode >= 500:
		return Transient(err)
	default:
		// Auth failures, bad requests, and anything else 4xx are not
		// going to improve on retry.
		return Fatal(err)
	}
}

// backoff computes exponential backoff with +/-25% jitter.
func backoff(attempt int) time.Duration {
	base := 500 * time.Millisecond
	d := base << (attempt - 1)
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	jitter := time.Duration(float64(d) * 0.25 * (rand.Float64()*2 - 1))
	return d + jitter
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrMisconfigured):
		return "MISCONFIGURED"
	case errors.Is(err, ErrInvalidOutput):
		return "INVALID_OUTPUT"
	case errors.Is(err, ErrRetryExhausted):
		return "RETRY_EXHAUSTED"
	case IsFatal(err):
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
