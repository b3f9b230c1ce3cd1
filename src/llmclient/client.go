// Package llmclient implements the chat-completions gateway: HTTP
// transport, retry with exponential backoff, a circuit breaker shared by
// all sessions, latency tracking, and SSE streaming.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nudgyapp/companion/src/aisdk"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultMaxAttempts      = 2
	defaultRetryDelay       = time.Second
	defaultFirstByteTimeout = 10 * time.Second
	defaultTotalTimeout     = 60 * time.Second
)

var _ aisdk.ModelClient = (*Client)(nil)

// Config holds the configuration for the gateway client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
	MaxTokens   *int

	// MaxAttempts bounds the retry wrapper, delays double per attempt
	// starting at RetryDelay.
	MaxAttempts int
	RetryDelay  time.Duration

	BreakerThreshold int
	BreakerCooldown  time.Duration

	// FirstByteTimeout bounds waiting for response headers; TotalTimeout
	// bounds the whole call including a streamed body.
	FirstByteTimeout time.Duration
	TotalTimeout     time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger

	// Sleep is the backoff sleep, replaceable in tests.
	Sleep func(time.Duration)
}

// Client is the chat backend gateway. One instance owns the breaker and
// latency window and outlives any single conversation session.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *CircuitBreaker
	latency    *LatencyWindow
	sleep      func(time.Duration)
}

// NewClient creates a new gateway client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	if config.FirstByteTimeout <= 0 {
		config.FirstByteTimeout = defaultFirstByteTimeout
	}
	if config.TotalTimeout <= 0 {
		config.TotalTimeout = defaultTotalTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: config.FirstByteTimeout,
			},
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm_client")

	sleep := config.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		breaker:    NewCircuitBreaker(config.BreakerThreshold, config.BreakerCooldown),
		latency:    NewLatencyWindow(),
		sleep:      sleep,
	}
}

// Breaker exposes the circuit breaker for diagnostics and the fallback chain.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Latency exposes the rolling latency window for diagnostics.
func (c *Client) Latency() *LatencyWindow { return c.latency }

// CreateChatCompletion sends a chat completion request under the breaker
// and retry wrapper.
func (c *Client) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	body, err := c.marshalRequest(req, false)
	if err != nil {
		return nil, err
	}
	return c.callWithRetry(ctx, func(ctx context.Context) (*aisdk.ChatCompletionResponse, error) {
		return c.doChatRequest(ctx, body)
	})
}

// CreateChatCompletionStream performs the same call over SSE. onPartial
// receives the accumulated assistant text after each content delta. The
// returned response has the same shape as the non-streaming path.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest, onPartial aisdk.StreamHandler) (*aisdk.ChatCompletionResponse, error) {
	body, err := c.marshalRequest(req, true)
	if err != nil {
		return nil, err
	}
	return c.callWithRetry(ctx, func(ctx context.Context) (*aisdk.ChatCompletionResponse, error) {
		return c.doChatStream(ctx, body, onPartial)
	})
}

// callWithRetry runs one logical call under the breaker and the retry
// wrapper. Breaker state is only mutated here, which keeps the shared
// failure counter single-writer.
func (c *Client) callWithRetry(ctx context.Context, fn func(context.Context) (*aisdk.ChatCompletionResponse, error)) (*aisdk.ChatCompletionResponse, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.Warn("short-circuiting call", "error", err)
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := fn(ctx)
		if err == nil {
			c.breaker.OnSuccess()
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.TripsImmediately() {
			c.breaker.Trip()
			c.logger.Warn("fatal API response, circuit opened", "status_code", apiErr.StatusCode)
			return nil, err
		}

		// A cancelled call says nothing about the backend's health; a
		// superseded turn must not push the breaker toward open.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}

		c.breaker.OnFailure()
		if !isRetryable(err) || attempt == c.config.MaxAttempts {
			break
		}

		delay := c.config.RetryDelay * (1 << (attempt - 1))
		c.logger.Debug("request attempt failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		c.sleep(delay)
	}

	c.logger.Error("request failed after all attempts", "attempts", c.config.MaxAttempts, "error", lastErr)
	return nil, fmt.Errorf("chat completion failed after %d attempts: %w", c.config.MaxAttempts, lastErr)
}

// marshalRequest fills client defaults into the request and encodes it.
func (c *Client) marshalRequest(req *aisdk.ChatCompletionRequest, stream bool) ([]byte, error) {
	out := *req
	if out.Model == "" {
		out.Model = c.config.Model
	}
	if out.Temperature == nil {
		out.Temperature = c.config.Temperature
	}
	if out.MaxTokens == nil {
		out.MaxTokens = c.config.MaxTokens
	}
	out.Stream = stream

	body, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

// doChatRequest performs one non-streaming HTTP attempt.
func (c *Client) doChatRequest(ctx context.Context, body []byte) (*aisdk.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.TotalTimeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Failed network call: no completed round trip to record.
		return nil, err
	}
	defer resp.Body.Close()
	c.latency.Record(time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp)
	}

	var result aisdk.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ParseError{Operation: "chat completion", Err: err}
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	c.logger.Debug("chat completion successful",
		"latency_mean", c.latency.Mean(),
		"usage_total", result.Usage.TotalTokens)
	return &result, nil
}

// newRequest creates the chat completions HTTP request.
func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
		Code:       errResp.Error.Code,
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
}
