// Package llm calls OpenAI-compatible chat completion endpoints of the supported model providers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/metrics"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"
	"github.com/RainbowRain9/auto-prompt-sub002/pkg/logger"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized means the provider rejected the API key (401/403).
	ErrUnauthorized = errors.New("model provider rejected the API key")

	// ErrUnavailable means the circuit breaker for the provider endpoint is open.
	ErrUnavailable = errors.New("model provider temporarily unavailable")

	ErrEmptyResponse = errors.New("model provider returned no choices")
)

// UpstreamError is a non-2xx answer other than 401/403.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model provider returned status %d: %s", e.StatusCode, e.Body)
}

var defaultBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"gemini":   "https://generativelanguage.googleapis.com/v1beta/openai",
	"ollama":   "http://localhost:11434/v1",
}

var defaultModels = map[string]string{
	"openai":   "gpt-4o-mini",
	"deepseek": "deepseek-chat",
	"gemini":   "gemini-2.0-flash",
	"ollama":   "llama3",
}

// DefaultBaseURL returns the built-in endpoint for a known provider.
func DefaultBaseURL(provider string) (string, bool) {
	u, ok := defaultBaseURLs[strings.ToLower(provider)]
	return u, ok
}

func DefaultModel(provider string) string {
	return defaultModels[strings.ToLower(provider)]
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
}

// Completion is the first choice of a chat completion.
type Completion struct {
	Content   string
	Reasoning string
	Model     string
}

// Target identifies where and as whom a request is sent.
type Target struct {
	Provider string
	BaseURL  string
	APIKey   string
}

// Options configures a Client. FailureThreshold consecutive failures open the
// breaker of an endpoint; an open breaker rejects calls for OpenTimeout.
type Options struct {
	HTTPClient       *http.Client
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Client struct {
	httpClient *http.Client
	threshold  uint32
	timeout    time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewClient(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = utils.NewHTTPClient(120 * time.Second)
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	return &Client{
		httpClient: opts.HTTPClient,
		threshold:  opts.FailureThreshold,
		timeout:    opts.OpenTimeout,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) breaker(baseURL string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[baseURL]; ok {
		return cb
	}
	threshold := c.threshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        baseURL,
		MaxRequests: 1,
		Timeout:     c.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("Circuit breaker state changed",
				zap.String("component", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	c.breakers[baseURL] = cb
	return cb
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerState reports the breaker state for an endpoint; unknown endpoints are closed.
func (c *Client) BreakerState(baseURL string) gobreaker.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[baseURL]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// Complete sends a non-streaming chat completion request to target.
func (c *Client) Complete(ctx context.Context, target Target, req ChatRequest) (*Completion, error) {
	baseURL := strings.TrimRight(target.BaseURL, "/")
	if baseURL == "" {
		u, ok := DefaultBaseURL(target.Provider)
		if !ok {
			return nil, fmt.Errorf("no base URL configured for provider %q", target.Provider)
		}
		baseURL = u
	}
	req.Stream = false

	start := time.Now()
	result, err := c.breaker(baseURL).Execute(func() (interface{}, error) {
		return c.do(ctx, baseURL, target.APIKey, req)
	})
	metrics.UpstreamRequestDuration.WithLabelValues(target.Provider).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(target.Provider, outcome(err)).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(target.Provider, "success").Inc()
	return result.(*Completion), nil
}

func outcome(err error) string {
	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.As(err, &upstream):
		return "upstream_error"
	default:
		return "error"
	}
}

func (c *Client) do(ctx context.Context, baseURL, apiKey string, req ChatRequest) (*Completion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call model provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read model provider response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: msg}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode model provider response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return &Completion{
		Content:   parsed.Choices[0].Message.Content,
		Reasoning: parsed.Choices[0].Message.ReasoningContent,
		Model:     model,
	}, nil
}
