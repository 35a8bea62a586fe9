package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testRequest() ChatRequest {
	return ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}}
}

func TestCompleteSuccess(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"model":"m-2024","choices":[{"message":{"content":"hello","reasoning_content":"because"}}]}`)
	c := NewClient(Options{HTTPClient: srv.Client()})

	got, err := c.Complete(context.Background(), Target{Provider: "openai", BaseURL: srv.URL + "/"}, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "because", got.Reasoning)
	assert.Equal(t, "m-2024", got.Model)
}

func TestCompleteStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			var upstream *UpstreamError
			require.ErrorAs(t, err, &upstream)
			assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
			assert.Contains(t, upstream.Body, "boom")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, `boom`)
			c := NewClient(Options{HTTPClient: srv.Client()})
			_, err := c.Complete(context.Background(), Target{Provider: "openai", BaseURL: srv.URL}, testRequest())
			tt.check(t, err)
		})
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"choices":[]}`)
	c := NewClient(Options{HTTPClient: srv.Client()})

	_, err := c.Complete(context.Background(), Target{Provider: "openai", BaseURL: srv.URL}, testRequest())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv, calls := newServer(t, http.StatusInternalServerError, `down`)
	c := NewClient(Options{HTTPClient: srv.Client(), FailureThreshold: 3, OpenTimeout: time.Minute})
	target := Target{Provider: "openai", BaseURL: srv.URL}

	for i := 0; i < 3; i++ {
		_, err := c.Complete(context.Background(), target, testRequest())
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState(srv.URL))

	_, err := c.Complete(context.Background(), target, testRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestUnauthorizedDoesNotTripBreaker(t *testing.T) {
	srv, calls := newServer(t, http.StatusUnauthorized, `nope`)
	c := NewClient(Options{HTTPClient: srv.Client(), FailureThreshold: 2})
	target := Target{Provider: "openai", BaseURL: srv.URL}

	for i := 0; i < 5; i++ {
		_, err := c.Complete(context.Background(), target, testRequest())
		assert.True(t, errors.Is(err, ErrUnauthorized))
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState(srv.URL))
	assert.Equal(t, int32(5), atomic.LoadInt32(calls))
}

func TestCompleteUnknownProviderWithoutBaseURL(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.Complete(context.Background(), Target{Provider: "mystery"}, testRequest())
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	u, ok := DefaultBaseURL("OpenAI")
	assert.True(t, ok)
	assert.Equal(t, "https://api.openai.com/v1", u)

	u, ok = DefaultBaseURL("ollama")
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:11434/v1", u)

	_, ok = DefaultBaseURL("mystery")
	assert.False(t, ok)

	assert.Equal(t, "deepseek-chat", DefaultModel("deepseek"))
	assert.Empty(t, DefaultModel("mystery"))
}
