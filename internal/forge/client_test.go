package forge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// failingToken is a test TokenSource that always returns an error.
type failingToken struct{}

func (failingToken) Token() (string, error) {
	return "", errors.New("token error")
}

// newTestClient creates a Client pointing at the given httptest server
// with instant retry sleeps for fast tests.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url, http.DefaultClient, StaticToken("test-token"), slog.Default())
	c.sleepFunc = noopSleep

	return c
}

func TestDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("x-request-id"))
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/project/v1/hubs")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"value":"ok"}`, string(body))
}

func TestDo_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"conflict", http.StatusConflict, ErrConflict},
		{"gone", http.StatusGone, ErrGone},
		{"teapot", http.StatusTeapot, ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("x-ads-request-id", "req-123")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errors":[{"detail":"something broke"}]}`))
			}))
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			_, err := client.Do(context.Background(), http.MethodGet, "/x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "req-123", apiErr.RequestID)
			assert.Equal(t, "something broke", apiErr.Message)
		})
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), http.MethodGet, "/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestDo_RetryAfterHonored(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var slept []time.Duration
	client.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	resp, err := client.Do(context.Background(), http.MethodGet, "/x")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []time.Duration{7 * time.Second}, slept)
}

func TestDo_TokenError(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", http.DefaultClient, failingToken{}, slog.Default())
	client.sleepFunc = noopSleep

	_, err := client.Do(context.Background(), http.MethodGet, "/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
}

func TestDo_ContextCanceledDuringSleep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.sleepFunc = func(_ context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := client.Do(context.Background(), http.MethodGet, "/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithToken_SharesLimiterAndReplacesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	base := NewClient(srv.URL, nil, StaticToken("unused"), nil, WithRateLimit(100, 5))
	bound := base.WithToken(StaticToken("session-token"))

	assert.Same(t, base.limiter, bound.limiter)
	assert.Equal(t, StaticToken("unused"), base.token)

	resp, err := bound.Do(context.Background(), http.MethodGet, "/x")
	require.NoError(t, err)
	resp.Body.Close()
}

func TestWithRateLimit_NonPositiveDisables(t *testing.T) {
	c := NewClient("http://example.invalid", nil, StaticToken("t"), nil, WithRateLimit(0, 10))
	assert.Nil(t, c.limiter)
}

func TestCalcBackoff_Bounds(t *testing.T) {
	c := NewClient("http://example.invalid", nil, StaticToken("t"), nil)

	for attempt := range 10 {
		d := c.calcBackoff(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, time.Duration(float64(maxBackoff)*(1+jitterFraction)))
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"jsonapi detail", `{"errors":[{"detail":"Folder not found","title":"Not Found"}]}`, "Folder not found"},
		{"jsonapi title only", `{"errors":[{"title":"Forbidden"}]}`, "Forbidden"},
		{"developer message", `{"developerMessage":"The token is invalid","errorCode":"AUTH-001"}`, "The token is invalid"},
		{"diagnostic", `{"diagnostic":"Manifest not found"}`, "Manifest not found"},
		{"plain text", "Service Unavailable\n", "Service Unavailable"},
		{"json without message", `{"code":42}`, `{"code":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}
