package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(retries int) *Client {
	return NewClient(Options{Retries: retries, BaseBackoff: time.Millisecond, Timeout: 5 * time.Second}, nil)
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	body, err := newTestClient(2).Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGet_RetriesTransientStatuses(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("done"))
	}))
	defer server.Close()

	body, err := newTestClient(2).Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "done", string(body))
	assert.Equal(t, int64(3), calls.Load())
}

func TestGet_ExhaustedRetriesSurfaceLastStatus(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(2).Get(context.Background(), server.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Equal(t, int64(3), calls.Load(), "initial attempt plus two retries")
}

func TestGet_NonRetryableStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(2).Get(context.Background(), server.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, int64(1), calls.Load())
}

func TestIsAccessDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("plan does not include this endpoint"))
	}))
	defer server.Close()

	_, err := newTestClient(2).Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, IsAccessDenied(err))
	assert.False(t, IsAccessDenied(errors.New("generic failure")))
	assert.False(t, IsAccessDenied(nil))
}

func TestGet_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Options{Retries: 5, BaseBackoff: time.Second}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, server.URL)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRetryable(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryable(status), "status %d", status)
	}
	for _, status := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, IsRetryable(status), "status %d", status)
	}
}
