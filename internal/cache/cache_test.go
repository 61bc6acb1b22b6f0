package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService(0, nil)
	t.Cleanup(s.Close)
	return s
}

func TestGetOrSet_CachesValue(t *testing.T) {
	s := newTestService(t)
	calls := 0

	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		value, err := s.GetOrSet(context.Background(), "key", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, "value", value)
	}

	assert.Equal(t, 1, calls, "live entries must not re-invoke the loader")
}

func TestGetOrSet_SingleFlight(t *testing.T) {
	s := newTestService(t)

	var invocations atomic.Int64
	release := make(chan struct{})
	loader := func(ctx context.Context) (interface{}, error) {
		invocations.Add(1)
		<-release
		return 42, nil
	}

	const callers = 20
	results := make([]interface{}, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := s.GetOrSet(context.Background(), "shared", time.Minute, loader)
			require.NoError(t, err)
			results[i] = value
		}(i)
	}

	// Give every caller a chance to reach the flight before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), invocations.Load(), "concurrent callers must share one loader")
	for _, value := range results {
		assert.Equal(t, 42, value)
	}
}

func TestGetOrSet_FailureNotCached(t *testing.T) {
	s := newTestService(t)
	calls := 0

	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("upstream down")
		}
		return "recovered", nil
	}

	_, err := s.GetOrSet(context.Background(), "key", time.Minute, loader)
	require.Error(t, err)

	value, err := s.GetOrSet(context.Background(), "key", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, 2, calls)
}

func TestGetOrSet_ExpiredEntryReloads(t *testing.T) {
	s := newTestService(t)
	calls := 0

	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	first, err := s.GetOrSet(context.Background(), "key", time.Millisecond, loader)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	time.Sleep(5 * time.Millisecond)

	second, err := s.GetOrSet(context.Background(), "key", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, second, "expired entries are never returned")
}

func TestGetOrSet_IndependentKeys(t *testing.T) {
	s := newTestService(t)

	a, err := s.GetOrSet(context.Background(), "a", time.Minute, func(ctx context.Context) (interface{}, error) {
		return "alpha", nil
	})
	require.NoError(t, err)
	b, err := s.GetOrSet(context.Background(), "b", time.Minute, func(ctx context.Context) (interface{}, error) {
		return "beta", nil
	})
	require.NoError(t, err)

	assert.Equal(t, "alpha", a)
	assert.Equal(t, "beta", b)
	assert.Equal(t, 2, s.Len())
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	s := newTestService(t)

	_, err := s.GetOrSet(context.Background(), "stale", time.Millisecond, func(ctx context.Context) (interface{}, error) {
		return 1, nil
	})
	require.NoError(t, err)
	_, err = s.GetOrSet(context.Background(), "fresh", time.Hour, func(ctx context.Context) (interface{}, error) {
		return 2, nil
	})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestTypedGetOrSet(t *testing.T) {
	s := newTestService(t)

	value, err := GetOrSet(context.Background(), s, "typed", time.Minute, func(ctx context.Context) ([]string, error) {
		return []string{"AAPL", "MSFT"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, value)

	_, err = GetOrSet(context.Background(), s, "typed-err", time.Minute, func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.Error(t, err)
}
