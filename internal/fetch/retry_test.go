package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDoSucceedsFirstTry(t *testing.T) {
	var calls int

	p := Policy{MaxAttempts: 3, Base: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicyDoRetriesTransientFailures(t *testing.T) {
	var calls int

	p := Policy{MaxAttempts: 3, Base: 10 * time.Millisecond}

	start := time.Now()
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &HTTPError{URL: "https://example.com", Status: 500}
		}
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// waits of base then 2*base must have happened
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
}

func TestPolicyDoStopsOnTerminalError(t *testing.T) {
	var calls int

	p := Policy{MaxAttempts: 3, Base: 10 * time.Millisecond}

	start := time.Now()
	err := p.Do(context.Background(), func() error {
		calls++
		return &HTTPError{URL: "https://example.com/gone.jpg", Status: 404}
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, elapsed, 10*time.Millisecond)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
}

func TestPolicyDoExhaustsAttempts(t *testing.T) {
	var calls int

	p := Policy{MaxAttempts: 3, Base: time.Millisecond}
	err := p.Do(context.Background(), func() error {
		calls++
		return &NetworkError{URL: "https://example.com", Err: errors.New("timeout")}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestPolicyDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{MaxAttempts: 5, Base: time.Second}
	errCh := make(chan error, 1)

	go func() {
		errCh <- p.Do(ctx, func() error {
			return &NetworkError{URL: "https://example.com", Err: errors.New("down")}
		})
	}()

	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after context cancellation")
	}
}
