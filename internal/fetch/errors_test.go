package fetch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &NetworkError{URL: "https://example.com/a.jpg", Err: cause}

	assert.Contains(t, err.Error(), "https://example.com/a.jpg")
	assert.Equal(t, cause, errors.Unwrap(err))

	wrapped := fmt.Errorf("attempt 1: %w", err)
	assert.True(t, errors.Is(wrapped, cause))
}

func TestHTTPErrorTerminal(t *testing.T) {
	tests := []struct {
		status   int
		terminal bool
	}{
		{403, true},
		{404, true},
		{410, true},
		{500, false},
		{502, false},
		{503, false},
	}

	for _, tt := range tests {
		err := &HTTPError{URL: "https://example.com", Status: tt.status}
		assert.Equal(t, tt.terminal, err.Terminal(), "status %d", tt.status)
	}
}

func TestDownloadFailedErrorChain(t *testing.T) {
	inner := &HTTPError{URL: "https://example.com/v.mp4", Status: 404}
	err := &DownloadFailedError{URL: "https://example.com/v.mp4", Attempts: 1, Err: inner}

	wrapped := fmt.Errorf("item 3: %w", err)

	var dfe *DownloadFailedError
	require.ErrorAs(t, wrapped, &dfe)
	assert.Equal(t, 1, dfe.Attempts)

	var httpErr *HTTPError
	require.ErrorAs(t, wrapped, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
}
