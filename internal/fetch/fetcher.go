// Package fetch issues streaming HTTP GETs for remote media and wraps them
// in a bounded, classified retry policy. It performs network I/O only and
// never touches disk.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelpipe/mediacache/internal/logctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Fetcher owns its HTTP client. Construct one per cache manager instead of
// sharing a process-global session.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: userAgent,
	}
}

// Stream is one in-flight response body. It is finite and single-pass: a
// failed read requires a brand-new request, never a resume.
type Stream struct {
	Body          io.ReadCloser
	ContentLength int64  // -1 when the server sent no length hint
	ContentType   string // raw Content-Type header, may be empty
}

// Stream issues a single streaming GET for url. Connection-level failures
// come back as *NetworkError, non-2xx responses as *HTTPError.
func (f *Fetcher) Stream(ctx context.Context, url string) (*Stream, error) {
	logger := logctx.LoggerFromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		logger.Debug("request failed", "url", url, "err", err)

		return nil, &NetworkError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()

		logger.Debug("non-2xx response", "url", url, "status", resp.StatusCode)

		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}

	return &Stream{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}
