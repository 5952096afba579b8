package fetch

import "fmt"

// NetworkError represents connect, DNS, timeout, and mid-stream read
// failures. These are transient by nature and always retryable.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError represents a non-2xx response. 4xx statuses are terminal: the
// resource is permanently inaccessible and retrying wastes attempts. 5xx
// statuses are server faults that benefit from backoff.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Status, e.URL)
}

// Terminal reports whether retrying can never succeed.
func (e *HTTPError) Terminal() bool {
	return e.Status >= 400 && e.Status < 500
}

// DownloadFailedError is the terminal failure surfaced to callers once a
// fetch gives up, either because attempts ran out or because the last error
// was not retryable.
type DownloadFailedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("failed to download %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *DownloadFailedError) Unwrap() error {
	return e.Err
}
