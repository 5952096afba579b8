// Package cache composes the fetcher, validator, atomic writer, and sidecar
// store into a TTL-bounded, content-addressed media cache.
package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/reelpipe/mediacache/internal/atomicfile"
	"github.com/reelpipe/mediacache/internal/fetch"
	"github.com/reelpipe/mediacache/internal/logctx"
	"github.com/reelpipe/mediacache/internal/media"
	"github.com/reelpipe/mediacache/internal/metadata"
	"github.com/reelpipe/mediacache/internal/progress"
	"github.com/reelpipe/mediacache/internal/storage"
	"github.com/reelpipe/mediacache/internal/telemetry"
)

const (
	dirPerm = 0755

	// progressLogInterval spaces out download progress records.
	progressLogInterval = 10 * 1024 * 1024 // 10MB
)

// Request is a normalized media reference handed in by an upstream stage.
type Request struct {
	URL          string
	DeclaredKind media.Kind    // optional; KindUnknown means "don't care"
	TTL          time.Duration // optional per-request TTL; 0 uses the manager default
}

// Manager owns one cache directory, its HTTP client, and its configuration.
// Callers may run many Fetch calls concurrently; the only shared-state
// mutation is the atomic rename, so no cross-call lock is held.
type Manager struct {
	dir     string
	ttl     time.Duration
	fetcher *fetch.Fetcher
	policy  fetch.Policy
	meta    *metadata.Store
	tel     *telemetry.Telemetry
	audit   storage.FetchWriteRepository
}

// Option configures optional manager collaborators.
type Option func(*Manager)

// WithTelemetry attaches cache metrics.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(m *Manager) { m.tel = t }
}

// WithAudit attaches a fetch-history recorder.
func WithAudit(repo storage.FetchWriteRepository) Option {
	return func(m *Manager) { m.audit = repo }
}

// NewManager creates the cache directory if needed and returns a manager
// with the given default TTL.
func NewManager(dir string, ttl time.Duration, fetcher *fetch.Fetcher, policy fetch.Policy, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	m := &Manager{
		dir:     dir,
		ttl:     ttl,
		fetcher: fetcher,
		policy:  policy,
		meta:    metadata.NewStore(dir),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Fetch returns a local path for the media at req.URL, downloading it only
// when no live cache entry exists. Failures surface as
// *fetch.DownloadFailedError; a hit performs no network I/O at all.
func (m *Manager) Fetch(ctx context.Context, req Request) (string, error) {
	logger := logctx.LoggerFromContext(ctx).With("url", req.URL)

	key := DeriveKey(req.URL)
	start := time.Now()

	if entry := m.meta.Read(ctx, key); m.meta.IsValid(ctx, entry, time.Now()) {
		logger.Debug("cache hit", "key", key, "path", entry.LocalPath)
		m.tel.RecordCacheHit()
		m.recordAudit(ctx, storage.FetchRecord{
			CacheKey: key,
			URL:      req.URL,
			Outcome:  storage.OutcomeHit,
		})

		return entry.LocalPath, nil
	}

	logger.Debug("cache miss", "key", key)
	m.tel.RecordCacheMiss()

	var (
		attempts  int
		finalPath string
		kind      media.Kind
		byteSize  int64
	)

	err := m.policy.Do(ctx, func() error {
		attempts++
		logger.Info("download attempt", "key", key, "attempt", attempts, "max_attempts", m.policy.MaxAttempts)

		path, k, n, err := m.download(ctx, req, key)
		if err != nil {
			return err
		}

		finalPath, kind, byteSize = path, k, n

		return nil
	})

	duration := time.Since(start)
	m.tel.RecordRetries(attempts - 1)

	if err != nil {
		failure := &fetch.DownloadFailedError{URL: req.URL, Attempts: attempts, Err: err}

		logger.Error("download failed", "key", key, "attempts", attempts, "err", err)
		m.tel.RecordFetch(storage.OutcomeFailed, duration)
		m.recordAudit(ctx, storage.FetchRecord{
			CacheKey:   key,
			URL:        req.URL,
			Outcome:    storage.OutcomeFailed,
			Attempts:   attempts,
			DurationMS: duration.Milliseconds(),
		})

		return "", failure
	}

	entry := &metadata.Entry{
		CacheKey:     key,
		SourceURL:    req.URL,
		LocalPath:    finalPath,
		MediaKind:    kind,
		ByteSize:     byteSize,
		DownloadedAt: time.Now(),
		TTLHours:     m.effectiveTTL(req).Hours(),
	}

	if err := m.meta.Write(entry); err != nil {
		// The file is committed and usable; a lost sidecar just degrades the
		// next lookup to a miss.
		logger.Warn("failed to write sidecar", "key", key, "err", err)
	}

	logger.Info("download committed",
		"key", key,
		"path", finalPath,
		"media_kind", string(kind),
		"size", humanize.Bytes(uint64(byteSize)),
		"attempts", attempts,
	)
	m.tel.RecordFetch(storage.OutcomeDownloaded, duration)
	m.tel.RecordBytesDownloaded(byteSize)
	m.recordAudit(ctx, storage.FetchRecord{
		CacheKey:   key,
		URL:        req.URL,
		Outcome:    storage.OutcomeDownloaded,
		Attempts:   attempts,
		ByteSize:   byteSize,
		DurationMS: duration.Milliseconds(),
	})

	return finalPath, nil
}

// download runs one attempt of the stream-write-validate-commit pipeline.
func (m *Manager) download(ctx context.Context, req Request, key string) (string, media.Kind, int64, error) {
	logger := logctx.LoggerFromContext(ctx)

	stream, err := m.fetcher.Stream(ctx, req.URL)
	if err != nil {
		return "", media.KindUnknown, 0, err
	}
	defer stream.Body.Close()

	ext := media.ExtensionForURL(req.URL)
	if ext == "" {
		ext = media.ExtensionForContentType(stream.ContentType)
	}

	finalPath := filepath.Join(m.dir, key+ext)

	tmp, err := atomicfile.Create(m.dir, "download_*"+ext)
	if err != nil {
		return "", media.KindUnknown, 0, err
	}
	defer tmp.Cleanup()

	pr := progress.NewReader(stream.Body, stream.ContentLength, progressLogInterval, func(read, total int64) {
		if total > 0 {
			logger.Debug("download progress",
				"url", req.URL,
				"downloaded", humanize.Bytes(uint64(read)),
				"total", humanize.Bytes(uint64(total)))
		} else {
			logger.Debug("download progress", "url", req.URL, "downloaded", humanize.Bytes(uint64(read)))
		}
	})

	written, err := io.Copy(tmp, pr)
	if err != nil {
		// A truncated body is a network fault; the next attempt issues a
		// brand-new request.
		return "", media.KindUnknown, 0, &fetch.NetworkError{URL: req.URL, Err: err}
	}

	sniffed, err := media.Validate(tmp.Path(), req.DeclaredKind)
	if err != nil {
		logger.Warn("validation rejected download", "url", req.URL, "err", err)

		return "", media.KindUnknown, 0, err
	}

	if err := tmp.Commit(finalPath); err != nil {
		return "", media.KindUnknown, 0, err
	}

	return finalPath, media.ResolveKind(sniffed, req.DeclaredKind, ext), written, nil
}

// ClearExpired sweeps all sidecars and removes {entry, file} pairs that are
// no longer valid, returning the number of removed entries. Unreadable
// sidecars are skipped unless their media file is also gone.
func (m *Manager) ClearExpired(ctx context.Context) (int, error) {
	logger := logctx.LoggerFromContext(ctx)
	now := time.Now()

	keys, err := m.meta.Keys()
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, key := range keys {
		entry := m.meta.Read(ctx, key)
		if entry == nil {
			// Conservative: an unreadable sidecar might still describe a
			// good file. Only orphaned sidecars are dropped.
			if m.meta.HasMedia(key) {
				logger.Warn("skipping unreadable sidecar with media present", "key", key)

				continue
			}

			if err := m.meta.RemoveSidecar(key); err != nil {
				logger.Warn("failed to remove orphaned sidecar", "key", key, "err", err)

				continue
			}

			logger.Info("removed orphaned sidecar", "key", key)
			removed++

			continue
		}

		if m.meta.IsValid(ctx, entry, now) {
			continue
		}

		if err := m.meta.Remove(ctx, entry); err != nil {
			logger.Warn("partial removal of expired entry", "key", key, "err", err)
		}

		logger.Info("removed expired cache entry", "key", key, "url", entry.SourceURL)
		removed++
	}

	logger.Info("cache sweep finished", "removed", removed, "scanned", len(keys))
	m.tel.RecordEvictions(removed)

	return removed, nil
}

func (m *Manager) effectiveTTL(req Request) time.Duration {
	if req.TTL > 0 {
		return req.TTL
	}

	return m.ttl
}

func (m *Manager) recordAudit(ctx context.Context, rec storage.FetchRecord) {
	if m.audit == nil {
		return
	}

	if err := m.audit.RecordFetch(rec); err != nil {
		logctx.LoggerFromContext(ctx).Warn("failed to record fetch history", "key", rec.CacheKey, "err", err)
	}
}
