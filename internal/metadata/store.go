// Package metadata persists one JSON sidecar per cache key, co-located with
// the media file it describes. Sidecars are the cache index: a missing or
// unparsable sidecar is a cache miss, never an error.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reelpipe/mediacache/internal/logctx"
	"github.com/reelpipe/mediacache/internal/media"
)

const sidecarExt = ".json"

// Entry is the persisted record for one cached media file.
type Entry struct {
	CacheKey     string     `json:"cache_key"`
	SourceURL    string     `json:"url"`
	LocalPath    string     `json:"local_path"`
	MediaKind    media.Kind `json:"media_kind"`
	ByteSize     int64      `json:"byte_size"`
	DownloadedAt time.Time  `json:"downloaded_at"`
	TTLHours     float64    `json:"ttl_hours"`
}

// TTL returns the entry's time-to-live as a duration.
func (e *Entry) TTL() time.Duration {
	return time.Duration(e.TTLHours * float64(time.Hour))
}

// Expired reports whether the entry's TTL window has elapsed at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.DownloadedAt) >= e.TTL()
}

// Store reads and writes sidecar records under a single cache directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SidecarPath returns the sidecar location for a cache key.
func (s *Store) SidecarPath(key string) string {
	return filepath.Join(s.dir, key+sidecarExt)
}

// Write persists or overwrites the sidecar for entry's cache key.
func (s *Store) Write(entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar for %s: %w", entry.CacheKey, err)
	}

	if err := os.WriteFile(s.SidecarPath(entry.CacheKey), data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar for %s: %w", entry.CacheKey, err)
	}

	return nil
}

// Read returns the sidecar record for key, or nil when it is absent or
// unparsable. Corrupt sidecars are logged and degraded to a miss.
func (s *Store) Read(ctx context.Context, key string) *Entry {
	data, err := os.ReadFile(s.SidecarPath(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logctx.LoggerFromContext(ctx).Warn("failed to read sidecar", "key", key, "err", err)
		}

		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		logctx.LoggerFromContext(ctx).Warn("unparsable sidecar, treating as miss", "key", key, "err", err)

		return nil
	}

	return &entry
}

// IsValid reports whether entry points at a live cached file: the media file
// exists with a non-zero size and the TTL window has not elapsed.
func (s *Store) IsValid(ctx context.Context, entry *Entry, now time.Time) bool {
	if entry == nil {
		return false
	}

	logger := logctx.LoggerFromContext(ctx)

	info, err := os.Stat(entry.LocalPath)
	if err != nil {
		return false
	}

	if info.Size() == 0 {
		logger.Warn("cached file is empty", "key", entry.CacheKey, "path", entry.LocalPath)

		return false
	}

	if entry.Expired(now) {
		logger.Debug("cache entry expired", "key", entry.CacheKey, "downloaded_at", entry.DownloadedAt)

		return false
	}

	return true
}

// Keys lists the cache keys of all sidecars currently on disk.
func (s *Store) Keys() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+sidecarExt))
	if err != nil {
		return nil, fmt.Errorf("failed to scan sidecars: %w", err)
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, strings.TrimSuffix(filepath.Base(m), sidecarExt))
	}

	return keys, nil
}

// HasMedia reports whether any media file for key exists beside its sidecar.
func (s *Store) HasMedia(key string) bool {
	matches, err := filepath.Glob(filepath.Join(s.dir, key+".*"))
	if err != nil {
		return false
	}

	for _, m := range matches {
		if filepath.Ext(m) != sidecarExt {
			return true
		}
	}

	return false
}

// Remove deletes the media file and sidecar as a pair. Deletion is
// best-effort: a failure on one half is reported but does not stop the other.
func (s *Store) Remove(ctx context.Context, entry *Entry) error {
	logger := logctx.LoggerFromContext(ctx)

	var errs []error

	if err := os.Remove(entry.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove cached media", "key", entry.CacheKey, "path", entry.LocalPath, "err", err)
		errs = append(errs, err)
	}

	if err := os.Remove(s.SidecarPath(entry.CacheKey)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove sidecar", "key", entry.CacheKey, "err", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RemoveSidecar deletes just the sidecar for key. Used for orphaned sidecars
// whose media file is already gone.
func (s *Store) RemoveSidecar(key string) error {
	if err := os.Remove(s.SidecarPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove sidecar for %s: %w", key, err)
	}

	return nil
}
