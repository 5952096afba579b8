// Package atomicfile implements the temp-file-plus-rename commit pattern:
// bytes are staged in a uniquely named temp file and become visible at the
// final path only through a single rename, so no reader ever observes a
// partial file.
package atomicfile

import (
	"fmt"
	"io"
	"os"
)

const filePerm = 0644

// File is a pending write. It must either be committed with Commit or
// discarded with Cleanup; deferring Cleanup covers every failure path, since
// it is a no-op after a successful commit.
type File struct {
	f         *os.File
	path      string
	committed bool
}

// Create stages a new temp file in dir. The pattern follows os.CreateTemp
// ("download_*.mp4" and the like), which guarantees distinct names across
// concurrent writers of the same cache key.
func Create(dir, pattern string) (*File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &File{f: f, path: f.Name()}, nil
}

// Write streams payload bytes into the temp file.
func (a *File) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

// Path returns the temp file location, for validation before commit.
func (a *File) Path() string {
	return a.path
}

// Commit closes the temp file and renames it to finalPath in one step.
func (a *File) Commit(finalPath string) error {
	if err := a.f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(a.path, finalPath); err != nil {
		return fmt.Errorf("failed to commit %s: %w", finalPath, err)
	}

	a.committed = true

	if err := os.Chmod(finalPath, filePerm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", finalPath, err)
	}

	return nil
}

// Cleanup removes the temp file unless it was committed. Safe to call
// multiple times and after the temp file was already deleted by a validator.
func (a *File) Cleanup() {
	if a.committed {
		return
	}

	_ = a.f.Close()
	_ = os.Remove(a.path)
}

// WriteFile stages the contents of r next to finalPath and commits it,
// returning the number of bytes written.
func WriteFile(dir, pattern, finalPath string, r io.Reader) (int64, error) {
	tmp, err := Create(dir, pattern)
	if err != nil {
		return 0, err
	}
	defer tmp.Cleanup()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("failed to write payload: %w", err)
	}

	if err := tmp.Commit(finalPath); err != nil {
		return n, err
	}

	return n, nil
}
