package media

import (
	"fmt"
	"io"
	"os"
)

// ValidationError signals a downloaded payload that failed integrity checks.
// It is retryable: a truncated or garbled body may succeed on a fresh
// request.
type ValidationError struct {
	Path   string // candidate file that was rejected (already deleted)
	Reason string // human-readable explanation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Path, e.Reason)
}

// Validate checks a downloaded candidate file before it is committed.
// A file passes when it is non-empty and either its sniffed kind is
// compatible with declared, or no signature matched but the file clears the
// unknown-payload size floor. On failure the candidate is deleted and a
// *ValidationError is returned. The sniffed kind is returned in all cases so
// callers can record it.
func Validate(filePath string, declared Kind) (Kind, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return KindUnknown, reject(filePath, fmt.Sprintf("cannot stat candidate: %v", err))
	}

	if info.Size() == 0 {
		return KindUnknown, reject(filePath, "file is empty")
	}

	head, err := readHead(filePath)
	if err != nil {
		return KindUnknown, reject(filePath, fmt.Sprintf("cannot read candidate: %v", err))
	}

	sniffed := Sniff(head)
	if sniffed == KindUnknown {
		if info.Size() < minUnknownBytes {
			return sniffed, reject(filePath, fmt.Sprintf("unknown signature and only %d bytes", info.Size()))
		}

		return sniffed, nil
	}

	if declared != KindImage && declared != KindVideo {
		return sniffed, nil
	}

	if sniffed != declared {
		return sniffed, reject(filePath, fmt.Sprintf("sniffed %s but caller declared %s", sniffed, declared))
	}

	return sniffed, nil
}

func readHead(filePath string) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)

	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	return head[:n], nil
}

// reject removes the candidate so a failed attempt never leaves bytes behind,
// then builds the error. Removal is best-effort.
func reject(filePath, reason string) error {
	_ = os.Remove(filePath)

	return &ValidationError{Path: filePath, Reason: reason}
}
