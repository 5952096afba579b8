// Package progress wraps an io.Reader to report transfer progress through a
// callback at byte-count intervals.
package progress

import "io"

// Reader counts bytes flowing through an io.Reader and invokes the callback
// roughly every interval bytes. The total is a hint; pass 0 when the source
// length is unknown.
type Reader struct {
	r        io.Reader
	total    int64
	interval int64
	onUpdate func(read, total int64)

	read      int64
	sinceCall int64
}

func NewReader(r io.Reader, total, interval int64, onUpdate func(read, total int64)) *Reader {
	if interval <= 0 {
		interval = 1
	}

	return &Reader{r: r, total: total, interval: interval, onUpdate: onUpdate}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.sinceCall += int64(n)

		if pr.onUpdate != nil && pr.sinceCall >= pr.interval {
			pr.onUpdate(pr.read, pr.total)
			pr.sinceCall = 0
		}
	}

	return n, err
}

// BytesRead returns the cumulative byte count seen so far.
func (pr *Reader) BytesRead() int64 {
	return pr.read
}
