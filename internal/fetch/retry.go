package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/reelpipe/mediacache/internal/logctx"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

// Policy bounds how a failed download pipeline is re-run. The delay before
// attempt n (n >= 2) is Base * 2^(n-2), with no jitter: 1s, 2s, 4s for the
// defaults.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Base: DefaultBackoffBase}
}

// Do runs op until it succeeds, fails terminally, or MaxAttempts executions
// are spent. 4xx responses are terminal; network faults, 5xx responses, and
// validation failures are retried. The backoff wait blocks only the calling
// fetch.
func (p Policy) Do(ctx context.Context, op func() error) error {
	logger := logctx.LoggerFromContext(ctx)

	tries := p.MaxAttempts
	if tries < 1 {
		tries = 1
	}

	base := p.Base
	if base <= 0 {
		base = DefaultBackoffBase
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.RandomizationFactor = 0
	bo.Multiplier = 2

	wrapped := func() (struct{}, error) {
		err := op()
		if err == nil {
			return struct{}{}, nil
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Terminal() {
			return struct{}{}, backoff.Permanent(err)
		}

		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			logger.Warn("attempt failed, backing off", "delay", delay.String(), "err", err)
		}),
	)

	return err
}
