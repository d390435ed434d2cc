package kafka

import (
	"context"
	"time"

	"github.com/knactor/kafka/kerr"
)

// performWithRetry repeats op until it succeeds, a non-retryable error
// is observed, retries are exhausted, or ctx is cancelled — spec.md
// §4.6's retry protocol. Backoff is linear at cfg.retryDelay.
// onStaleMetadata, when non-nil, is called once per attempt that failed
// with a stale-metadata-flagged protocol error, before the next attempt;
// the Producer and consumer group pass their own "force a metadata
// refresh" closure here rather than this function reaching into them.
func (c *Client) performWithRetry(ctx context.Context, operation string, onStaleMetadata func(ctx context.Context) error, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		c.cfg.hooks.each(func(h Hook) {
			if hh, ok := h.(RetryHook); ok {
				hh.OnRetry(operation, attempt, err)
			}
		})

		if !isRetryable(err) {
			return err
		}
		if pe, ok := kerr.AsProtocolError(err); ok && pe.StaleMetadata && onStaleMetadata != nil {
			if rerr := onStaleMetadata(ctx); rerr != nil {
				return rerr
			}
		}
		if attempt == c.cfg.retries {
			break
		}

		select {
		case <-time.After(c.cfg.retryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// isRetryable classifies an error per spec.md §4.6: protocol errors
// flagged canRetry, and network errors, are worth retrying; user,
// authentication, and unsupported errors are not.
func isRetryable(err error) bool {
	if pe, ok := kerr.AsProtocolError(err); ok {
		return pe.Retriable
	}
	return kerr.IsKind(err, kerr.KindNetwork)
}
