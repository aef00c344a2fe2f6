package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryOnConflict runs op up to attempts times, retrying only when it fails
// on a stale document revision. Each retry re-runs the whole
// read-modify-write. attempts <= 1 runs op once.
func RetryOnConflict[T any](ctx context.Context, attempts int, op func() (T, error)) (T, error) {
	if attempts <= 1 {
		return op()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !IsRevisionConflict(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return v, err
}
