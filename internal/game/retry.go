package game

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the retries applied to store calls.
type RetryPolicy struct {
	Attempts        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:        3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	if p.Attempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)
}

func transient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// retry runs op until it succeeds, fails with an error retryable rejects, or
// the policy is exhausted.
func retry[T any](ctx context.Context, p RetryPolicy, retryable func(error) bool, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		value, err := op()
		if err != nil && !retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}, p.backOff(ctx))
}

func retryErr(ctx context.Context, p RetryPolicy, op func() error) error {
	_, err := retry(ctx, p, transient, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

func retryValue[T any](ctx context.Context, p RetryPolicy, op func() (T, error)) (T, error) {
	return retry(ctx, p, transient, op)
}

// retryInsert retries insert like retryErr. A conflict on the attempt
// after a transient failure is checked with committed: if the stored row is
// the one being written, the earlier attempt landed and only its reply was
// lost.
func retryInsert(ctx context.Context, p RetryPolicy, conflict error, insert func() error, committed func() (bool, error)) error {
	replyLost := false
	return retryErr(ctx, p, func() error {
		err := insert()
		if replyLost && errors.Is(err, conflict) {
			ok, lookupErr := committed()
			if lookupErr != nil {
				return lookupErr
			}
			if ok {
				return nil
			}
		}
		replyLost = transient(err)
		return err
	})
}
