package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryConfig bounds each store call.
type RetryConfig struct {
	AttemptTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// DefaultRetryConfig returns the settings used against the remote store.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		AttemptTimeout:  10 * time.Second,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxRetries:      3,
	}
}

// Retrying wraps a store with a per-attempt timeout and exponential
// backoff. ErrNotFound and ErrInvalidKey are returned immediately; exhausted retries wrap
// ErrUnavailable.
type Retrying struct {
	inner  BlobStore
	config RetryConfig
	logger *zap.Logger
}

func NewRetrying(inner BlobStore, config RetryConfig, logger *zap.Logger) *Retrying {
	return &Retrying{inner: inner, config: config, logger: logger.Named("storage")}
}

func (r *Retrying) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := r.do(ctx, "exists", key, func(ctx context.Context) error {
		var err error
		ok, err = r.inner.Exists(ctx, key)
		return err
	})
	return ok, err
}

func (r *Retrying) Get(ctx context.Context, key string) ([]byte, error) {
	var buf []byte
	err := r.do(ctx, "get", key, func(ctx context.Context) error {
		var err error
		buf, err = r.inner.Get(ctx, key)
		return err
	})
	return buf, err
}

func (r *Retrying) Put(ctx context.Context, key string, data []byte) error {
	return r.do(ctx, "put", key, func(ctx context.Context) error {
		return r.inner.Put(ctx, key, data)
	})
}

func (r *Retrying) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.config.InitialInterval
	eb.MaxInterval = r.config.MaxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.config.MaxRetries), ctx)

	attempt := func() error {
		actx := ctx
		if r.config.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, r.config.AttemptTimeout)
			defer cancel()
		}
		err := fn(actx)
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("store call failed, retrying",
			zap.String("op", op),
			zap.String("key", key),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(attempt, policy, notify)
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s %s: %w: %w", op, key, ErrUnavailable, err)
}
