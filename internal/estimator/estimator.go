package estimator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/model"
	"github.com/danielpatrickdp/churn-service/internal/storage"
)

// ErrModelNotFound is returned by Predict when no model is stored under
// the estimator's key.
var ErrModelNotFound = errors.New("model not found")

// Estimator serves predictions from the model stored under one key. The
// model is fetched on first use and cached for the lifetime of the
// Estimator; concurrent first calls share a single load.
type Estimator struct {
	store storage.BlobStore
	key   string

	mu     sync.Mutex
	loaded atomic.Pointer[model.Model]
	loads  atomic.Int64
}

func New(store storage.BlobStore, key string) *Estimator {
	return &Estimator{store: store, key: key}
}

// Key is the blob key the estimator reads.
func (e *Estimator) Key() string { return e.key }

// IsModelPresent reports whether a model blob exists under key. An absent
// blob is not an error.
func (e *Estimator) IsModelPresent(ctx context.Context, key string) (bool, error) {
	ok, err := e.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check model %s: %w", key, err)
	}
	return ok, nil
}

// Predict classifies every row of f with the cached model.
func (e *Estimator) Predict(ctx context.Context, f *frame.Frame) ([]int, error) {
	m, err := e.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.Predict(f)
}

// Loads returns how many times the blob has been fetched and decoded.
func (e *Estimator) Loads() int64 { return e.loads.Load() }

func (e *Estimator) model(ctx context.Context) (*model.Model, error) {
	if m := e.loaded.Load(); m != nil {
		return m, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if m := e.loaded.Load(); m != nil {
		return m, nil
	}

	buf, err := e.store.Get(ctx, e.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, e.key)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch model %s: %w", e.key, err)
	}
	e.loads.Add(1)
	m, err := model.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", e.key, err)
	}
	e.loaded.Store(m)
	return m, nil
}
