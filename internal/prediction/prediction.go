package prediction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

// Predictor classifies rows. *estimator.Estimator satisfies it.
type Predictor interface {
	Predict(ctx context.Context, f *frame.Frame) ([]int, error)
}

// VersionSource reports the active production version. "" means none.
// *registry.Registry satisfies it.
type VersionSource interface {
	ActiveVersion(ctx context.Context) (string, error)
}

// OpenFunc returns a predictor for a production version.
type OpenFunc func(ctx context.Context, versionID string) (Predictor, error)

// Pipeline turns one customer record into one class index.
//
// The record is handed to the model as entered: the numeric coercion and
// identifier drop applied during training are not applied here, so a text
// TotalCharges that does not parse fails the prediction.
type Pipeline struct {
	schema *schema.Schema

	mu        sync.RWMutex
	predictor Predictor

	versions VersionSource
	open     OpenFunc
	version  string
}

func NewPipeline(s *schema.Schema, p Predictor) *Pipeline {
	return &Pipeline{schema: s, predictor: p}
}

// SetEstimator swaps the predictor, typically after a promotion so the
// next request loads the new production model.
func (p *Pipeline) SetEstimator(next Predictor) {
	p.mu.Lock()
	p.predictor = next
	p.mu.Unlock()
}

// Follow makes every Predict check the active version first and reopen
// the predictor when it changed, so promotions and rollbacks made by other
// processes are served without a restart. The current predictor is taken
// to serve version current.
func (p *Pipeline) Follow(versions VersionSource, current string, open OpenFunc) {
	p.mu.Lock()
	p.versions, p.open, p.version = versions, open, current
	p.mu.Unlock()
}

func (p *Pipeline) current(ctx context.Context) (Predictor, error) {
	p.mu.RLock()
	pred, versions, seen := p.predictor, p.versions, p.version
	p.mu.RUnlock()
	if versions == nil {
		return pred, nil
	}

	id, err := versions.ActiveVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("active version: %w", err)
	}
	if id == seen {
		return pred, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if id == p.version {
		return p.predictor, nil
	}
	next, err := p.open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open version %q: %w", id, err)
	}
	p.predictor, p.version = next, id
	return next, nil
}

// Predict returns the class index for r.
func (p *Pipeline) Predict(ctx context.Context, r *schema.Record) (int, error) {
	if r == nil {
		return 0, errors.New("predict: nil record")
	}
	f, err := r.Frame()
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	pred, err := p.current(ctx)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	out, err := pred.Predict(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("predict: got %d predictions for one record", len(out))
	}
	return out[0], nil
}
