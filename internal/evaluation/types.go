package evaluation

import (
	"context"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/gate"
)

// #region eval-config
// EvalConfig configures the evaluator.
type EvalConfig struct {
	ModelKey string // production model key in the remote store
	Gate     gate.GateConfig
}

// #endregion eval-config

// #region eval-metric
// Metric captures a single score for one of the compared models.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// #endregion eval-metric

// #region eval-result
// Result is the outcome of comparing the trained model with production.
type Result struct {
	TrainedScore float64
	BestScore    *float64 // nil when no production model exists
	Accepted     bool
	Delta        float64
	Reason       string
	Metrics      []Metric
}

// #endregion eval-result

// #region accessor
// Accessor reaches the production model.
type Accessor interface {
	IsModelPresent(ctx context.Context, key string) (bool, error)
	Predict(ctx context.Context, f *frame.Frame) ([]int, error)
}

// #endregion accessor
