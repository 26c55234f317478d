package server

import (
	"context"

	"github.com/danielpatrickdp/churn-service/internal/orchestrator"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

// #region interfaces
// Trainer runs one training pipeline. *app.App satisfies it.
type Trainer interface {
	Train(ctx context.Context) (orchestrator.RunResult, error)
}

// Predictor classifies one customer record. *prediction.Pipeline satisfies it.
type Predictor interface {
	Predict(ctx context.Context, r *schema.Record) (int, error)
}

// #endregion interfaces

// #region responses
const (
	TrainSuccess = "Training successful!!!"
	ResponseYes  = "Response-Yes"
	ResponseNo   = "Response-No"
)

// ErrorResponse is the JSON body returned when a prediction fails.
type ErrorResponse struct {
	Status bool   `json:"status"`
	Error  string `json:"error"`
}

type page struct {
	Features []string
	Context  string
}

// #endregion responses
