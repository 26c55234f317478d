package ingestion

import (
	"context"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// #region artifact
// Artifact points at the files written by the ingestion stage.
type Artifact struct {
	FeatureStorePath string
	TrainPath        string
	TestPath         string
	Rows             int
}

// #endregion artifact

// #region config
// Config holds the output locations and split parameters.
type Config struct {
	FeatureStorePath string
	TrainPath        string
	TestPath         string
	TestSize         float64 // fraction of rows held out for testing
	Seed             uint64
}

// DefaultTestSize matches the usual 75/25 train/test split.
const DefaultTestSize = 0.25

// #endregion config

// #region source
// Source yields the raw customer table.
type Source interface {
	Read(ctx context.Context) (*frame.Frame, error)
	Describe() string
}

// #endregion source
