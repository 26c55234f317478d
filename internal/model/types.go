package model

import (
	"errors"

	"github.com/danielpatrickdp/churn-service/internal/transform"
)

// ErrBelowExpectedScore is returned when the trained classifier does not
// reach the configured accuracy on the held-out split.
var ErrBelowExpectedScore = errors.New("model accuracy below expected score")

// DefaultExpectedScore is the minimum held-out accuracy a trained model
// must reach.
const DefaultExpectedScore = 0.6

// #region model
// Model is the deployable artifact: the fitted preprocessor and the
// classifier trained on its output.
type Model struct {
	Preprocessor *transform.Preprocessor
	Classifier   *Classifier
	Classes      []string
}

// Metrics are classification scores for the positive class (index 1).
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// #endregion model

// #region config
// TrainConfig controls gradient descent. Training is deterministic for a
// given seed.
type TrainConfig struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	L2           float64
	Seed         uint64
}

// DefaultTrainConfig returns the settings used by the pipeline.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: 0.1,
		Epochs:       200,
		BatchSize:    64,
		L2:           1e-4,
		Seed:         42,
	}
}

// Config configures the trainer stage.
type Config struct {
	ModelPath     string
	ExpectedScore float64
	Train         TrainConfig
}

// Artifact points at the trained model and its self-reported metrics.
type Artifact struct {
	ModelPath string
	Metrics   Metrics
}

// #endregion config
