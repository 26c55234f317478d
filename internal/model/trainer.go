package model

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/transform"
)

// Trainer is the training stage: it fits a classifier on the transformed
// train array and checks it against the held-out array.
type Trainer struct {
	config Config
	logger *zap.Logger
}

// NewTrainer creates a trainer. A zero ExpectedScore uses
// DefaultExpectedScore; a zero Train config uses DefaultTrainConfig.
func NewTrainer(config Config, logger *zap.Logger) *Trainer {
	if config.ExpectedScore == 0 {
		config.ExpectedScore = DefaultExpectedScore
	}
	if config.Train == (TrainConfig{}) {
		config.Train = DefaultTrainConfig()
	}
	return &Trainer{config: config, logger: logger.Named("trainer")}
}

// Train runs the stage and writes the model artifact.
func (t *Trainer) Train(_ context.Context, in transform.Artifact) (Artifact, error) {
	trainArr, err := transform.LoadArray(in.TrainArrayPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("load train array: %w", err)
	}
	testArr, err := transform.LoadArray(in.TestArrayPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("load test array: %w", err)
	}
	var pre transform.Preprocessor
	if err := transform.LoadObject(in.PreprocessorPath, &pre); err != nil {
		return Artifact{}, fmt.Errorf("load preprocessor: %w", err)
	}
	var labels transform.LabelEncoder
	if err := transform.LoadObject(in.LabelEncoderPath, &labels); err != nil {
		return Artifact{}, fmt.Errorf("load label encoder: %w", err)
	}

	xTrain, yTrain := transform.Separate(trainArr)
	clf, err := Fit(xTrain, yTrain, t.config.Train)
	if err != nil {
		return Artifact{}, err
	}

	xTest, yTest := transform.Separate(testArr)
	pred, err := clf.Predict(xTest)
	if err != nil {
		return Artifact{}, err
	}
	metrics := Score(Labels(yTest), pred)
	t.logger.Info("classifier trained",
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall),
		zap.Float64("f1", metrics.F1),
	)
	if metrics.Accuracy < t.config.ExpectedScore {
		return Artifact{}, fmt.Errorf("%w: %.4f < %.4f", ErrBelowExpectedScore, metrics.Accuracy, t.config.ExpectedScore)
	}

	m := &Model{Preprocessor: &pre, Classifier: clf, Classes: labels.Classes}
	if err := transform.SaveObject(t.config.ModelPath, m); err != nil {
		return Artifact{}, fmt.Errorf("save model: %w", err)
	}
	return Artifact{ModelPath: t.config.ModelPath, Metrics: metrics}, nil
}

// Load reads a model artifact from disk.
func Load(path string) (*Model, error) {
	var m Model
	if err := transform.LoadObject(path, &m); err != nil {
		return nil, err
	}
	if m.Preprocessor == nil || m.Classifier == nil {
		return nil, fmt.Errorf("model %s is incomplete", path)
	}
	return &m, nil
}
