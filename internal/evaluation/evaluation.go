package evaluation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/gate"
	"github.com/danielpatrickdp/churn-service/internal/model"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/transform"
)

// #region evaluator
// Evaluator scores the trained model and the production model on the same
// held-out split and asks the gate which one to keep.
type Evaluator struct {
	schema *schema.Schema
	config EvalConfig
	gate   *gate.Gate
	logger *zap.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(s *schema.Schema, config EvalConfig, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		schema: s,
		config: config,
		gate:   gate.NewGate(config.Gate),
		logger: logger.Named("evaluation"),
	}
}

// Evaluate loads the test split, applies the shared cleanup, and compares
// accuracy of the trained model against the production model reached
// through accessor. A missing production model is not an error.
func (e *Evaluator) Evaluate(ctx context.Context, testPath, modelPath, encoderPath string, accessor Accessor) (Result, error) {
	test, err := frame.ReadCSVFile(testPath)
	if err != nil {
		return Result{}, fmt.Errorf("read test split: %w", err)
	}
	x, yRaw, err := test.Split(e.schema.TargetColumn)
	if err != nil {
		return Result{}, &transform.TransformationError{Step: "split target", Err: err}
	}
	x = transform.Cleanup(x, e.schema)

	var labels transform.LabelEncoder
	if err := transform.LoadObject(encoderPath, &labels); err != nil {
		return Result{}, fmt.Errorf("load label encoder: %w", err)
	}
	yEnc, err := labels.Transform(yRaw)
	if err != nil {
		return Result{}, &transform.TransformationError{Step: "encode test target", Err: err}
	}
	y := model.Labels(yEnc)

	trained, err := model.Load(modelPath)
	if err != nil {
		return Result{}, fmt.Errorf("load trained model: %w", err)
	}
	trainedPred, err := trained.Predict(x)
	if err != nil {
		return Result{}, fmt.Errorf("score trained model: %w", err)
	}
	trainedMetrics := model.Score(y, trainedPred)
	metrics := appendMetrics(nil, "trained", trainedMetrics)
	e.logger.Info("trained model scored", zap.Float64("accuracy", trainedMetrics.Accuracy))

	var best *float64
	present, err := accessor.IsModelPresent(ctx, e.config.ModelKey)
	if err != nil {
		return Result{}, fmt.Errorf("check production model: %w", err)
	}
	if present {
		bestPred, err := accessor.Predict(ctx, x)
		if err != nil {
			return Result{}, fmt.Errorf("score production model: %w", err)
		}
		bestMetrics := model.Score(y, bestPred)
		best = &bestMetrics.Accuracy
		metrics = appendMetrics(metrics, "production", bestMetrics)
		e.logger.Info("production model scored",
			zap.Float64("production_accuracy", bestMetrics.Accuracy),
			zap.Float64("trained_accuracy", trainedMetrics.Accuracy),
		)
	} else {
		e.logger.Info("no production model", zap.String("key", e.config.ModelKey))
	}

	decision := e.gate.Evaluate(gate.Candidate{TrainedScore: trainedMetrics.Accuracy, BestScore: best})
	e.logger.Info("evaluation decided",
		zap.Bool("accepted", decision.Accepted),
		zap.Float64("delta", decision.Delta),
		zap.String("reason", decision.Reason),
	)
	return Result{
		TrainedScore: trainedMetrics.Accuracy,
		BestScore:    best,
		Accepted:     decision.Accepted,
		Delta:        decision.Delta,
		Reason:       decision.Reason,
		Metrics:      metrics,
	}, nil
}

// #endregion evaluator

// #region helpers
func appendMetrics(dst []Metric, prefix string, m model.Metrics) []Metric {
	return append(dst,
		Metric{Name: prefix + "_accuracy", Value: m.Accuracy},
		Metric{Name: prefix + "_precision", Value: m.Precision},
		Metric{Name: prefix + "_recall", Value: m.Recall},
		Metric{Name: prefix + "_f1", Value: m.F1},
	)
}

// #endregion helpers
