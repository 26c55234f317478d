package transform

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/validation"
)

// #region types
// Bundle is the fitted output of the transformation: the preprocessor and
// label encoder, and both splits as arrays whose last column is the
// encoded target.
type Bundle struct {
	Preprocessor *Preprocessor
	Labels       *LabelEncoder
	Train        *mat.Dense
	Test         *mat.Dense
}

// Config names the files the stage writes.
type Config struct {
	PreprocessorPath string
	LabelEncoderPath string
	TrainArrayPath   string
	TestArrayPath    string
}

// Artifact points at the files written by the stage.
type Artifact struct {
	PreprocessorPath string
	LabelEncoderPath string
	TrainArrayPath   string
	TestArrayPath    string
	Features         int
}

// #endregion types

// #region fit
// Fit cleans both splits, fits the preprocessor and label encoder on train
// only, and encodes both splits with the fitted parameters.
func Fit(s *schema.Schema, train, test *frame.Frame) (*Bundle, error) {
	if train.Len() == 0 {
		return nil, &TransformationError{Step: "split target", Err: errors.New("empty train split")}
	}
	if test.Len() == 0 {
		return nil, &TransformationError{Step: "split target", Err: errors.New("empty test split")}
	}
	xTrain, yTrain, err := train.Split(s.TargetColumn)
	if err != nil {
		return nil, &TransformationError{Step: "split target", Err: err}
	}
	xTest, yTest, err := test.Split(s.TargetColumn)
	if err != nil {
		return nil, &TransformationError{Step: "split target", Err: err}
	}
	xTrain = Cleanup(xTrain, s)
	xTest = Cleanup(xTest, s)

	pre := NewPreprocessor(s)
	trainX, err := pre.FitTransform(xTrain)
	if err != nil {
		return nil, err
	}
	testX, err := pre.Transform(xTest)
	if err != nil {
		return nil, err
	}

	labels := &LabelEncoder{Column: s.TargetColumn}
	if err := labels.Fit(yTrain); err != nil {
		return nil, &TransformationError{Step: "fit label encoder", Err: err}
	}
	trainY, err := labels.Transform(yTrain)
	if err != nil {
		return nil, &TransformationError{Step: "encode train target", Err: err}
	}
	testY, err := labels.Transform(yTest)
	if err != nil {
		return nil, &TransformationError{Step: "encode test target", Err: err}
	}

	return &Bundle{
		Preprocessor: pre,
		Labels:       labels,
		Train:        Augment(trainX, trainY),
		Test:         Augment(testX, testY),
	}, nil
}

// Augment appends y as the last column of x.
func Augment(x *mat.Dense, y []float64) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c+1, nil)
	out.Slice(0, r, 0, c).(*mat.Dense).Copy(x)
	out.SetCol(c, y)
	return out
}

// Separate splits an augmented array back into features and target.
func Separate(m *mat.Dense) (*mat.Dense, []float64) {
	r, c := m.Dims()
	x := mat.DenseCopyOf(m.Slice(0, r, 0, c-1))
	return x, mat.Col(nil, c-1, m)
}

// #endregion fit

// #region stage
// Transformer is the pipeline stage around Fit.
type Transformer struct {
	schema *schema.Schema
	config Config
	logger *zap.Logger
}

func NewTransformer(s *schema.Schema, config Config, logger *zap.Logger) *Transformer {
	return &Transformer{schema: s, config: config, logger: logger.Named("transform")}
}

// Transform refuses a failed validation, otherwise fits and persists the
// preprocessor, label encoder and both arrays.
func (t *Transformer) Transform(_ context.Context, trainPath, testPath string, v validation.Artifact) (Artifact, error) {
	if !v.Status {
		return Artifact{}, &TransformationError{
			Step: "check validation",
			Err:  fmt.Errorf("%w: %s", validation.ErrFailed, v.Message),
		}
	}
	train, err := frame.ReadCSVFile(trainPath)
	if err != nil {
		return Artifact{}, &TransformationError{Step: "read train split", Err: err}
	}
	test, err := frame.ReadCSVFile(testPath)
	if err != nil {
		return Artifact{}, &TransformationError{Step: "read test split", Err: err}
	}

	b, err := Fit(t.schema, train, test)
	if err != nil {
		return Artifact{}, err
	}

	if err := SaveObject(t.config.PreprocessorPath, b.Preprocessor); err != nil {
		return Artifact{}, &TransformationError{Step: "save preprocessor", Err: err}
	}
	if err := SaveObject(t.config.LabelEncoderPath, b.Labels); err != nil {
		return Artifact{}, &TransformationError{Step: "save label encoder", Err: err}
	}
	if err := SaveArray(t.config.TrainArrayPath, b.Train); err != nil {
		return Artifact{}, &TransformationError{Step: "save train array", Err: err}
	}
	if err := SaveArray(t.config.TestArrayPath, b.Test); err != nil {
		return Artifact{}, &TransformationError{Step: "save test array", Err: err}
	}

	t.logger.Info("transformation complete",
		zap.Int("features", b.Preprocessor.Width()),
		zap.Strings("classes", b.Labels.Classes),
	)
	return Artifact{
		PreprocessorPath: t.config.PreprocessorPath,
		LabelEncoderPath: t.config.LabelEncoderPath,
		TrainArrayPath:   t.config.TrainArrayPath,
		TestArrayPath:    t.config.TestArrayPath,
		Features:         b.Preprocessor.Width(),
	}, nil
}

// #endregion stage
