package model

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/transform"
	"github.com/danielpatrickdp/churn-service/internal/validation"
)

func separable() (*mat.Dense, []float64) {
	x := mat.NewDense(6, 1, []float64{-2, -1, -0.5, 0.5, 1, 2})
	return x, []float64{0, 0, 0, 1, 1, 1}
}

func TestFitSeparatesClasses(t *testing.T) {
	x, y := separable()
	cfg := TrainConfig{LearningRate: 0.5, Epochs: 300, BatchSize: 2, Seed: 1}
	c, err := Fit(x, y, cfg)
	require.NoError(t, err)

	pred, err := c.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, pred)
	assert.Greater(t, c.Weights[0], 0.0)
}

func TestFitIsDeterministic(t *testing.T) {
	x, y := separable()
	cfg := TrainConfig{LearningRate: 0.1, Epochs: 50, BatchSize: 4, L2: 1e-3, Seed: 9}
	a, err := Fit(x, y, cfg)
	require.NoError(t, err)
	b, err := Fit(x, y, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFitRejectsBadInput(t *testing.T) {
	x, _ := separable()
	cfg := DefaultTrainConfig()

	_, err := Fit(x, []float64{0, 1}, cfg)
	assert.Error(t, err)
	_, err = Fit(x, []float64{0, 0, 0, 1, 1, 2}, cfg)
	assert.Error(t, err)
	_, err = Fit(x, []float64{0, 0, 0, 1, 1, 1}, TrainConfig{})
	assert.Error(t, err)
}

func TestPredictChecksWidth(t *testing.T) {
	c := &Classifier{Weights: []float64{1, 2}}
	_, err := c.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	m := Score([]int{1, 1, 0, 0, 1}, []int{1, 0, 0, 1, 1})
	assert.InDelta(t, 0.6, m.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, m.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, m.F1, 1e-12)

	none := Score([]int{0, 0}, []int{0, 0})
	assert.Equal(t, Metrics{Accuracy: 1}, none)
	assert.Equal(t, Metrics{}, Score(nil, nil))
}

const churnSchema = `
numerical_features: [tenure]
categorical_features: [Contract]
drop_columns: customerID
`

const churnTrain = `customerID,tenure,Contract,Churn
a,1,Month-to-month,Yes
b,2,Month-to-month,Yes
c,3,Month-to-month,Yes
d,4,Month-to-month,Yes
e,30,Two year,No
f,40,Two year,No
g,50,One year,No
h,60,Two year,No
`

const churnTest = `customerID,tenure,Contract,Churn
i,2,Month-to-month,Yes
j,45,Two year,No
k,55,One year,No
`

func transformed(t *testing.T) transform.Artifact {
	t.Helper()
	dir := t.TempDir()
	s, err := schema.Parse([]byte(churnSchema))
	require.NoError(t, err)
	write := func(name, body string) string {
		f, err := frame.ReadCSV(strings.NewReader(body))
		require.NoError(t, err)
		p := filepath.Join(dir, name)
		require.NoError(t, frame.WriteCSVFile(p, f))
		return p
	}
	train, test := write("train.csv", churnTrain), write("test.csv", churnTest)
	cfg := transform.Config{
		PreprocessorPath: filepath.Join(dir, "pre.gob"),
		LabelEncoderPath: filepath.Join(dir, "labels.gob"),
		TrainArrayPath:   filepath.Join(dir, "train.bin"),
		TestArrayPath:    filepath.Join(dir, "test.bin"),
	}
	art, err := transform.NewTransformer(s, cfg, zap.NewNop()).
		Transform(context.Background(), train, test, validation.Artifact{Status: true})
	require.NoError(t, err)
	return art
}

func TestTrainerWritesModel(t *testing.T) {
	in := transformed(t)
	path := filepath.Join(t.TempDir(), "model", "model.gob")
	art, err := NewTrainer(Config{ModelPath: path}, zap.NewNop()).Train(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1.0, art.Metrics.Accuracy)

	m, err := Load(art.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"No", "Yes"}, m.Classes)

	rows, err := frame.ReadCSV(strings.NewReader("tenure,Contract\n1,Month-to-month\n70,Two year\n"))
	require.NoError(t, err)
	pred, err := m.Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, pred)
}

func TestTrainerBelowExpectedScore(t *testing.T) {
	in := transformed(t)
	cfg := Config{ModelPath: filepath.Join(t.TempDir(), "model.gob"), ExpectedScore: 1.01}
	_, err := NewTrainer(cfg, zap.NewNop()).Train(context.Background(), in)
	assert.True(t, errors.Is(err, ErrBelowExpectedScore))
}

func TestModelEncodeDecode(t *testing.T) {
	in := transformed(t)
	path := filepath.Join(t.TempDir(), "model.gob")
	_, err := NewTrainer(Config{ModelPath: path}, zap.NewNop()).Train(context.Background(), in)
	require.NoError(t, err)
	m, err := Load(path)
	require.NoError(t, err)

	buf, err := Marshal(m)
	require.NoError(t, err)
	got, err := Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, m.Classifier, got.Classifier)
	assert.Equal(t, m.Preprocessor, got.Preprocessor)

	_, err = Decode(strings.NewReader("not gob"))
	assert.Error(t, err)
}
