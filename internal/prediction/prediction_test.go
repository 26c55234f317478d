package prediction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/churn-service/internal/frame"
	"github.com/danielpatrickdp/churn-service/internal/model"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/transform"
)

const doc = `
numerical_features: [tenure, TotalCharges]
categorical_features: [Contract]
change_column_dtype: TotalCharges
drop_columns: customerID
`

type recorder struct {
	out  []int
	err  error
	seen *frame.Frame
}

func (r *recorder) Predict(_ context.Context, f *frame.Frame) ([]int, error) {
	r.seen = f
	return r.out, r.err
}

type modelPredictor struct{ m *model.Model }

func (p modelPredictor) Predict(_ context.Context, f *frame.Frame) ([]int, error) {
	return p.m.Predict(f)
}

func parse(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func record(t *testing.T, s *schema.Schema, tenure, total, contract string) *schema.Record {
	t.Helper()
	r, err := s.RecordFromMap(map[string]any{"tenure": tenure, "TotalCharges": total, "Contract": contract})
	require.NoError(t, err)
	return r
}

func TestPredictBuildsRowInSchemaOrder(t *testing.T) {
	s := parse(t)
	rec := &recorder{out: []int{1}}
	p := NewPipeline(s, rec)

	got, err := p.Predict(context.Background(), record(t, s, "5", "29.85", "Month-to-month"))
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	require.NotNil(t, rec.seen)
	assert.Equal(t, []string{"tenure", "TotalCharges", "Contract"}, rec.seen.Columns())
	// values reach the model as entered
	total, _ := rec.seen.Column("TotalCharges")
	assert.Equal(t, frame.KindText, total[0].Kind())
}

func TestPredictPropagatesErrors(t *testing.T) {
	s := parse(t)
	boom := errors.New("model not found")
	p := NewPipeline(s, &recorder{err: boom})

	_, err := p.Predict(context.Background(), record(t, s, "5", "29.85", "One year"))
	assert.ErrorIs(t, err, boom)

	p.SetEstimator(&recorder{out: []int{0, 1}})
	_, err = p.Predict(context.Background(), record(t, s, "5", "29.85", "One year"))
	assert.Error(t, err)

	_, err = p.Predict(context.Background(), nil)
	assert.Error(t, err)
}

func TestSetEstimatorSwaps(t *testing.T) {
	s := parse(t)
	p := NewPipeline(s, &recorder{out: []int{0}})
	p.SetEstimator(&recorder{out: []int{1}})

	got, err := p.Predict(context.Background(), record(t, s, "5", "29.85", "One year"))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestPredictSkipsCleanup(t *testing.T) {
	s := parse(t)
	train, err := frame.ReadCSV(strings.NewReader(`customerID,tenure,TotalCharges,Contract,Churn
a,1,20,Month-to-month,Yes
b,2,40,Month-to-month,Yes
c,40,3000,Two year,No
d,50,3500,One year,No
`))
	require.NoError(t, err)
	b, err := transform.Fit(s, train, train)
	require.NoError(t, err)
	x, y := transform.Separate(b.Train)
	clf, err := model.Fit(x, y, model.TrainConfig{LearningRate: 0.5, Epochs: 200, Seed: 3})
	require.NoError(t, err)
	p := NewPipeline(s, modelPredictor{&model.Model{Preprocessor: b.Preprocessor, Classifier: clf}})

	// numeric text parses
	got, err := p.Predict(context.Background(), record(t, s, "1", "29.85", "Month-to-month"))
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	// a blank TotalCharges would be coerced during training but fails here
	_, err = p.Predict(context.Background(), record(t, s, "1", " ", "Month-to-month"))
	var terr *transform.TransformationError
	assert.True(t, errors.As(err, &terr))
}

type fakeVersions struct {
	id  string
	err error
}

func (f *fakeVersions) ActiveVersion(context.Context) (string, error) { return f.id, f.err }

func TestFollowReopensOnVersionChange(t *testing.T) {
	s := parse(t)
	versions := &fakeVersions{id: "v1"}
	var opened []string
	p := NewPipeline(s, &recorder{out: []int{0}})
	p.Follow(versions, "v1", func(_ context.Context, id string) (Predictor, error) {
		opened = append(opened, id)
		return &recorder{out: []int{len(opened)}}, nil
	})
	rec := record(t, s, "5", "29.85", "One year")

	got, err := p.Predict(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 0, got, "unchanged version keeps the current predictor")
	assert.Empty(t, opened)

	versions.id = "v2"
	got, err = p.Predict(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	_, err = p.Predict(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, opened, "one reopen per version")

	versions.id = "v1"
	got, err = p.Predict(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, []string{"v2", "v1"}, opened)
}

func TestFollowSurfacesErrors(t *testing.T) {
	s := parse(t)
	rec := record(t, s, "5", "29.85", "One year")
	boom := errors.New("registry locked")

	p := NewPipeline(s, &recorder{out: []int{0}})
	p.Follow(&fakeVersions{err: boom}, "", nil)
	_, err := p.Predict(context.Background(), rec)
	assert.ErrorIs(t, err, boom)

	failOpen := errors.New("no blob")
	p = NewPipeline(s, &recorder{out: []int{0}})
	p.Follow(&fakeVersions{id: "v9"}, "", func(context.Context, string) (Predictor, error) { return nil, failOpen })
	_, err = p.Predict(context.Background(), rec)
	assert.ErrorIs(t, err, failOpen)
}
