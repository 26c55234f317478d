package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/churn-service/internal/metrics"
	"github.com/danielpatrickdp/churn-service/internal/orchestrator"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

type fakeTrainer struct {
	res     orchestrator.RunResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeTrainer) Train(context.Context) (orchestrator.RunResult, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.res, f.err
}

type fakePredictor struct {
	label int
	err   error
	got   *schema.Record
}

func (f *fakePredictor) Predict(_ context.Context, r *schema.Record) (int, error) {
	f.got = r
	return f.label, f.err
}

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte("numerical_features: [tenure]\ncategorical_features: [Contract]\n"))
	require.NoError(t, err)
	return s
}

func serve(e http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersFeatureForm(t *testing.T) {
	e := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{}, Predictor: &fakePredictor{}})

	rec := serve(e, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="tenure"`)
	assert.Contains(t, rec.Body.String(), `name="Contract"`)
}

func TestPredictRendersLabel(t *testing.T) {
	for _, tc := range []struct {
		label int
		want  string
	}{
		{1, ResponseYes},
		{0, ResponseNo},
	} {
		p := &fakePredictor{label: tc.label}
		e := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{}, Predictor: p})

		rec := serve(e, http.MethodPost, "/", url.Values{"tenure": {"3"}, "Contract": {"Month-to-month"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), tc.want)

		v, ok := p.got.Get("Contract")
		require.True(t, ok)
		assert.Equal(t, "Month-to-month", v.String())
	}
}

func TestPredictErrorIsJSON(t *testing.T) {
	e := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{}, Predictor: &fakePredictor{err: errors.New("model not found")}})

	rec := serve(e, http.MethodPost, "/", url.Values{"tenure": {"3"}, "Contract": {"One year"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Contains(t, body.Error, "model not found")

	rec = serve(e, http.MethodPost, "/", url.Values{"tenure": {"3"}})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "Contract")
}

func TestTrainAlwaysAnswersOK(t *testing.T) {
	ok := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{res: orchestrator.RunResult{State: orchestrator.StateRejected}}, Predictor: &fakePredictor{}})
	rec := serve(ok, http.MethodGet, "/train", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TrainSuccess, rec.Body.String())

	failing := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{err: orchestrator.ErrDisabled}, Predictor: &fakePredictor{}})
	rec = serve(failing, http.MethodGet, "/train", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Error Occurred! training pipeline disabled", rec.Body.String())
}

func TestOverlappingTrainIsRefused(t *testing.T) {
	tr := &fakeTrainer{started: make(chan struct{}), release: make(chan struct{})}
	e := BuildServer(Deps{Schema: testSchema(t), Trainer: tr, Predictor: &fakePredictor{}})

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = serve(e, http.MethodGet, "/train", nil)
	}()
	<-tr.started

	second := serve(e, http.MethodGet, "/train", nil)
	assert.Equal(t, "Error Occurred! "+ErrTrainingInProgress.Error(), second.Body.String())

	close(tr.release)
	wg.Wait()
	assert.Equal(t, TrainSuccess, first.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	e := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{}, Predictor: &fakePredictor{label: 1}, Metrics: m})

	rec := serve(e, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	serve(e, http.MethodPost, "/", url.Values{"tenure": {"3"}, "Contract": {"One year"}})
	rec = serve(e, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `churn_predictions_total{result="yes"} 1`)
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	e := BuildServer(Deps{Schema: testSchema(t), Trainer: &fakeTrainer{}, Predictor: &fakePredictor{}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
