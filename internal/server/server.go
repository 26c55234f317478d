package server

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/metrics"
	"github.com/danielpatrickdp/churn-service/internal/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrTrainingInProgress is reported when /train is hit during a run.
var ErrTrainingInProgress = errors.New("training already in progress")

// Deps are the collaborators behind the HTTP routes. Metrics may be nil.
type Deps struct {
	Schema    *schema.Schema
	Trainer   Trainer
	Predictor Predictor
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type renderer struct {
	t *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

// #region build
// BuildServer registers the form, train, health and metrics routes.
func BuildServer(deps Deps) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	logger := deps.Logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{t: template.Must(template.ParseFS(templateFS, "templates/*.html"))}

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		logger.Warn("request error", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))

	// server-side latency
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			begin := time.Now()
			err := next(c)
			logger.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(begin)),
				zap.Error(err),
			)
			return err
		}
	})

	h := &handlers{deps: deps, logger: logger}
	e.GET("/", h.index)
	e.POST("/", h.predict)
	e.GET("/train", h.train)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}
	return e
}

// #endregion build

// #region handlers
type handlers struct {
	deps     Deps
	logger   *zap.Logger
	training sync.Mutex
}

func (h *handlers) index(c echo.Context) error {
	return c.Render(http.StatusOK, "churn.html", page{Features: h.deps.Schema.FeatureNames(), Context: "Rendering"})
}

// train always answers 200 with plain text; failures are described in the body.
func (h *handlers) train(c echo.Context) error {
	if !h.training.TryLock() {
		return c.String(http.StatusOK, "Error Occurred! "+ErrTrainingInProgress.Error())
	}
	defer h.training.Unlock()

	res, err := h.deps.Trainer.Train(c.Request().Context())
	if err != nil {
		return c.String(http.StatusOK, "Error Occurred! "+err.Error())
	}
	h.logger.Info("training finished", zap.String("run_id", res.RunID), zap.String("state", string(res.State)))
	return c.String(http.StatusOK, TrainSuccess)
}

func (h *handlers) predict(c echo.Context) error {
	begin := time.Now()
	label, err := h.classify(c)
	if err != nil {
		h.deps.Metrics.ObservePrediction("error", time.Since(begin))
		return c.JSON(http.StatusOK, ErrorResponse{Status: false, Error: err.Error()})
	}
	status, result := ResponseNo, "no"
	if label == 1 {
		status, result = ResponseYes, "yes"
	}
	h.deps.Metrics.ObservePrediction(result, time.Since(begin))
	return c.Render(http.StatusOK, "churn.html", page{Features: h.deps.Schema.FeatureNames(), Context: status})
}

func (h *handlers) classify(c echo.Context) (int, error) {
	form, err := c.FormParams()
	if err != nil {
		return 0, err
	}
	rec, err := h.deps.Schema.RecordFromForm(form)
	if err != nil {
		return 0, err
	}
	return h.deps.Predictor.Predict(c.Request().Context(), rec)
}

// #endregion handlers
