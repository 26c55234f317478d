package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/estimator"
	"github.com/danielpatrickdp/churn-service/internal/evaluation"
	"github.com/danielpatrickdp/churn-service/internal/events"
	"github.com/danielpatrickdp/churn-service/internal/ingestion"
	"github.com/danielpatrickdp/churn-service/internal/logging"
	"github.com/danielpatrickdp/churn-service/internal/metrics"
	"github.com/danielpatrickdp/churn-service/internal/model"
	"github.com/danielpatrickdp/churn-service/internal/registry"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/storage"
	"github.com/danielpatrickdp/churn-service/internal/transform"
	"github.com/danielpatrickdp/churn-service/internal/validation"
)

// #endregion

// #region pipeline-struct

// Deps are the collaborators a pipeline needs. Publisher and Metrics may
// be nil.
type Deps struct {
	Schema    *schema.Schema
	Source    ingestion.Source
	Store     storage.BlobStore
	Registry  *registry.Registry
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Pipeline runs ingest, validate, transform, train, evaluate and promote
// strictly in order.
type Pipeline struct {
	config Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// #endregion

// #region constructor

// New creates a pipeline. Kill switch: Config.Enabled false (set from
// PIPELINE_ENABLED=false) makes Run return ErrDisabled.
func New(config Config, deps Deps) *Pipeline {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{
		config: config,
		deps:   deps,
		logger: deps.Logger.Named("pipeline"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// #endregion

// #region enabled

// Enabled returns whether training is allowed.
func (p *Pipeline) Enabled() bool {
	return p.config.Enabled
}

// Estimator returns a fresh estimator bound to the production key.
func (p *Pipeline) Estimator() *estimator.Estimator {
	return estimator.New(p.deps.Store, p.config.ModelKey)
}

// #endregion

// #region run

// Run executes one training run in its own artifact directory.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: uuid.New().String(), StartedAt: p.now()}
	if !p.config.Enabled {
		res.State = StateDisabled
		p.deps.Metrics.RunFinished(metrics.OutcomeDisabled)
		return res, ErrDisabled
	}
	res.ArtifactDir = filepath.Join(p.config.ArtifactDir, res.StartedAt.Format("01_02_2006_15_04_05")+"_"+res.RunID[:8])
	log := p.logger.With(zap.String("run_id", res.RunID))
	log.Info("pipeline started", zap.String("artifact_dir", res.ArtifactDir))

	err := p.run(ctx, log, &res)
	res.FinishedAt = p.now()
	if err != nil {
		p.deps.Metrics.RunFinished(metrics.OutcomeFailed)
		p.logDecision(ctx, log, logging.DecisionEntry{
			RunID:    res.RunID,
			Decision: logging.DecisionFailed,
			Reason:   err.Error(),
		})
		log.Error("pipeline failed", zap.String("state", string(res.State)), zap.Error(err))
		return res, err
	}
	log.Info("pipeline finished", zap.String("state", string(res.State)))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, res *RunResult) error {
	dir := res.ArtifactDir
	ingestCfg := ingestion.Config{
		FeatureStorePath: filepath.Join(dir, "feature_store", "churn.csv"),
		TrainPath:        filepath.Join(dir, "ingested", "train.csv"),
		TestPath:         filepath.Join(dir, "ingested", "test.csv"),
		TestSize:         p.config.TestSize,
		Seed:             p.config.SplitSeed,
	}
	transformCfg := transform.Config{
		PreprocessorPath: filepath.Join(dir, "transformed", "preprocessing.gob"),
		LabelEncoderPath: filepath.Join(dir, "transformed", "target_encoder.gob"),
		TrainArrayPath:   filepath.Join(dir, "transformed", "train.bin"),
		TestArrayPath:    filepath.Join(dir, "transformed", "test.bin"),
	}
	modelCfg := model.Config{
		ModelPath:     filepath.Join(dir, "trained_model", "model.gob"),
		ExpectedScore: p.config.ExpectedScore,
		Train:         p.config.Train,
	}

	var ingested ingestion.Artifact
	err := p.stage(ctx, StageIngest, func(ctx context.Context) (err error) {
		ingested, err = ingestion.NewIngestor(p.deps.Source, ingestCfg, p.deps.Logger).Ingest(ctx)
		return err
	})
	if err != nil {
		return err
	}
	res.State = StateIngested

	var validated validation.Artifact
	err = p.stage(ctx, StageValidate, func(ctx context.Context) (err error) {
		validator := validation.NewValidator(p.deps.Schema, filepath.Join(dir, "validation", "report.yaml"), p.deps.Logger)
		validated, err = validator.Validate(ctx, ingested)
		if err == nil && !validated.Status {
			err = fmt.Errorf("%w: %s", validation.ErrFailed, validated.Message)
		}
		return err
	})
	if err != nil {
		return err
	}
	res.State = StateValidated

	var transformed transform.Artifact
	err = p.stage(ctx, StageTransform, func(ctx context.Context) (err error) {
		transformer := transform.NewTransformer(p.deps.Schema, transformCfg, p.deps.Logger)
		transformed, err = transformer.Transform(ctx, ingested.TrainPath, ingested.TestPath, validated)
		return err
	})
	if err != nil {
		return err
	}
	res.State = StateTransformed

	var trained model.Artifact
	err = p.stage(ctx, StageTrain, func(ctx context.Context) (err error) {
		trained, err = model.NewTrainer(modelCfg, p.deps.Logger).Train(ctx, transformed)
		return err
	})
	if err != nil {
		return err
	}
	res.State = StateTrained
	res.Metrics = trained.Metrics

	var result evaluation.Result
	err = p.stage(ctx, StageEvaluate, func(ctx context.Context) (err error) {
		evaluator := evaluation.NewEvaluator(p.deps.Schema, evaluation.EvalConfig{
			ModelKey: p.config.ModelKey,
			Gate:     p.config.Gate,
		}, p.deps.Logger)
		result, err = evaluator.Evaluate(ctx, ingested.TestPath, trained.ModelPath, transformed.LabelEncoderPath, p.Estimator())
		return err
	})
	if err != nil {
		return err
	}
	res.State = StateEvaluated
	res.Evaluation = &result
	p.deps.Metrics.SetTrainedScore(result.TrainedScore)

	metricsJSON, err := encodeMetrics(result.Metrics)
	if err != nil {
		return &StageError{Stage: StageEvaluate, Err: err}
	}
	entry := logging.DecisionEntry{
		RunID:        res.RunID,
		TrainedScore: result.TrainedScore,
		BestScore:    result.BestScore,
		Delta:        result.Delta,
		Reason:       result.Reason,
		MetricsJSON:  metricsJSON,
	}

	if !result.Accepted {
		res.State = StateRejected
		entry.Decision = logging.DecisionRejected
		p.logDecision(ctx, log, entry)
		p.deps.Metrics.RunFinished(metrics.OutcomeRejected)
		return nil
	}

	var version registry.ModelVersion
	err = p.stage(ctx, StagePromote, func(ctx context.Context) (err error) {
		version, err = p.promote(ctx, res.RunID, trained.ModelPath, result, metricsJSON)
		return err
	})
	if err != nil {
		return err
	}
	res.State = StatePromoted
	res.Version = &version
	entry.Decision = logging.DecisionPromoted
	entry.VersionID = version.VersionID
	p.logDecision(ctx, log, entry)
	p.deps.Metrics.RunFinished(metrics.OutcomePromoted)
	return nil
}

// stage runs fn, records its duration and tags any error with the stage.
func (p *Pipeline) stage(ctx context.Context, name Stage, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	p.deps.Metrics.ObserveStage(string(name), time.Since(start))
	if err != nil {
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

// #endregion

// #region promote

// promote uploads the model under its versioned key, commits the registry
// version, and only then replaces the production key. If that last upload
// fails the active pointer is moved back to the parent so the registry
// keeps naming the blob that is actually live.
func (p *Pipeline) promote(ctx context.Context, runID, modelPath string, result evaluation.Result, metricsJSON string) (registry.ModelVersion, error) {
	blob, err := os.ReadFile(modelPath)
	if err != nil {
		return registry.ModelVersion{}, fmt.Errorf("read trained model: %w", err)
	}
	versionID := uuid.New().String()
	versionKey := path.Join("versions", versionID, path.Base(p.config.ModelKey))

	if err := p.deps.Store.Put(ctx, versionKey, blob); err != nil {
		return registry.ModelVersion{}, fmt.Errorf("upload %s: %w", versionKey, err)
	}

	version, err := p.deps.Registry.Promote(ctx, registry.ModelVersion{
		VersionID:   versionID,
		RunID:       runID,
		ModelKey:    p.config.ModelKey,
		VersionKey:  versionKey,
		Score:       result.TrainedScore,
		MetricsJSON: metricsJSON,
		CreatedAt:   p.now(),
	})
	if err != nil {
		return registry.ModelVersion{}, fmt.Errorf("record version: %w", err)
	}

	if err := p.deps.Store.Put(ctx, p.config.ModelKey, blob); err != nil {
		err = fmt.Errorf("upload %s: %w", p.config.ModelKey, err)
		if version.ParentID != "" {
			if rerr := p.deps.Registry.Rollback(ctx, version.ParentID); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restore active %s: %w", version.ParentID, rerr))
			}
		}
		return registry.ModelVersion{}, err
	}

	err = p.deps.Publisher.PublishPromoted(ctx, events.ModelPromoted{
		RunID:      runID,
		VersionID:  version.VersionID,
		ParentID:   version.ParentID,
		ModelKey:   version.ModelKey,
		VersionKey: version.VersionKey,
		Score:      result.TrainedScore,
		BestScore:  result.BestScore,
		Delta:      result.Delta,
		PromotedAt: version.CreatedAt,
	})
	if err != nil {
		// the model is already live; a lost event is not a failed promotion
		p.logger.Warn("promotion event not published", zap.String("version_id", version.VersionID), zap.Error(err))
	}
	return version, nil
}

// #endregion

// #region rollback

// Rollback restores a previously promoted version to the production key
// and makes it active.
func (p *Pipeline) Rollback(ctx context.Context, versionID string) (registry.ModelVersion, error) {
	v, err := p.deps.Registry.Version(ctx, versionID)
	if err != nil {
		return registry.ModelVersion{}, err
	}
	blob, err := p.deps.Store.Get(ctx, v.VersionKey)
	if err != nil {
		return registry.ModelVersion{}, fmt.Errorf("fetch %s: %w", v.VersionKey, err)
	}
	if err := p.deps.Store.Put(ctx, v.ModelKey, blob); err != nil {
		return registry.ModelVersion{}, fmt.Errorf("restore %s: %w", v.ModelKey, err)
	}
	if err := p.deps.Registry.Rollback(ctx, versionID); err != nil {
		return registry.ModelVersion{}, err
	}
	p.logDecision(ctx, p.logger, logging.DecisionEntry{
		RunID:        "rollback",
		VersionID:    versionID,
		Decision:     logging.DecisionRollback,
		TrainedScore: v.Score,
		Reason:       "restored " + v.VersionKey,
	})
	p.logger.Info("rolled back", zap.String("version_id", versionID))
	return v, nil
}

// #endregion

// #region decision-log

// encodeMetrics renders evaluation metrics for the registry and decision
// log. Non-finite values cannot be encoded and fail the run.
func encodeMetrics(ms []evaluation.Metric) (string, error) {
	buf, err := json.Marshal(ms)
	if err != nil {
		return "", fmt.Errorf("encode metrics: %w", err)
	}
	return string(buf), nil
}


func (p *Pipeline) logDecision(ctx context.Context, log *zap.Logger, entry logging.DecisionEntry) {
	if p.deps.Registry == nil {
		return
	}
	if err := logging.LogDecision(ctx, p.deps.Registry.DB(), entry); err != nil {
		log.Warn("decision not logged", zap.String("decision", entry.Decision), zap.Error(err))
	}
}

// #endregion
