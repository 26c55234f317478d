package app

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/config"
	"github.com/danielpatrickdp/churn-service/internal/estimator"
	"github.com/danielpatrickdp/churn-service/internal/events"
	"github.com/danielpatrickdp/churn-service/internal/gate"
	"github.com/danielpatrickdp/churn-service/internal/ingestion"
	"github.com/danielpatrickdp/churn-service/internal/metrics"
	"github.com/danielpatrickdp/churn-service/internal/model"
	"github.com/danielpatrickdp/churn-service/internal/orchestrator"
	"github.com/danielpatrickdp/churn-service/internal/prediction"
	"github.com/danielpatrickdp/churn-service/internal/registry"
	"github.com/danielpatrickdp/churn-service/internal/schema"
	"github.com/danielpatrickdp/churn-service/internal/storage"
)

// #endregion

// App is every long-lived component of the service, built from config.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Schema     *schema.Schema
	Store      storage.BlobStore
	Registry   *registry.Registry
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
	Pipeline   *orchestrator.Pipeline
	Prediction *prediction.Pipeline
}

// #region build

// Build wires the components. The caller owns Close.
func Build(cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	s := schema.Default()
	if cfg.SchemaPath != "" {
		var err error
		if s, err = schema.Load(cfg.SchemaPath); err != nil {
			return nil, err
		}
	}

	store, err := NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	m := metrics.New()
	train := model.DefaultTrainConfig()
	train.Seed = cfg.TrainSeed
	train.Epochs = cfg.TrainEpochs

	pipeline := orchestrator.New(orchestrator.Config{
		Enabled:       cfg.PipelineEnabled,
		ArtifactDir:   cfg.ArtifactDir,
		ModelKey:      cfg.ModelKey,
		TestSize:      cfg.TestSize,
		SplitSeed:     cfg.SplitSeed,
		ExpectedScore: cfg.ExpectedScore,
		Train:         train,
		Gate: gate.GateConfig{
			ChangedThreshold: cfg.ChangedThreshold,
		},
	}, orchestrator.Deps{
		Schema:    s,
		Source:    NewSource(cfg),
		Store:     store,
		Registry:  reg,
		Publisher: pub,
		Metrics:   m,
		Logger:    logger,
	})

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Schema:    s,
		Store:     store,
		Registry:  reg,
		Publisher: pub,
		Metrics:   m,
		Pipeline:  pipeline,
	}

	ctx := context.Background()
	active, err := reg.ActiveVersion(ctx)
	if err != nil {
		reg.Close()
		return nil, err
	}
	current, err := a.openVersion(ctx, active)
	if err != nil {
		reg.Close()
		return nil, err
	}
	a.Prediction = prediction.NewPipeline(s, current)
	a.Prediction.Follow(reg, active, a.openVersion)
	return a, nil
}

// openVersion returns an estimator over the blob a registry version was
// promoted with. Without an active version it reads the production key.
func (a *App) openVersion(ctx context.Context, versionID string) (prediction.Predictor, error) {
	if versionID == "" {
		return estimator.New(a.Store, a.Config.ModelKey), nil
	}
	v, err := a.Registry.Version(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return estimator.New(a.Store, v.VersionKey), nil
}

// #endregion

// #region factories

// NewStore returns the configured model store wrapped in bounded retries.
func NewStore(cfg config.Config, logger *zap.Logger) (storage.BlobStore, error) {
	var inner storage.BlobStore
	switch cfg.ModelStore {
	case "s3":
		s3, err := storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKey,
			SecretAccessKey: cfg.AWSSecretKey,
			UsePathStyle:    cfg.S3PathStyle,
			MaxAttempts:     1,
		})
		if err != nil {
			return nil, err
		}
		inner = s3
	case "file":
		inner = storage.NewFileStore(cfg.ModelStoreDir)
	default:
		return nil, fmt.Errorf("unknown model store %q", cfg.ModelStore)
	}
	rc := storage.DefaultRetryConfig()
	rc.AttemptTimeout = cfg.StoreTimeout
	rc.MaxRetries = cfg.StoreMaxRetries
	return storage.NewRetrying(inner, rc, logger), nil
}

// NewSource returns the configured ingestion source.
func NewSource(cfg config.Config) ingestion.Source {
	if cfg.Source == "postgres" {
		return ingestion.PostgresSource{DSN: cfg.PostgresDSN, Table: cfg.PostgresTable}
	}
	return ingestion.CSVSource{Path: cfg.SourceCSV}
}

// #endregion

// #region lifecycle

// Close releases the publisher and the registry.
func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Registry.Close())
}

// Train runs the pipeline once. Predictions pick up a promotion through
// the registry on their next request.
func (a *App) Train(ctx context.Context) (orchestrator.RunResult, error) {
	return a.Pipeline.Run(ctx)
}

// #endregion
