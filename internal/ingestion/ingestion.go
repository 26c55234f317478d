package ingestion

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/churn-service/internal/frame"
)

// Ingestor exports the source table to the feature store and splits it
// into train and test files.
type Ingestor struct {
	source Source
	config Config
	logger *zap.Logger
}

// NewIngestor creates an ingestor. A zero TestSize uses DefaultTestSize.
func NewIngestor(source Source, config Config, logger *zap.Logger) *Ingestor {
	if config.TestSize == 0 {
		config.TestSize = DefaultTestSize
	}
	return &Ingestor{source: source, config: config, logger: logger.Named("ingestion")}
}

// Ingest runs the stage.
func (in *Ingestor) Ingest(ctx context.Context) (Artifact, error) {
	in.logger.Info("reading source", zap.String("source", in.source.Describe()))
	raw, err := in.source.Read(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("read source %s: %w", in.source.Describe(), err)
	}
	if err := frame.WriteCSVFile(in.config.FeatureStorePath, raw); err != nil {
		return Artifact{}, fmt.Errorf("write feature store: %w", err)
	}

	train, test, err := SplitTrainTest(raw, in.config.TestSize, in.config.Seed)
	if err != nil {
		return Artifact{}, err
	}
	if err := frame.WriteCSVFile(in.config.TrainPath, train); err != nil {
		return Artifact{}, fmt.Errorf("write train split: %w", err)
	}
	if err := frame.WriteCSVFile(in.config.TestPath, test); err != nil {
		return Artifact{}, fmt.Errorf("write test split: %w", err)
	}

	in.logger.Info("ingestion complete",
		zap.Int("rows", raw.Len()),
		zap.Int("train_rows", train.Len()),
		zap.Int("test_rows", test.Len()),
	)
	return Artifact{
		FeatureStorePath: in.config.FeatureStorePath,
		TrainPath:        in.config.TrainPath,
		TestPath:         in.config.TestPath,
		Rows:             raw.Len(),
	}, nil
}

// SplitTrainTest shuffles rows with a seeded generator and holds out
// ceil(n*testSize) of them for testing. Both splits keep at least one row.
func SplitTrainTest(f *frame.Frame, testSize float64, seed uint64) (train, test *frame.Frame, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %.3f outside (0,1)", testSize)
	}
	n := f.Len()
	if n < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", n)
	}
	nTest := int(math.Ceil(float64(n) * testSize))
	nTest = min(max(nTest, 1), n-1)

	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)
	return f.Take(perm[nTest:]), f.Take(perm[:nTest]), nil
}
