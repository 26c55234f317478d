package orchestrator

// #region imports
import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/churn-service/internal/evaluation"
	"github.com/danielpatrickdp/churn-service/internal/gate"
	"github.com/danielpatrickdp/churn-service/internal/model"
	"github.com/danielpatrickdp/churn-service/internal/registry"
)

// #endregion

// #region stage

// Stage names one step of the training pipeline.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageValidate  Stage = "validate"
	StageTransform Stage = "transform"
	StageTrain     Stage = "train"
	StageEvaluate  Stage = "evaluate"
	StagePromote   Stage = "promote"
)

// #endregion

// #region state

// State is how far a run got.
type State string

const (
	StateDisabled    State = "DISABLED"
	StateIngested    State = "INGESTED"
	StateValidated   State = "VALIDATED"
	StateTransformed State = "TRANSFORMED"
	StateTrained     State = "TRAINED"
	StateEvaluated   State = "EVALUATED"
	StatePromoted    State = "PROMOTED"
	StateRejected    State = "REJECTED"
)

// #endregion

// #region errors

// ErrDisabled is returned by Run when the kill switch is off.
var ErrDisabled = errors.New("training pipeline disabled")

// StageError carries the stage that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// #endregion

// #region config

// Config holds the pipeline settings.
type Config struct {
	Enabled       bool
	ArtifactDir   string
	ModelKey      string
	TestSize      float64
	SplitSeed     uint64
	ExpectedScore float64
	Train         model.TrainConfig
	Gate          gate.GateConfig
}

// #endregion

// #region run-result

// RunResult summarizes one run. Evaluation is set once the evaluate stage
// finished; Version only after a promotion.
type RunResult struct {
	RunID       string
	State       State
	ArtifactDir string
	Metrics     model.Metrics
	Evaluation  *evaluation.Result
	Version     *registry.ModelVersion
	StartedAt   time.Time
	FinishedAt  time.Time
}

// #endregion
