package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoInvalidScore VetoType = "invalid_score"
	VetoBelowFloor   VetoType = "below_floor"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds thresholds for promotion decisions.
type GateConfig struct {
	ChangedThreshold float64 // trained must beat best by more than this
	MinScore         float64 // hard floor on the trained score
}

// DefaultGateConfig accepts any strict improvement over production.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ChangedThreshold: 0,
		MinScore:         0,
	}
}

// #endregion gate-config

// #region candidate
// Candidate pairs the trained model's score with the production score.
// BestScore is nil when no production model exists.
type Candidate struct {
	TrainedScore float64
	BestScore    *float64
}

// #endregion candidate

// #region gate-decision
// Action is the outcome of a gate evaluation.
type Action string

const (
	ActionPromote Action = "promote"
	ActionReject  Action = "reject"
)

// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      Action
	Reason      string
	Accepted    bool
	Delta       float64 // trained - best, best is 0 without production
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
}

// #endregion gate-decision
