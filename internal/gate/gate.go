package gate

import (
	"fmt"
	"math"
)

// #region gate
// Gate decides whether a trained model replaces the production model.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks hard vetoes first, then compares against production.
// Without a production model the baseline is 0. A tie never promotes.
func (g *Gate) Evaluate(c Candidate) GateDecision {
	best := 0.0
	if c.BestScore != nil {
		best = *c.BestScore
	}
	delta := c.TrainedScore - best

	var vetoes []VetoSignal

	// --- Hard veto pass ---
	if math.IsNaN(c.TrainedScore) || math.IsInf(c.TrainedScore, 0) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInvalidScore,
			Reason: fmt.Sprintf("trained score %v is not finite", c.TrainedScore),
		})
	} else if c.TrainedScore < g.config.MinScore {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoBelowFloor,
			Reason: fmt.Sprintf("trained score %.4f below floor %.4f", c.TrainedScore, g.config.MinScore),
		})
	}
	if c.BestScore != nil && math.IsNaN(*c.BestScore) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInvalidScore,
			Reason: "production score is NaN",
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      ActionReject,
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Delta:       delta,
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	// --- Comparison ---
	if c.TrainedScore > best+g.config.ChangedThreshold {
		return GateDecision{
			Action:   ActionPromote,
			Reason:   fmt.Sprintf("trained %.4f beats best %.4f by %.4f", c.TrainedScore, best, delta),
			Accepted: true,
			Delta:    delta,
		}
	}
	return GateDecision{
		Action: ActionReject,
		Reason: fmt.Sprintf("trained %.4f does not beat best %.4f (threshold %.4f)", c.TrainedScore, best, g.config.ChangedThreshold),
		Delta:  delta,
	}
}

// #endregion gate
