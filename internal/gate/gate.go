package gate

import (
	"fmt"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
)

// #region guard
// Guard evaluates the dynamic safety triggers for a session.
type Guard struct {
	config GuardConfig
}

// NewGuard creates a guard with the given configuration.
func NewGuard(config GuardConfig) *Guard {
	return &Guard{config: config}
}

// FromBounds builds a guard from the thresholds carried in SafetyBounds.
func FromBounds(b risk.SafetyBounds) *Guard {
	return NewGuard(GuardConfig{
		TMPSlopeThreshold:  b.TMPSlopeThreshold,
		VPTrendThreshold:   b.VPTrendThreshold,
		BPDropThresholdPct: b.BPDropThresholdPct,
		SafetyMultiplier:   b.SafetyMultiplier,
	})
}

// Evaluate checks every trigger and collects all that fire.
func (g *Guard) Evaluate(cov risk.Covariates) GuardDecision {
	var triggers []Trigger

	if cov.TMPSlope > g.config.TMPSlopeThreshold {
		triggers = append(triggers, Trigger{
			Type:      TriggerTMPSlope,
			Value:     cov.TMPSlope,
			Threshold: g.config.TMPSlopeThreshold,
			Reason:    fmt.Sprintf("TMP slope %.2f mmHg/h exceeds %.2f", cov.TMPSlope, g.config.TMPSlopeThreshold),
		})
	}

	if cov.VPTrend > g.config.VPTrendThreshold {
		triggers = append(triggers, Trigger{
			Type:      TriggerVPTrend,
			Value:     cov.VPTrend,
			Threshold: g.config.VPTrendThreshold,
			Reason:    fmt.Sprintf("VP trend %.2f mmHg/h exceeds %.2f", cov.VPTrend, g.config.VPTrendThreshold),
		})
	}

	if cov.BPDropPct >= g.config.BPDropThresholdPct {
		triggers = append(triggers, Trigger{
			Type:      TriggerBPDrop,
			Value:     cov.BPDropPct,
			Threshold: g.config.BPDropThresholdPct,
			Reason:    fmt.Sprintf("SBP drop %.1f%% at or above %.0f%%", cov.BPDropPct, g.config.BPDropThresholdPct),
		})
	}

	if cov.SymptomsAny {
		triggers = append(triggers, Trigger{
			Type:   TriggerSymptoms,
			Value:  1,
			Reason: "hypotension symptoms reported",
		})
	}

	if len(triggers) == 0 {
		return GuardDecision{
			Fired:      false,
			Multiplier: 1,
			Reason:     "no guard triggers",
		}
	}

	return GuardDecision{
		Fired:      true,
		Triggers:   triggers,
		Multiplier: g.config.SafetyMultiplier,
		Reason:     fmt.Sprintf("guard: %s", triggers[0].Reason),
	}
}

// Has reports whether a trigger of the given type fired.
func (d GuardDecision) Has(t TriggerType) bool {
	for _, tr := range d.Triggers {
		if tr.Type == t {
			return true
		}
	}
	return false
}

// #endregion guard
