package gate

// #region trigger-type
// TriggerType enumerates guard trigger categories.
type TriggerType string

const (
	TriggerTMPSlope TriggerType = "tmp_slope"
	TriggerVPTrend  TriggerType = "vp_trend"
	TriggerBPDrop   TriggerType = "bp_drop"
	TriggerSymptoms TriggerType = "symptoms"
)

// #endregion trigger-type

// #region trigger
// Trigger is one fired guard condition.
type Trigger struct {
	Type      TriggerType `json:"type"`
	Value     float64     `json:"value"`
	Threshold float64     `json:"threshold"`
	Reason    string      `json:"reason"`
}

// #endregion trigger

// #region guard-config
// GuardConfig holds the trigger thresholds and the derate applied when any fires.
type GuardConfig struct {
	TMPSlopeThreshold  float64 // mmHg/h, strict >
	VPTrendThreshold   float64 // mmHg/h, strict >
	BPDropThresholdPct float64 // %, >=
	SafetyMultiplier   float64 // (0,1]
}

// DefaultGuardConfig returns the unit defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		TMPSlopeThreshold:  2.0,
		VPTrendThreshold:   1.5,
		BPDropThresholdPct: 20.0,
		SafetyMultiplier:   0.85,
	}
}

// #endregion guard-config

// #region guard-decision
// GuardDecision is the output of a guard evaluation.
type GuardDecision struct {
	Fired      bool      `json:"fired"`
	Triggers   []Trigger `json:"triggers,omitempty"`
	Multiplier float64   `json:"multiplier"` // SafetyMultiplier if fired, else 1
	Reason     string    `json:"reason"`
}

// Apply derates rate by the decision multiplier. Never increases it.
func (d GuardDecision) Apply(rate float64) float64 {
	if d.Multiplier <= 0 || d.Multiplier >= 1 {
		return rate
	}
	return rate * d.Multiplier
}

// #endregion guard-decision
