package update

import (
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
)

// #region outcome
// Outcome is the observed result of the last session.
type Outcome int

const (
	OutcomeOK          Outcome = 0
	OutcomeHypotension Outcome = 1
)

func (o Outcome) String() string {
	if o == OutcomeHypotension {
		return "hypotension"
	}
	return "ok"
}

// #endregion outcome

// #region learning-state
// LearningState is the per-patient adaptive intercept correction.
type LearningState struct {
	BiasOffset float64 `json:"gamma0_offset"`
}

// #endregion learning-state

// #region decision
// Decision records what the update function decided.
type Decision struct {
	Action string // "commit" | "no_op"
	Reason string
}

// #endregion decision

// #region learn-config
// LearnConfig holds the learning-loop parameters.
type LearnConfig struct {
	Alpha float64 // learning rate in [0,1]
}

// DefaultLearnConfig returns the unit defaults.
func DefaultLearnConfig() LearnConfig {
	return LearnConfig{Alpha: 0.2}
}

const (
	// MaxNextRateRatio caps the next-session rate relative to the
	// zero-offset baseline, whatever the size of the learning step.
	MaxNextRateRatio = 1.15
	// AdverseTargetCap bounds the target probability after a hypotension.
	AdverseTargetCap = 0.8
)

// #endregion learn-config

// #region offset-update
// OffsetUpdate is the result of one learning step on the bias offset.
type OffsetUpdate struct {
	PriorOffset float64 `json:"gamma0_offset_current"`
	NewOffset   float64 `json:"gamma0_offset_updated"`
	POld        float64 `json:"p_old_last"`
	PTarget     float64 `json:"p_target"`
	DeltaLogit  float64 `json:"delta_logit"`
	Alpha       float64 `json:"alpha"`
	Decision    Decision
}

// #endregion offset-update

// #region actuals
// Trend carries forecast machine and hemodynamic observations used to
// evaluate the next-session guard instead of this session's values.
type Trend struct {
	TMPStart float64       `json:"tmp_start"`
	TMPEnd   float64       `json:"tmp_end"`
	VPStart  float64       `json:"vp_start"`
	VPEnd    float64       `json:"vp_end"`
	SBPPre   float64       `json:"sbp_pre"`
	SBPPost  float64       `json:"sbp_post"`
	Symptoms risk.Symptoms `json:"symptoms"`
}

// Actuals are the post-session observations.
type Actuals struct {
	UFActualTotalL    float64 `json:"UF_actual_total"`
	DurationActualMin float64 `json:"duration_actual_min"`
	Outcome           Outcome `json:"outcome_last"`
	// NextTrend overrides the guard source for the next-session rate.
	// Nil keeps this session's trend.
	NextTrend *Trend `json:"next_trend,omitempty"`
}

// #endregion actuals

// #region next-rate
// NextRate is the next-session rate with the learning cap applied.
type NextRate struct {
	Base       float64            `json:"r_bounded_base"`
	Next       float64            `json:"r_next_bounded"`
	Capped     float64            `json:"r_next_capped"`
	Final      float64            `json:"r_max_next_dyn"`
	CapApplied bool               `json:"cap_applied"`
	Guard      gate.GuardDecision `json:"guard_next"`
}

// #endregion next-rate

// #region learn-result
// LearnResult bundles everything returned by Learn.
type LearnResult struct {
	HasObservedRate bool         `json:"has_observed_rate"`
	UFActualNet     float64      `json:"UF_actual_net"`
	ObservedRate    float64      `json:"r_used_last"`
	Update          OffsetUpdate `json:"update"`
	State           LearningState
	Next            NextRate          `json:"next"`
	UFCapNext       float64           `json:"UF_cap_next_L"`
	UFNeededNext    float64           `json:"UF_needed_next_L"`
	UFDeficitNext   float64           `json:"UF_deficit_next_L"`
	Extension       planner.Extension `json:"extension"`
	Warnings        []string          `json:"warnings,omitempty"`
}

// #endregion learn-result
