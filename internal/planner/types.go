package planner

import (
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/signals"
)

// #region config
// Config is the read-only model configuration shared by all sessions.
// It is passed by value so a caller's later changes never reach a running computation.
type Config struct {
	Coefficients risk.Coefficients
	Bounds       risk.SafetyBounds
	Producer     signals.ProducerConfig
}

// DefaultConfig returns the unit defaults.
func DefaultConfig() Config {
	return Config{
		Coefficients: risk.DefaultCoefficients(),
		Bounds:       risk.DefaultSafetyBounds(),
		Producer:     signals.DefaultProducerConfig(),
	}
}

// #endregion config

// #region safe-rate
// SafeRate is the guarded maximum UF rate for a session.
type SafeRate struct {
	Solution   risk.RateSolution
	Final      float64 // Solution.Bounded × guard multiplier
	Guard      gate.GuardDecision
	Covariates risk.Covariates
}

// #endregion safe-rate

// #region balance
// Balance is the fluid arithmetic for one session, in litres.
type Balance struct {
	UFCap         float64 `json:"UF_cap_L"`
	UFNeeded      float64 `json:"UF_needed_L"`
	UFRecommended float64 `json:"UF_recommended_L"`
	UFDeficit     float64 `json:"UF_deficit_L"`
}

// Extension is the time needed to clear a deficit at the safe rate.
type Extension struct {
	ExtraMinutesRaw         float64 `json:"extra_minutes_raw"`
	ExtraMinutes            int     `json:"extra_minutes"`
	RecommendedTotalMinutes int     `json:"recommended_total_minutes"`
}

// #endregion balance

// #region plan-result
// PlanResult is the full recommendation for one session. Recomputed on every call.
type PlanResult struct {
	SafeRate    float64 `json:"r_max_dyn"`
	RateRaw     float64 `json:"r_raw"`
	RateBounded float64 `json:"r_bounded"`
	BiasOffset  float64 `json:"gamma0_offset"`

	Balance

	HypotensionGuardTriggered bool               `json:"guard_hit"`
	Guard                     gate.GuardDecision `json:"guard"`

	OverhydrationRisk        float64 `json:"P_overhydration_risk"`
	OverhydrationAboveTarget bool    `json:"overhydration_above_target"`

	Extension
	// ExtensionPrioritized is set when overhydration is above target and a
	// deficit exists: extend the session rather than raise the rate.
	ExtensionPrioritized bool `json:"extension_prioritized"`

	Alerts []string `json:"alerts"`
	Notes  []string `json:"notes,omitempty"`

	Covariates risk.Covariates `json:"covariates"`
}

// #endregion plan-result
