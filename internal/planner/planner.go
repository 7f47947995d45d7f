package planner

import (
	"math"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/signals"
)

// deficitEpsilon absorbs floating-point residue when cap and need coincide.
const deficitEpsilon = 1e-9

// #region solve-safe-rate
// SolveSafeRate derives covariates, inverts the hypotension model at the τ
// quantile, bounds the result and applies the guard derate.
func SolveSafeRate(cfg Config, in risk.SessionInputs, tauPercent, offset float64) (SafeRate, error) {
	if err := cfg.Bounds.Validate(); err != nil {
		return SafeRate{}, err
	}
	if err := in.ValidateDivisors(); err != nil {
		return SafeRate{}, err
	}

	cov := signals.NewProducer(cfg.Producer).Produce(in)
	guard := gate.FromBounds(cfg.Bounds).Evaluate(cov)

	sol, err := risk.SolveRate(cfg.Coefficients.Hypotension, cfg.Bounds, cov, tauPercent, offset)
	if err != nil {
		return SafeRate{Solution: sol, Final: math.NaN(), Guard: guard, Covariates: cov}, err
	}

	return SafeRate{
		Solution:   sol,
		Final:      guard.Apply(sol.Bounded),
		Guard:      guard,
		Covariates: cov,
	}, nil
}

// #endregion solve-safe-rate

// #region compute-plan
// ComputePlan converts a safe rate into a session UF cap and balances it
// against the fluid that must be removed. UFNeeded may be negative.
func ComputePlan(safeRate, durationMinutes, weight, idwg, intakeL, rinsebackL, ivL float64) (Balance, error) {
	if !(weight > 0) {
		return Balance{}, risk.NewDomainError(risk.KindNonPositiveDivisor, "weight", weight, "weight must be positive")
	}
	if !(durationMinutes > 0) {
		return Balance{}, risk.NewDomainError(risk.KindNonPositiveDivisor, "duration_min", durationMinutes, "duration must be positive")
	}

	capL := UFCap(safeRate, durationMinutes, weight)
	needed := idwg + intakeL - rinsebackL - ivL
	recommended := math.Min(capL, needed)
	deficit := math.Max(0, needed-recommended)
	if deficit < deficitEpsilon {
		deficit = 0
	}

	return Balance{
		UFCap:         capL,
		UFNeeded:      needed,
		UFRecommended: recommended,
		UFDeficit:     deficit,
	}, nil
}

// UFCap is the volume in litres removable at rate mL/kg/h over the duration.
func UFCap(rate, durationMinutes, weight float64) float64 {
	return rate * (durationMinutes / 60.0) * weight / 1000.0
}

// #endregion compute-plan

// #region extension
// RecommendExtension returns the extra minutes needed to remove the deficit at
// the safe rate, rounded up to roundStep. It never rounds down.
func RecommendExtension(deficitL, safeRate, weight float64, roundStep int, plannedMinutes float64) Extension {
	if roundStep < 1 {
		roundStep = 1
	}
	var raw float64
	if deficitL > 0 && safeRate > 0 && weight > 0 {
		raw = deficitL * 1000.0 / (safeRate * weight) * 60.0
	}

	ext := Extension{
		ExtraMinutesRaw:         raw,
		RecommendedTotalMinutes: RoundUp(plannedMinutes+raw, roundStep),
	}
	if raw > 0 {
		ext.ExtraMinutes = RoundUp(raw, roundStep)
	}
	return ext
}

// MaxRoundedMinutes bounds RoundUp; anything longer than a week is not a
// session length.
const MaxRoundedMinutes = 7 * 24 * 60

// RoundUp rounds x up to the next multiple of step, saturating at
// ±MaxRoundedMinutes. NaN rounds to 0.
func RoundUp(x float64, step int) int {
	if step < 1 {
		step = 1
	}
	if math.IsNaN(x) {
		return 0
	}
	s := float64(step)
	n := math.Ceil(x / s)
	limit := math.Floor(MaxRoundedMinutes / s)
	if n > limit {
		n = limit
	} else if n < -limit {
		n = -limit
	}
	return int(n) * step
}

// #endregion extension
