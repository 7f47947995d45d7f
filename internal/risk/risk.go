package risk

import (
	"math"
)

// #region logistic
// Sigmoid maps log-odds to a probability in the open interval (0,1)
// for finite inputs of moderate magnitude.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Logit maps a probability to log-odds. Only defined on (0,1).
func Logit(p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return math.NaN(), newDomainError(KindDegenerateProbability, "p", p, "log-odds undefined outside (0,1)")
	}
	return math.Log(p / (1 - p)), nil
}

// LogitTarget converts a target risk quantile in percent to log-odds.
// τ must lie strictly inside (0,100).
func LogitTarget(percent float64) (float64, error) {
	if !(percent > 0 && percent < 100) {
		return math.NaN(), newDomainError(KindInvalidRiskTarget, "target_pct", percent, "target risk must lie in (0,100)")
	}
	p := percent / 100.0
	return math.Log(p / (1 - p)), nil
}

// #endregion logistic

// #region hypotension
// HypotensionLinear returns γ0 + offset + Σ weight·covariate, excluding the rate term.
func HypotensionLinear(h HypotensionCoefficients, cov Covariates, offset float64) float64 {
	return h.Intercept + offset +
		h.MedsRecent*indicator(cov.MedsRecent) +
		h.TMPSlope*cov.TMPSlope +
		h.VPTrend*cov.VPTrend +
		h.AgeOver60Decade*cov.AgeOver60Decades +
		h.Diabetes*indicator(cov.Diabetes) +
		h.PressureDelta*cov.PressureDelta +
		h.SevereAS*indicator(cov.SevereAS) +
		h.SevereMR*indicator(cov.SevereMR)
}

// HypotensionRisk is the model probability of hypotension at a given UF rate.
func HypotensionRisk(h HypotensionCoefficients, cov Covariates, rate, offset float64) float64 {
	return Sigmoid(HypotensionLinear(h, cov, offset) + h.Rate*rate)
}

// SolveRate inverts the hypotension model for the largest rate whose risk
// equals the τ quantile, then bounds it to [RateMin, RateMax].
// With γ1 = 0 the rate is undetermined: Raw and Bounded are NaN and
// ErrZeroRateSensitivity is returned.
func SolveRate(h HypotensionCoefficients, b SafetyBounds, cov Covariates, tauPercent, offset float64) (RateSolution, error) {
	logitTau, err := LogitTarget(tauPercent)
	if err != nil {
		return RateSolution{LogitTau: logitTau, Raw: math.NaN(), Bounded: math.NaN()}, err
	}
	sol := RateSolution{
		LogitTau: logitTau,
		Linear:   HypotensionLinear(h, cov, offset),
	}
	if h.Rate == 0 {
		sol.Raw = math.NaN()
		sol.Bounded = math.NaN()
		return sol, newDomainError(KindZeroRateSensitivity, "gamma1", h.Rate, "rate cannot be determined")
	}
	sol.Raw = (logitTau - sol.Linear) / h.Rate
	sol.Bounded = Clamp(sol.Raw, b.RateMin, b.RateMax)
	return sol, nil
}

// #endregion hypotension

// #region overhydration
// OverhydrationLinear is the overhydration linear predictor. Residual urine
// (mL/day converted to L/day) is subtracted.
func OverhydrationLinear(o OverhydrationCoefficients, cov Covariates) float64 {
	return o.Intercept +
		o.OHPerLiter*cov.OverhydrationL +
		o.Dyspnea*indicator(cov.Dyspnea) +
		o.Edema*indicator(cov.Edema) +
		o.LowEF*indicator(cov.LowEF) +
		o.Arrhythmia*indicator(cov.ArrhythmiaAny) +
		o.Diabetes*indicator(cov.Diabetes) +
		o.SevereMR*indicator(cov.SevereMR) -
		o.UrinePerLiter*cov.ResidualUrineL
}

// OverhydrationRisk is sigmoid of the overhydration linear predictor.
func OverhydrationRisk(o OverhydrationCoefficients, cov Covariates) float64 {
	return Sigmoid(OverhydrationLinear(o, cov))
}

// #endregion overhydration

// #region helpers
// Clamp bounds x to [lo, hi]. NaN passes through.
func Clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
