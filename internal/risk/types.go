package risk

import "time"

// #region coefficients
// HypotensionCoefficients holds the intradialytic hypotension logistic model:
// intercept, UF-rate sensitivity, and eight covariate weights.
type HypotensionCoefficients struct {
	Intercept       float64 `json:"gamma0"`  // γ0
	Rate            float64 `json:"gamma1"`  // γ1, per mL/kg/h
	MedsRecent      float64 `json:"g_meds"`  // antihypertensives within 6h
	TMPSlope        float64 `json:"g_tmp"`   // per mmHg/h
	VPTrend         float64 `json:"g_vp"`    // per mmHg/h
	AgeOver60Decade float64 `json:"g_age"`   // per decade above 60
	Diabetes        float64 `json:"g_dm"`    // DM=1
	PressureDelta   float64 `json:"g_press"` // per 10 hPa atmospheric drop
	SevereAS        float64 `json:"g_as"`
	SevereMR        float64 `json:"g_mr"`
}

// OverhydrationCoefficients holds the overhydration logistic model.
// UrinePerLiter is protective and is subtracted from the linear predictor.
type OverhydrationCoefficients struct {
	Intercept     float64 `json:"beta0"`
	OHPerLiter    float64 `json:"b_oh"`
	Dyspnea       float64 `json:"b_dyspnea"`
	Edema         float64 `json:"b_edema"`
	LowEF         float64 `json:"b_low_ef"`
	Arrhythmia    float64 `json:"b_af"`
	Diabetes      float64 `json:"b_dm"`
	SevereMR      float64 `json:"b_mr"`
	UrinePerLiter float64 `json:"b_urine"`
}

// Coefficients bundles both models. Passed by value; the engine never mutates it.
type Coefficients struct {
	Hypotension   HypotensionCoefficients   `json:"hypotension"`
	Overhydration OverhydrationCoefficients `json:"overhydration"`
}

// DefaultCoefficients returns the unit defaults used when no config is supplied.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Hypotension: HypotensionCoefficients{
			Intercept:       -2.6,
			Rate:            0.10,
			MedsRecent:      0.25,
			TMPSlope:        0.10,
			VPTrend:         0.08,
			AgeOver60Decade: 0.12,
			Diabetes:        0.15,
			PressureDelta:   0.07,
			SevereAS:        0.40,
			SevereMR:        0.05,
		},
		Overhydration: OverhydrationCoefficients{
			Intercept:     -2.2,
			OHPerLiter:    0.55,
			Dyspnea:       0.70,
			Edema:         0.35,
			LowEF:         0.40,
			Arrhythmia:    0.30,
			Diabetes:      0.12,
			SevereMR:      0.25,
			UrinePerLiter: 0.35,
		},
	}
}

// #endregion coefficients

// #region safety-bounds
// SafetyBounds holds the rate limits and guard thresholds.
type SafetyBounds struct {
	RateMin            float64 `json:"r_min"` // mL/kg/h
	RateMax            float64 `json:"r_max"` // mL/kg/h
	TMPSlopeThreshold  float64 `json:"tmp_slope_threshold"`
	VPTrendThreshold   float64 `json:"vp_trend_threshold"`
	BPDropThresholdPct float64 `json:"bp_drop_threshold_pct"`
	SafetyMultiplier   float64 `json:"safety_multiplier"`
	RoundStepMinutes   int     `json:"round_step_minutes"`
}

// DefaultSafetyBounds returns the unit defaults.
func DefaultSafetyBounds() SafetyBounds {
	return SafetyBounds{
		RateMin:            0.5,
		RateMax:            13.0,
		TMPSlopeThreshold:  2.0,
		VPTrendThreshold:   1.5,
		BPDropThresholdPct: 20.0,
		SafetyMultiplier:   0.85,
		RoundStepMinutes:   5,
	}
}

// Validate checks 0 < rateMin <= rateMax, multiplier in (0,1] and a positive round step.
func (b SafetyBounds) Validate() error {
	if !(b.RateMin > 0) {
		return newDomainError(KindInvalidBounds, "r_min", b.RateMin, "r_min must be positive")
	}
	if b.RateMin > b.RateMax {
		return newDomainError(KindInvalidBounds, "r_min", b.RateMin, "r_min exceeds r_max")
	}
	if !(b.SafetyMultiplier > 0 && b.SafetyMultiplier <= 1) {
		return newDomainError(KindInvalidBounds, "safety_multiplier", b.SafetyMultiplier, "must lie in (0,1]")
	}
	if b.RoundStepMinutes < 1 {
		return newDomainError(KindInvalidBounds, "round_step_minutes", float64(b.RoundStepMinutes), "must be at least 1")
	}
	return nil
}

// #endregion safety-bounds

// #region session-inputs
// Symptoms are the intradialytic hypotension symptom flags.
type Symptoms struct {
	Headache bool `json:"headache"`
	Cramps   bool `json:"cramps"`
	GI       bool `json:"GI"`
	Syncope  bool `json:"syncope"`
}

// Any reports whether at least one symptom is present.
func (s Symptoms) Any() bool {
	return s.Headache || s.Cramps || s.GI || s.Syncope
}

// Dialysate records the prescribed bath. Informational; no model term uses it.
type Dialysate struct {
	Na   float64 `json:"Na"`   // mEq/L
	HCO3 float64 `json:"HCO3"` // mEq/L
	Cond float64 `json:"cond"` // mS/cm
	K    float64 `json:"K"`    // mmol/L
	Ca   float64 `json:"Ca"`   // mmol/L
}

// SessionInputs is the flat record of one planned session.
// JSON names follow the session snapshot contract.
type SessionInputs struct {
	PatientID string    `json:"patient_id"`
	SessionAt time.Time `json:"session_dt"`

	Age             float64 `json:"age"`
	Weight          float64 `json:"weight"`       // kg
	DurationMinutes float64 `json:"duration_min"` // planned

	IDWG       float64 `json:"idwg"` // kg ~ L
	IntakeL    float64 `json:"intake_L"`
	RinsebackL float64 `json:"rinseback_L"`
	IVL        float64 `json:"iv_L"`

	MedsRecent         bool    `json:"meds_recent"`
	Diabetes           bool    `json:"dm"`
	PressureDelta10hPa float64 `json:"dP_atm_10hPa"`

	SBPPre   float64  `json:"sbp_pre"`
	SBPPost  float64  `json:"sbp_post"`
	DBPPre   float64  `json:"dbp_pre"`
	DBPPost  float64  `json:"dbp_post"`
	Symptoms Symptoms `json:"symptoms"`

	EFPercent  float64 `json:"ef_percent"`
	Arrhythmia bool    `json:"arrhythmia"`
	AFRecent   bool    `json:"af_recent"`

	TMPStart float64 `json:"tmp_start"`
	TMPEnd   float64 `json:"tmp_end"`
	VPStart  float64 `json:"vp_start"`
	VPEnd    float64 `json:"vp_end"`

	Dialysate Dialysate `json:"dialysate"`

	OverhydrationL        float64 `json:"OH_L"`
	Dyspnea               bool    `json:"dyspnea"`
	Edema                 bool    `json:"edema"`
	ChestSymptoms         bool    `json:"chest_symp"`
	ResidualUrineMLPerDay float64 `json:"residual_urine_mLd"`
	SevereAS              bool    `json:"severe_as"`
	SevereMR              bool    `json:"severe_mr"`

	TauPercent   float64 `json:"tau"`   // target hypotension risk, %
	OmegaPercent float64 `json:"omega"` // target overhydration risk, %
}

// ValidateDivisors rejects non-positive weight or duration before any
// rate or time derivation divides by them.
func (in SessionInputs) ValidateDivisors() error {
	if !(in.Weight > 0) {
		return newDomainError(KindNonPositiveDivisor, "weight", in.Weight, "weight must be positive")
	}
	if !(in.DurationMinutes > 0) {
		return newDomainError(KindNonPositiveDivisor, "duration_min", in.DurationMinutes, "duration must be positive")
	}
	return nil
}

// #endregion session-inputs

// #region covariates
// Covariates are the model-ready terms derived from SessionInputs.
type Covariates struct {
	Hours            float64 `json:"hours"`
	AgeOver60Decades float64 `json:"age_over60_dec"`
	TMPSlope         float64 `json:"tmp_slope"` // mmHg/h
	VPTrend          float64 `json:"vp_trend"`  // mmHg/h
	TMPPctChange     float64 `json:"tmp_pct"`
	VPPctChange      float64 `json:"vp_pct"`
	BPDropPct        float64 `json:"bp_drop_pct"`
	SymptomsAny      bool    `json:"hypo_symptoms_any"`

	MedsRecent    bool    `json:"meds_recent"`
	Diabetes      bool    `json:"dm"`
	PressureDelta float64 `json:"dP_atm_10hPa"`
	SevereAS      bool    `json:"severe_as"`
	SevereMR      bool    `json:"severe_mr"`

	OverhydrationL float64 `json:"OH_L"`
	Dyspnea        bool    `json:"dyspnea"`
	Edema          bool    `json:"edema"`
	LowEF          bool    `json:"low_ef"`
	ArrhythmiaAny  bool    `json:"arrhythmia_any"`
	ResidualUrineL float64 `json:"residual_urine_Ld"`
}

// #endregion covariates

// #region rate-solution
// RateSolution is the output of the inverse solve before any guard derate.
type RateSolution struct {
	LogitTau float64
	Linear   float64 // γ0 + offset + Σ weights, rate term excluded
	Raw      float64 // NaN when γ1 = 0
	Bounded  float64
}

// #endregion rate-solution
