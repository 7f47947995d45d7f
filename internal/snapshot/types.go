package snapshot

import "github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"

// SessionTimeLayout is the session_dt format used by exported snapshots.
const SessionTimeLayout = "2006-01-02 15:04"

// #region record
// Record is the exported session snapshot. Field names are a stable contract
// consumed by downstream tooling; learning fields are null when no
// post-session step ran.
type Record struct {
	SessionDT   string  `json:"session_dt"`
	PatientID   string  `json:"patient_id"`
	Age         float64 `json:"age"`
	Weight      float64 `json:"weight"`
	DurationMin float64 `json:"duration_min"`
	IDWG        float64 `json:"idwg"`
	IntakeL     float64 `json:"intake_L"`
	RinsebackL  float64 `json:"rinseback_L"`
	IVL         float64 `json:"iv_L"`

	MedsRecent    bool    `json:"meds_recent"`
	Diabetes      bool    `json:"dm"`
	PressureDelta float64 `json:"dP_atm_10hPa"`

	SBPPre    float64       `json:"sbp_pre"`
	SBPPost   float64       `json:"sbp_post"`
	BPDropPct float64       `json:"bp_drop_pct"`
	Symptoms  risk.Symptoms `json:"symptoms"`

	EFPercent  float64 `json:"ef_percent"`
	Arrhythmia bool    `json:"arrhythmia"`
	AFRecent   bool    `json:"af_recent"`

	TMPStart float64 `json:"tmp_start"`
	TMPEnd   float64 `json:"tmp_end"`
	TMPSlope float64 `json:"tmp_slope"`
	VPStart  float64 `json:"vp_start"`
	VPEnd    float64 `json:"vp_end"`
	VPTrend  float64 `json:"vp_trend"`

	Dialysate risk.Dialysate `json:"dialysate"`

	OverhydrationL        float64 `json:"OH_L"`
	Dyspnea               bool    `json:"dyspnea"`
	Edema                 bool    `json:"edema"`
	ChestSymptoms         bool    `json:"chest_symp"`
	ResidualUrineMLPerDay float64 `json:"residual_urine_mLd"`
	SevereAS              bool    `json:"severe_as"`
	SevereMR              bool    `json:"severe_mr"`

	Tau               float64 `json:"tau"`
	SafeRate          float64 `json:"r_max_dyn"`
	UFCap             float64 `json:"UF_cap_L"`
	UFNeeded          float64 `json:"UF_needed_L"`
	UFRecommended     float64 `json:"UF_recommended_L"`
	OverhydrationRisk float64 `json:"P_overhydration_risk"`

	UFActualTotal       *float64 `json:"UF_actual_total"`
	UFActualNet         *float64 `json:"UF_actual_net"`
	DurationActualMin   *float64 `json:"duration_actual_min"`
	RateUsedLast        *float64 `json:"r_used_last"`
	OutcomeLast         *int     `json:"outcome_last"`
	Alpha               *float64 `json:"alpha"`
	OffsetCurrent       float64  `json:"gamma0_offset_current"`
	OffsetUpdated       *float64 `json:"gamma0_offset_updated"`
	SafeRateNext        *float64 `json:"r_max_next_dyn"`
	UFCapNext           *float64 `json:"UF_cap_next_L"`
	ExtraMinutes        int      `json:"extra_minutes"`
	RecommendedTotalMin int      `json:"recommended_total_minutes"`
}

// #endregion record
