package config

// File is the on-disk configuration. Every section has defaults, so an
// empty or partial file is valid.
type File struct {
	Targets       TargetsSection       `mapstructure:"targets" toml:"targets" json:"targets"`
	Hypotension   HypotensionSection   `mapstructure:"hypotension" toml:"hypotension" json:"hypotension"`
	Overhydration OverhydrationSection `mapstructure:"overhydration" toml:"overhydration" json:"overhydration"`
	Bounds        BoundsSection        `mapstructure:"bounds" toml:"bounds" json:"bounds"`
	Signals       SignalsSection       `mapstructure:"signals" toml:"signals" json:"signals"`
	Learning      LearningSection      `mapstructure:"learning" toml:"learning" json:"learning"`
	Eval          EvalSection          `mapstructure:"eval" toml:"eval" json:"eval"`
	Storage       StorageSection       `mapstructure:"storage" toml:"storage" json:"storage"`
	Server        ServerSection        `mapstructure:"server" toml:"server" json:"server"`
}

// TargetsSection holds the default target risk quantiles, in percent, for
// sessions that do not carry their own.
type TargetsSection struct {
	TauPercent   float64 `mapstructure:"tau" toml:"tau" json:"tau"`
	OmegaPercent float64 `mapstructure:"omega" toml:"omega" json:"omega"`
}

// HypotensionSection holds the intradialytic hypotension model weights.
type HypotensionSection struct {
	Gamma0          float64 `mapstructure:"gamma0" toml:"gamma0" json:"gamma0"`
	Gamma1          float64 `mapstructure:"gamma1" toml:"gamma1" json:"gamma1"`
	MedsRecent      float64 `mapstructure:"meds_recent" toml:"meds_recent" json:"meds_recent"`
	TMPSlope        float64 `mapstructure:"tmp_slope" toml:"tmp_slope" json:"tmp_slope"`
	VPTrend         float64 `mapstructure:"vp_trend" toml:"vp_trend" json:"vp_trend"`
	AgeOver60Decade float64 `mapstructure:"age_over60_dec" toml:"age_over60_dec" json:"age_over60_dec"`
	Diabetes        float64 `mapstructure:"dm" toml:"dm" json:"dm"`
	PressureDelta   float64 `mapstructure:"press" toml:"press" json:"press"`
	SevereAS        float64 `mapstructure:"severe_as" toml:"severe_as" json:"severe_as"`
	SevereMR        float64 `mapstructure:"severe_mr" toml:"severe_mr" json:"severe_mr"`
}

// OverhydrationSection holds the overhydration model weights.
type OverhydrationSection struct {
	Beta0      float64 `mapstructure:"beta0" toml:"beta0" json:"beta0"`
	OH         float64 `mapstructure:"oh" toml:"oh" json:"oh"`
	Dyspnea    float64 `mapstructure:"dyspnea" toml:"dyspnea" json:"dyspnea"`
	Edema      float64 `mapstructure:"edema" toml:"edema" json:"edema"`
	LowEF      float64 `mapstructure:"low_ef" toml:"low_ef" json:"low_ef"`
	Arrhythmia float64 `mapstructure:"af" toml:"af" json:"af"`
	Diabetes   float64 `mapstructure:"dm" toml:"dm" json:"dm"`
	SevereMR   float64 `mapstructure:"severe_mr" toml:"severe_mr" json:"severe_mr"`
	Urine      float64 `mapstructure:"urine" toml:"urine" json:"urine"`
}

// BoundsSection holds the safety envelope.
type BoundsSection struct {
	RateMin            float64 `mapstructure:"r_min" toml:"r_min" json:"r_min"`
	RateMax            float64 `mapstructure:"r_max" toml:"r_max" json:"r_max"`
	TMPSlopeThreshold  float64 `mapstructure:"tmp_slope_thr" toml:"tmp_slope_thr" json:"tmp_slope_thr"`
	VPTrendThreshold   float64 `mapstructure:"vp_trend_thr" toml:"vp_trend_thr" json:"vp_trend_thr"`
	BPDropThresholdPct float64 `mapstructure:"bp_drop_thr" toml:"bp_drop_thr" json:"bp_drop_thr"`
	SafetyMultiplier   float64 `mapstructure:"safety_mult" toml:"safety_mult" json:"safety_mult"`
	RoundStepMinutes   int     `mapstructure:"round_step_min" toml:"round_step_min" json:"round_step_min"`
}

// SignalsSection holds covariate derivation constants.
type SignalsSection struct {
	HoursFloor   float64 `mapstructure:"hours_floor" toml:"hours_floor" json:"hours_floor"`
	LowEFPercent float64 `mapstructure:"low_ef_percent" toml:"low_ef_percent" json:"low_ef_percent"`
}

// LearningSection holds the learning-loop parameters.
type LearningSection struct {
	Alpha float64 `mapstructure:"alpha" toml:"alpha" json:"alpha"`
}

// EvalSection holds post-computation validation thresholds.
type EvalSection struct {
	Tolerance          float64 `mapstructure:"tolerance" toml:"tolerance" json:"tolerance"`
	MaxOffsetMagnitude float64 `mapstructure:"max_offset" toml:"max_offset" json:"max_offset"`
}

// StorageSection locates the SQLite database.
type StorageSection struct {
	DB string `mapstructure:"db" toml:"db" json:"db"`
}

// ServerSection configures the gRPC listener.
type ServerSection struct {
	Addr string `mapstructure:"addr" toml:"addr" json:"addr"`
}
