package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/eval"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/signals"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

const (
	envPrefix   = "UFPLAN"
	defaultType = "toml"
	fileMode    = 0o644
	dirMode     = 0o755
)

// Target defaults and the ranges offered to clinicians.
const (
	DefaultTauPercent   = 20.0
	DefaultOmegaPercent = 10.0
	MinTauPercent       = 1.0
	MaxTauPercent       = 80.0
	MinOmegaPercent     = 1.0
	MaxOmegaPercent     = 50.0
)

// #region defaults
// DefaultFile returns the configuration matching the engine defaults.
func DefaultFile() File {
	c := risk.DefaultCoefficients()
	b := risk.DefaultSafetyBounds()
	p := signals.DefaultProducerConfig()
	e := eval.DefaultEvalConfig()
	return File{
		Targets: TargetsSection{
			TauPercent:   DefaultTauPercent,
			OmegaPercent: DefaultOmegaPercent,
		},
		Hypotension: HypotensionSection{
			Gamma0:          c.Hypotension.Intercept,
			Gamma1:          c.Hypotension.Rate,
			MedsRecent:      c.Hypotension.MedsRecent,
			TMPSlope:        c.Hypotension.TMPSlope,
			VPTrend:         c.Hypotension.VPTrend,
			AgeOver60Decade: c.Hypotension.AgeOver60Decade,
			Diabetes:        c.Hypotension.Diabetes,
			PressureDelta:   c.Hypotension.PressureDelta,
			SevereAS:        c.Hypotension.SevereAS,
			SevereMR:        c.Hypotension.SevereMR,
		},
		Overhydration: OverhydrationSection{
			Beta0:      c.Overhydration.Intercept,
			OH:         c.Overhydration.OHPerLiter,
			Dyspnea:    c.Overhydration.Dyspnea,
			Edema:      c.Overhydration.Edema,
			LowEF:      c.Overhydration.LowEF,
			Arrhythmia: c.Overhydration.Arrhythmia,
			Diabetes:   c.Overhydration.Diabetes,
			SevereMR:   c.Overhydration.SevereMR,
			Urine:      c.Overhydration.UrinePerLiter,
		},
		Bounds: BoundsSection{
			RateMin:            b.RateMin,
			RateMax:            b.RateMax,
			TMPSlopeThreshold:  b.TMPSlopeThreshold,
			VPTrendThreshold:   b.VPTrendThreshold,
			BPDropThresholdPct: b.BPDropThresholdPct,
			SafetyMultiplier:   b.SafetyMultiplier,
			RoundStepMinutes:   b.RoundStepMinutes,
		},
		Signals: SignalsSection{
			HoursFloor:   p.HoursFloor,
			LowEFPercent: p.LowEFPercent,
		},
		Learning: LearningSection{Alpha: update.DefaultLearnConfig().Alpha},
		Eval: EvalSection{
			Tolerance:          e.Tolerance,
			MaxOffsetMagnitude: e.MaxOffsetMagnitude,
		},
		Storage: StorageSection{DB: "ufplan.db"},
		Server:  ServerSection{Addr: "localhost:50061"},
	}
}

// #endregion defaults

// #region load
// Load resolves configuration from defaults, then the optional file at path,
// then UFPLAN_* environment variables (e.g. UFPLAN_BOUNDS_R_MAX).
func Load(v *viper.Viper, path string) (File, error) {
	if v == nil {
		v = viper.New()
	}

	defaults, err := toml.Marshal(DefaultFile())
	if err != nil {
		return File{}, fmt.Errorf("encode defaults: %w", err)
	}
	v.SetConfigType(defaultType)
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return File{}, fmt.Errorf("read defaults: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			v.SetConfigType(ext)
		}
		if err := v.MergeInConfig(); err != nil {
			return File{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// #endregion load

// #region validate
// Validate rejects configurations the engine cannot run with.
func (f File) Validate() error {
	if t := f.Targets.TauPercent; !(t >= MinTauPercent && t <= MaxTauPercent) {
		return fmt.Errorf("targets: %w", risk.NewDomainError(risk.KindInvalidRiskTarget, "tau", t,
			fmt.Sprintf("default target must lie in [%g,%g]", MinTauPercent, MaxTauPercent)))
	}
	if o := f.Targets.OmegaPercent; !(o >= MinOmegaPercent && o <= MaxOmegaPercent) {
		return fmt.Errorf("targets: %w", risk.NewDomainError(risk.KindInvalidRiskTarget, "omega", o,
			fmt.Sprintf("default target must lie in [%g,%g]", MinOmegaPercent, MaxOmegaPercent)))
	}
	if err := f.PlannerConfig().Bounds.Validate(); err != nil {
		return fmt.Errorf("bounds: %w", err)
	}
	if !(f.Learning.Alpha >= 0 && f.Learning.Alpha <= 1) {
		return fmt.Errorf("learning: %w", risk.NewDomainError(risk.KindInvalidLearningRate, "alpha", f.Learning.Alpha, "learning rate must lie in [0,1]"))
	}
	if !(f.Signals.HoursFloor > 0) {
		return fmt.Errorf("signals: hours_floor must be positive, got %g", f.Signals.HoursFloor)
	}
	if !(f.Eval.Tolerance >= 0) || !(f.Eval.MaxOffsetMagnitude > 0) {
		return errors.New("eval: tolerance must be >= 0 and max_offset > 0")
	}
	return nil
}

// #endregion validate

// #region convert
// ApplyTargets fills a zero tau or omega on in with the configured default.
// Non-zero values, including out-of-range ones, are left for the engine to
// accept or reject.
func (f File) ApplyTargets(in risk.SessionInputs) risk.SessionInputs {
	if in.TauPercent == 0 {
		in.TauPercent = f.Targets.TauPercent
	}
	if in.OmegaPercent == 0 {
		in.OmegaPercent = f.Targets.OmegaPercent
	}
	return in
}

// PlannerConfig converts the file into engine configuration.
func (f File) PlannerConfig() planner.Config {
	h, o, b := f.Hypotension, f.Overhydration, f.Bounds
	producer := signals.DefaultProducerConfig()
	producer.HoursFloor = f.Signals.HoursFloor
	producer.LowEFPercent = f.Signals.LowEFPercent
	return planner.Config{
		Coefficients: risk.Coefficients{
			Hypotension: risk.HypotensionCoefficients{
				Intercept:       h.Gamma0,
				Rate:            h.Gamma1,
				MedsRecent:      h.MedsRecent,
				TMPSlope:        h.TMPSlope,
				VPTrend:         h.VPTrend,
				AgeOver60Decade: h.AgeOver60Decade,
				Diabetes:        h.Diabetes,
				PressureDelta:   h.PressureDelta,
				SevereAS:        h.SevereAS,
				SevereMR:        h.SevereMR,
			},
			Overhydration: risk.OverhydrationCoefficients{
				Intercept:     o.Beta0,
				OHPerLiter:    o.OH,
				Dyspnea:       o.Dyspnea,
				Edema:         o.Edema,
				LowEF:         o.LowEF,
				Arrhythmia:    o.Arrhythmia,
				Diabetes:      o.Diabetes,
				SevereMR:      o.SevereMR,
				UrinePerLiter: o.Urine,
			},
		},
		Bounds: risk.SafetyBounds{
			RateMin:            b.RateMin,
			RateMax:            b.RateMax,
			TMPSlopeThreshold:  b.TMPSlopeThreshold,
			VPTrendThreshold:   b.VPTrendThreshold,
			BPDropThresholdPct: b.BPDropThresholdPct,
			SafetyMultiplier:   b.SafetyMultiplier,
			RoundStepMinutes:   b.RoundStepMinutes,
		},
		Producer: producer,
	}
}

// LearnConfig returns the learning-loop parameters.
func (f File) LearnConfig() update.LearnConfig {
	return update.LearnConfig{Alpha: f.Learning.Alpha}
}

// EvalConfig returns the validation thresholds.
func (f File) EvalConfig() eval.EvalConfig {
	return eval.EvalConfig{
		Tolerance:          f.Eval.Tolerance,
		MaxOffsetMagnitude: f.Eval.MaxOffsetMagnitude,
	}
}

// #endregion convert

// #region write
// Encode renders f as TOML.
func Encode(f File) ([]byte, error) {
	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file is
// left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := Encode(DefaultFile())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// #endregion write
