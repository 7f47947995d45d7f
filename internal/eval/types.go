package eval

// #region eval-config
// EvalConfig holds thresholds for post-computation validation.
type EvalConfig struct {
	Tolerance          float64 // absolute slack on arithmetic identities
	MaxOffsetMagnitude float64 // reject a learned offset beyond ±this
}

// DefaultEvalConfig returns the defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Tolerance:          1e-6,
		MaxOffsetMagnitude: 5.0,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of a validation run.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
