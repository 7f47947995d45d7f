package signals

// #region config

// ProducerConfig holds the derivation constants for session covariates.
type ProducerConfig struct {
	// HoursFloor bounds the trend denominator from below so near-zero
	// durations cannot blow up TMP/VP slopes.
	HoursFloor float64
	// LowEFPercent is the ejection fraction below which EF counts as reduced.
	LowEFPercent float64
	// AgeReference and AgeDecade define the age-over-reference term.
	AgeReference float64
	AgeDecade    float64
}

// DefaultProducerConfig returns the standard derivation constants.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		HoursFloor:   0.1,
		LowEFPercent: 40,
		AgeReference: 60,
		AgeDecade:    10,
	}
}

// #endregion config
