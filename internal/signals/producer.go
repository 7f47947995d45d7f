package signals

import (
	"math"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
)

// #region producer

// Producer derives model covariates from raw session inputs.
type Producer struct {
	config ProducerConfig
}

// NewProducer creates a Producer.
func NewProducer(config ProducerConfig) *Producer {
	return &Producer{config: config}
}

// Derive computes covariates with the default producer configuration.
func Derive(in risk.SessionInputs) risk.Covariates {
	return NewProducer(DefaultProducerConfig()).Produce(in)
}

// #endregion producer

// #region produce

// Produce computes all covariates from the given inputs. It is total: no input
// makes it fail, divisor checks belong to the caller.
func (p *Producer) Produce(in risk.SessionInputs) risk.Covariates {
	hours := p.hours(in.DurationMinutes)
	return risk.Covariates{
		Hours:            hours,
		AgeOver60Decades: math.Max(0, (in.Age-p.config.AgeReference)/p.config.AgeDecade),
		TMPSlope:         (in.TMPEnd - in.TMPStart) / hours,
		VPTrend:          (in.VPEnd - in.VPStart) / hours,
		TMPPctChange:     pctChange(in.TMPStart, in.TMPEnd),
		VPPctChange:      pctChange(in.VPStart, in.VPEnd),
		BPDropPct:        BPDropPct(in.SBPPre, in.SBPPost),
		SymptomsAny:      in.Symptoms.Any(),

		MedsRecent:    in.MedsRecent,
		Diabetes:      in.Diabetes,
		PressureDelta: in.PressureDelta10hPa,
		SevereAS:      in.SevereAS,
		SevereMR:      in.SevereMR,

		OverhydrationL: in.OverhydrationL,
		Dyspnea:        in.Dyspnea,
		Edema:          in.Edema,
		LowEF:          in.EFPercent < p.config.LowEFPercent,
		ArrhythmiaAny:  in.Arrhythmia || in.AFRecent,
		ResidualUrineL: in.ResidualUrineMLPerDay / 1000.0,
	}
}

// #endregion produce

// #region hemodynamics

// BPDropPct is the systolic drop from pre to post in percent of pre, floored at 0.
// Returns 0 when the pre value is not positive.
func BPDropPct(sbpPre, sbpPost float64) float64 {
	if sbpPre <= 0 {
		return 0
	}
	return math.Max(0, (sbpPre-sbpPost)*100.0/sbpPre)
}

// #endregion hemodynamics

// #region helpers

func (p *Producer) hours(durationMinutes float64) float64 {
	return math.Max(p.config.HoursFloor, durationMinutes/60.0)
}

func pctChange(start, end float64) float64 {
	if start == 0 {
		return 0
	}
	return (end - start) * 100.0 / start
}

// #endregion helpers
