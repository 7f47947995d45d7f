package planner

import (
	"fmt"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
)

// #region plan
// Plan runs the full session pipeline: covariates, guard, safe rate, fluid
// balance, overhydration risk, extension, alerts.
func Plan(cfg Config, in risk.SessionInputs, offset float64) (PlanResult, error) {
	if !(in.OmegaPercent > 0 && in.OmegaPercent < 100) {
		return PlanResult{}, risk.NewDomainError(risk.KindInvalidRiskTarget, "omega", in.OmegaPercent, "target risk must lie in (0,100)")
	}

	sr, err := SolveSafeRate(cfg, in, in.TauPercent, offset)
	if err != nil {
		return PlanResult{}, fmt.Errorf("solve safe rate: %w", err)
	}

	bal, err := ComputePlan(sr.Final, in.DurationMinutes, in.Weight, in.IDWG, in.IntakeL, in.RinsebackL, in.IVL)
	if err != nil {
		return PlanResult{}, fmt.Errorf("compute plan: %w", err)
	}

	pOver := risk.OverhydrationRisk(cfg.Coefficients.Overhydration, sr.Covariates)
	above := pOver*100 > in.OmegaPercent

	ext := RecommendExtension(bal.UFDeficit, sr.Final, in.Weight, cfg.Bounds.RoundStepMinutes, in.DurationMinutes)

	res := PlanResult{
		SafeRate:                  sr.Final,
		RateRaw:                   sr.Solution.Raw,
		RateBounded:               sr.Solution.Bounded,
		BiasOffset:                offset,
		Balance:                   bal,
		HypotensionGuardTriggered: sr.Guard.Fired,
		Guard:                     sr.Guard,
		OverhydrationRisk:         pOver,
		OverhydrationAboveTarget:  above,
		Extension:                 ext,
		ExtensionPrioritized:      above && bal.UFDeficit > 0 && sr.Final > 0,
		Covariates:                sr.Covariates,
	}
	res.Alerts = alerts(res, cfg.Bounds)
	res.Notes = notes(res)
	return res, nil
}

// #endregion plan

// #region alerts
func alerts(res PlanResult, b risk.SafetyBounds) []string {
	out := []string{}
	if res.UFDeficit > 0 {
		out = append(out, fmt.Sprintf("UF deficit %.2f L", res.UFDeficit))
	}
	if res.Guard.Has(gate.TriggerTMPSlope) || res.Guard.Has(gate.TriggerVPTrend) {
		out = append(out, "High TMP/VP")
	}
	if res.Guard.Has(gate.TriggerBPDrop) {
		out = append(out, fmt.Sprintf("SBP drop ≥%.0f%%", b.BPDropThresholdPct))
	}
	if res.Guard.Has(gate.TriggerSymptoms) {
		out = append(out, "Hypotension symptoms")
	}
	if res.OverhydrationAboveTarget {
		out = append(out, "P_overhydration above target")
	}
	return out
}

func notes(res PlanResult) []string {
	switch {
	case res.ExtensionPrioritized:
		return []string{
			fmt.Sprintf("Overhydration high with UF deficit: extend by +%d min at the same safe rate rather than raise the rate", res.ExtraMinutes),
		}
	case res.UFDeficit > 0:
		return []string{"No high overload: extend or split UF per clinical judgement"}
	}
	return nil
}

// #endregion alerts
