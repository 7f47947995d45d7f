package update

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/signals"
)

// #region observed-rate
// ObservedRate reconstructs the UF rate actually used from the session total.
// ok is false when no total was recorded (total <= 0).
func ObservedRate(ufActualTotalL, rinsebackL, ivL, intakeL, weight, durationMin float64) (rate, net float64, ok bool, err error) {
	if ufActualTotalL <= 0 {
		return 0, 0, false, nil
	}
	if !(weight > 0) {
		return 0, 0, false, risk.NewDomainError(risk.KindNonPositiveDivisor, "weight", weight, "weight must be positive")
	}
	if !(durationMin > 0) {
		return 0, 0, false, risk.NewDomainError(risk.KindNonPositiveDivisor, "duration_actual_min", durationMin, "duration must be positive")
	}
	net = ufActualTotalL - rinsebackL - ivL - intakeL
	rate = net * 1000.0 * 60.0 / (weight * durationMin)
	return rate, net, true, nil
}

// #endregion observed-rate

// #region update-offset
// TargetProbability is the hindsight target for the learning step: half of τ
// after a safe session, double τ (capped) after a hypotension.
func TargetProbability(tauPercent float64, outcome Outcome) float64 {
	if outcome == OutcomeHypotension {
		return math.Min(AdverseTargetCap, 2*tauPercent/100.0)
	}
	return tauPercent / 200.0
}

// UpdateOffset moves the bias offset toward the value at which the observed
// rate would have produced the target probability. It is a pure function of
// its arguments.
//
// When the retrospective probability is not strictly inside (0,1) the offset
// is returned unchanged with a no_op decision and ErrDegenerateProbability;
// the returned update is still usable.
func UpdateOffset(prior, observedRate float64, coeffs risk.Coefficients, in risk.SessionInputs, tauPercent float64, outcome Outcome, alpha float64) (OffsetUpdate, error) {
	return updateOffset(prior, observedRate, coeffs, signals.Derive(in), tauPercent, outcome, alpha)
}

func updateOffset(prior, observedRate float64, coeffs risk.Coefficients, cov risk.Covariates, tauPercent float64, outcome Outcome, alpha float64) (OffsetUpdate, error) {
	upd := OffsetUpdate{
		PriorOffset: prior,
		NewOffset:   prior,
		Alpha:       alpha,
		Decision:    Decision{Action: "no_op", Reason: "offset unchanged"},
	}

	if !(alpha >= 0 && alpha <= 1) {
		return upd, risk.NewDomainError(risk.KindInvalidLearningRate, "alpha", alpha, "learning rate must lie in [0,1]")
	}
	if _, err := risk.LogitTarget(tauPercent); err != nil {
		return upd, err
	}

	upd.POld = risk.HypotensionRisk(coeffs.Hypotension, cov, observedRate, prior)
	upd.PTarget = TargetProbability(tauPercent, outcome)

	logitOld, err := risk.Logit(upd.POld)
	if err != nil {
		upd.Decision.Reason = fmt.Sprintf("retrospective probability %g is degenerate", upd.POld)
		return upd, err
	}
	logitTarget, err := risk.Logit(upd.PTarget)
	if err != nil {
		upd.Decision.Reason = fmt.Sprintf("target probability %g is degenerate", upd.PTarget)
		return upd, err
	}

	upd.DeltaLogit = logitTarget - logitOld
	upd.NewOffset = prior + alpha*upd.DeltaLogit

	if upd.NewOffset != prior {
		upd.Decision = Decision{
			Action: "commit",
			Reason: fmt.Sprintf("outcome=%s p_old=%.4f p_target=%.4f delta_logit=%.4f", outcome, upd.POld, upd.PTarget, upd.DeltaLogit),
		}
	}
	return upd, nil
}

// #endregion update-offset

// #region next-rate
// GuardFor evaluates the next-session guard. With a nil trend it uses this
// session's trend covariates; otherwise the trend replaces them.
func GuardFor(cfg planner.Config, in risk.SessionInputs, trend *Trend) gate.GuardDecision {
	if trend != nil {
		in.TMPStart, in.TMPEnd = trend.TMPStart, trend.TMPEnd
		in.VPStart, in.VPEnd = trend.VPStart, trend.VPEnd
		in.SBPPre, in.SBPPost = trend.SBPPre, trend.SBPPost
		in.Symptoms = trend.Symptoms
	}
	cov := signals.NewProducer(cfg.Producer).Produce(in)
	return gate.FromBounds(cfg.Bounds).Evaluate(cov)
}

// NextSessionRate solves the next-session rate with the updated offset and
// caps it at MaxNextRateRatio times the zero-offset baseline before the
// guard derate.
func NextSessionRate(cfg planner.Config, in risk.SessionInputs, tauPercent, newOffset float64, guard gate.GuardDecision) (NextRate, error) {
	cov := signals.NewProducer(cfg.Producer).Produce(in)
	h := cfg.Coefficients.Hypotension

	base, err := risk.SolveRate(h, cfg.Bounds, cov, tauPercent, 0)
	if err != nil {
		return NextRate{}, fmt.Errorf("baseline rate: %w", err)
	}
	next, err := risk.SolveRate(h, cfg.Bounds, cov, tauPercent, newOffset)
	if err != nil {
		return NextRate{}, fmt.Errorf("next rate: %w", err)
	}

	limit := MaxNextRateRatio * base.Bounded
	capped := math.Min(next.Bounded, limit)

	return NextRate{
		Base:       base.Bounded,
		Next:       next.Bounded,
		Capped:     capped,
		Final:      guard.Apply(capped),
		CapApplied: next.Bounded > limit,
		Guard:      guard,
	}, nil
}

// #endregion next-rate

// #region learn
// Learn runs the post-session loop: observed rate, offset update, capped
// next-session rate, and the next-session balance at the actual duration.
// A degenerate retrospective probability is reported as a warning and the
// prior offset is carried forward.
func Learn(cfg planner.Config, lc LearnConfig, in risk.SessionInputs, act Actuals, prior LearningState) (LearnResult, error) {
	if err := cfg.Bounds.Validate(); err != nil {
		return LearnResult{}, err
	}
	if err := in.ValidateDivisors(); err != nil {
		return LearnResult{}, err
	}

	duration := act.DurationActualMin
	if duration <= 0 {
		duration = in.DurationMinutes
	}

	var res LearnResult
	rate, net, ok, err := ObservedRate(act.UFActualTotalL, in.RinsebackL, in.IVL, in.IntakeL, in.Weight, duration)
	if err != nil {
		return LearnResult{}, fmt.Errorf("observed rate: %w", err)
	}
	res.HasObservedRate = ok
	res.UFActualNet = net
	res.ObservedRate = rate

	if ok {
		cov := signals.NewProducer(cfg.Producer).Produce(in)
		upd, err := updateOffset(prior.BiasOffset, rate, cfg.Coefficients, cov, in.TauPercent, act.Outcome, lc.Alpha)
		switch {
		case errors.Is(err, risk.ErrDegenerateProbability):
			res.Warnings = append(res.Warnings, err.Error())
		case err != nil:
			return LearnResult{}, fmt.Errorf("update offset: %w", err)
		}
		res.Update = upd
	} else {
		res.Update = OffsetUpdate{
			PriorOffset: prior.BiasOffset,
			NewOffset:   prior.BiasOffset,
			Alpha:       lc.Alpha,
			Decision:    Decision{Action: "no_op", Reason: "no actual UF recorded"},
		}
	}
	res.State = LearningState{BiasOffset: res.Update.NewOffset}

	guard := GuardFor(cfg, in, act.NextTrend)
	next, err := NextSessionRate(cfg, in, in.TauPercent, res.State.BiasOffset, guard)
	if err != nil {
		return LearnResult{}, err
	}
	res.Next = next

	res.UFCapNext = planner.UFCap(next.Final, duration, in.Weight)
	res.UFNeededNext = in.IDWG + in.IntakeL - in.RinsebackL - in.IVL
	res.UFDeficitNext = math.Max(0, res.UFNeededNext-res.UFCapNext)
	if res.UFDeficitNext < 1e-9 {
		res.UFDeficitNext = 0
	}
	res.Extension = planner.RecommendExtension(res.UFDeficitNext, next.Final, in.Weight, cfg.Bounds.RoundStepMinutes, duration)

	return res, nil
}

// #endregion learn
