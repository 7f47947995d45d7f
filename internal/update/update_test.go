package update

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
)

func exampleConfig() planner.Config {
	cfg := planner.DefaultConfig()
	cfg.Coefficients.Hypotension = risk.HypotensionCoefficients{Intercept: -2.6, Rate: 0.10}
	return cfg
}

func exampleInputs() risk.SessionInputs {
	return risk.SessionInputs{
		PatientID:       "Case01",
		Age:             72,
		Weight:          72,
		DurationMinutes: 240,
		IDWG:            2.9,
		IntakeL:         0.4,
		RinsebackL:      0.36,
		SBPPre:          150,
		SBPPost:         140,
		EFPercent:       55,
		TMPStart:        80, TMPEnd: 80,
		VPStart: 120, VPEnd: 120,
		TauPercent:   20,
		OmegaPercent: 10,
	}
}

func solvedRate() float64 {
	return (math.Log(0.25) + 2.6) / 0.10
}

func noGuard() gate.GuardDecision {
	return gate.GuardDecision{Multiplier: 1}
}

func TestObservedRate(t *testing.T) {
	rate, net, ok, err := ObservedRate(3.3, 0.36, 0, 0.4, 72, 240)
	if err != nil || !ok {
		t.Fatalf("expected observed rate, got ok=%v err=%v", ok, err)
	}
	if math.Abs(net-2.54) > 1e-9 {
		t.Fatalf("expected net 2.54, got %f", net)
	}
	want := 2.54 * 1000 * 60 / (72 * 240)
	if math.Abs(rate-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, rate)
	}

	if _, _, ok, err := ObservedRate(0, 0.36, 0, 0.4, 72, 240); ok || err != nil {
		t.Fatalf("expected no observation for zero total, got ok=%v err=%v", ok, err)
	}
	if _, _, _, err := ObservedRate(3, 0, 0, 0, 0, 240); !errors.Is(err, risk.ErrNonPositiveDivisor) {
		t.Fatalf("expected ErrNonPositiveDivisor, got %v", err)
	}
	if _, _, _, err := ObservedRate(3, 0, 0, 0, 72, 0); !errors.Is(err, risk.ErrNonPositiveDivisor) {
		t.Fatalf("expected ErrNonPositiveDivisor for duration, got %v", err)
	}
}

func TestTargetProbability(t *testing.T) {
	if got := TargetProbability(20, OutcomeOK); got != 0.1 {
		t.Errorf("expected 0.1, got %f", got)
	}
	if got := TargetProbability(20, OutcomeHypotension); got != 0.4 {
		t.Errorf("expected 0.4, got %f", got)
	}
	if got := TargetProbability(60, OutcomeHypotension); got != 0.8 {
		t.Errorf("expected cap 0.8, got %f", got)
	}
}

func TestUpdateOffsetSafeSessionTightens(t *testing.T) {
	cfg := exampleConfig()
	upd, err := UpdateOffset(0, solvedRate(), cfg.Coefficients, exampleInputs(), 20, OutcomeOK, 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(upd.POld-0.2) > 1e-9 {
		t.Fatalf("expected p_old 0.2 at the solved rate, got %f", upd.POld)
	}
	wantDelta := math.Log(0.1/0.9) - math.Log(0.2/0.8)
	if math.Abs(upd.DeltaLogit-wantDelta) > 1e-9 {
		t.Fatalf("expected delta %f, got %f", wantDelta, upd.DeltaLogit)
	}
	if math.Abs(upd.NewOffset-0.2*wantDelta) > 1e-9 {
		t.Fatalf("expected offset %f, got %f", 0.2*wantDelta, upd.NewOffset)
	}
	if upd.Decision.Action != "commit" {
		t.Fatalf("expected commit, got %s", upd.Decision.Action)
	}
}

func TestUpdateOffsetHypotensionRaisesOffset(t *testing.T) {
	cfg := exampleConfig()
	upd, err := UpdateOffset(0, solvedRate(), cfg.Coefficients, exampleInputs(), 20, OutcomeHypotension, 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(upd.NewOffset > 0) {
		t.Fatalf("expected positive offset after hypotension, got %f", upd.NewOffset)
	}
}

func TestUpdateOffsetZeroAlphaIsIdentity(t *testing.T) {
	cfg := planner.DefaultConfig()
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 500; i++ {
		in := exampleInputs()
		in.Age = 30 + rng.Float64()*60
		in.TMPEnd = in.TMPStart + rng.Float64()*20 - 10
		prior := rng.Float64()*6 - 3
		rate := rng.Float64() * 15
		tau := 1 + rng.Float64()*60
		outcome := Outcome(rng.Intn(2))

		upd, err := UpdateOffset(prior, rate, cfg.Coefficients, in, tau, outcome, 0)
		if err != nil && !errors.Is(err, risk.ErrDegenerateProbability) {
			t.Fatalf("iter %d: unexpected error: %v", i, err)
		}
		if upd.NewOffset != prior {
			t.Fatalf("iter %d: alpha=0 changed offset %f -> %f", i, prior, upd.NewOffset)
		}
		if upd.Decision.Action != "no_op" {
			t.Fatalf("iter %d: expected no_op, got %s", i, upd.Decision.Action)
		}
	}
}

func TestUpdateOffsetDegenerateKeepsPrior(t *testing.T) {
	cfg := exampleConfig()
	upd, err := UpdateOffset(0.3, 1e6, cfg.Coefficients, exampleInputs(), 20, OutcomeOK, 0.5)
	if !errors.Is(err, risk.ErrDegenerateProbability) {
		t.Fatalf("expected ErrDegenerateProbability, got %v", err)
	}
	if upd.NewOffset != 0.3 {
		t.Fatalf("expected prior offset kept, got %f", upd.NewOffset)
	}
	if upd.Decision.Action != "no_op" {
		t.Fatalf("expected no_op, got %s", upd.Decision.Action)
	}
}

func TestUpdateOffsetRejectsBadParameters(t *testing.T) {
	cfg := exampleConfig()
	for _, alpha := range []float64{-0.1, 1.1, math.NaN()} {
		if _, err := UpdateOffset(0, 5, cfg.Coefficients, exampleInputs(), 20, OutcomeOK, alpha); !errors.Is(err, risk.ErrInvalidLearningRate) {
			t.Fatalf("alpha=%v: expected ErrInvalidLearningRate, got %v", alpha, err)
		}
	}
	if _, err := UpdateOffset(0, 5, cfg.Coefficients, exampleInputs(), 0, OutcomeOK, 0.2); !errors.Is(err, risk.ErrInvalidRiskTarget) {
		t.Fatalf("expected ErrInvalidRiskTarget, got %v", err)
	}
}

func TestNextSessionRateCapProperty(t *testing.T) {
	cfg := planner.DefaultConfig()
	rng := rand.New(rand.NewSource(23))
	for i := 0; i < 1000; i++ {
		in := exampleInputs()
		in.Age = 30 + rng.Float64()*60
		in.MedsRecent = rng.Intn(2) == 1
		tau := 1 + rng.Float64()*60
		offset := rng.Float64()*20 - 10

		next, err := NextSessionRate(cfg, in, tau, offset, noGuard())
		if err != nil {
			t.Fatalf("iter %d: unexpected error: %v", i, err)
		}
		if next.Capped > MaxNextRateRatio*next.Base+1e-12 {
			t.Fatalf("iter %d: capped %f exceeds 1.15 x base %f", i, next.Capped, next.Base)
		}
		if next.Final > next.Capped {
			t.Fatalf("iter %d: final %f above capped %f", i, next.Final, next.Capped)
		}
	}
}

func TestNextSessionRateCapBinds(t *testing.T) {
	cfg := exampleConfig()
	cfg.Bounds.RateMax = 40
	next, err := NextSessionRate(cfg, exampleInputs(), 20, -2, noGuard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.CapApplied {
		t.Fatalf("expected cap to bind: next=%f base=%f", next.Next, next.Base)
	}
	if math.Abs(next.Capped-1.15*solvedRate()) > 1e-9 {
		t.Fatalf("expected capped %f, got %f", 1.15*solvedRate(), next.Capped)
	}
}

func TestNextSessionRateAppliesGuard(t *testing.T) {
	cfg := exampleConfig()
	guard := gate.GuardDecision{Fired: true, Multiplier: 0.85}
	next, err := NextSessionRate(cfg, exampleInputs(), 20, 0, guard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(next.Final-0.85*next.Capped) > 1e-12 {
		t.Fatalf("expected guard derate, got final=%f capped=%f", next.Final, next.Capped)
	}
}

func TestLearnFullLoop(t *testing.T) {
	cfg := exampleConfig()
	act := Actuals{UFActualTotalL: 3.3, DurationActualMin: 240, Outcome: OutcomeOK}
	res, err := Learn(cfg, DefaultLearnConfig(), exampleInputs(), act, LearningState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasObservedRate {
		t.Fatal("expected observed rate")
	}
	if res.Update.Decision.Action != "commit" {
		t.Fatalf("expected commit, got %s", res.Update.Decision.Action)
	}
	if !(res.State.BiasOffset < 0) {
		t.Fatalf("safe session below target should lower offset, got %f", res.State.BiasOffset)
	}
	if res.Next.Final > MaxNextRateRatio*res.Next.Base {
		t.Fatalf("next rate %f above cap", res.Next.Final)
	}
	wantCap := res.Next.Final * 4 * 72 / 1000
	if math.Abs(res.UFCapNext-wantCap) > 1e-9 {
		t.Fatalf("expected next cap %f, got %f", wantCap, res.UFCapNext)
	}
	if res.UFDeficitNext != 0 || res.Extension.ExtraMinutes != 0 {
		t.Fatalf("expected no deficit, got %f / %d", res.UFDeficitNext, res.Extension.ExtraMinutes)
	}
	if res.Extension.RecommendedTotalMinutes != 240 {
		t.Fatalf("expected 240 minutes, got %d", res.Extension.RecommendedTotalMinutes)
	}
}

func TestLearnWithoutActuals(t *testing.T) {
	res, err := Learn(exampleConfig(), DefaultLearnConfig(), exampleInputs(), Actuals{}, LearningState{BiasOffset: 0.4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HasObservedRate {
		t.Fatal("expected no observed rate")
	}
	if res.State.BiasOffset != 0.4 || res.Update.Decision.Action != "no_op" {
		t.Fatalf("expected unchanged offset with no_op, got %f %s", res.State.BiasOffset, res.Update.Decision.Action)
	}
}

func TestLearnDegenerateIsNotFatal(t *testing.T) {
	act := Actuals{UFActualTotalL: 1e6, DurationActualMin: 240, Outcome: OutcomeHypotension}
	res, err := Learn(exampleConfig(), DefaultLearnConfig(), exampleInputs(), act, LearningState{BiasOffset: 0.1})
	if err != nil {
		t.Fatalf("degenerate probability must not fail learning: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a warning")
	}
	if res.State.BiasOffset != 0.1 {
		t.Fatalf("expected prior offset, got %f", res.State.BiasOffset)
	}
}

func TestLearnNextTrendOverridesGuard(t *testing.T) {
	in := exampleInputs()
	in.Symptoms.Cramps = true
	act := Actuals{UFActualTotalL: 3.0, DurationActualMin: 240}

	res, err := Learn(exampleConfig(), DefaultLearnConfig(), in, act, LearningState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Next.Guard.Fired {
		t.Fatal("expected this-session symptoms to guard the next session")
	}

	act.NextTrend = &Trend{TMPStart: 80, TMPEnd: 80, VPStart: 120, VPEnd: 120, SBPPre: 150, SBPPost: 145}
	res, err = Learn(exampleConfig(), DefaultLearnConfig(), in, act, LearningState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Next.Guard.Fired {
		t.Fatalf("forecast trend should clear the guard, got %s", res.Next.Guard.Reason)
	}
}

func TestLearnRejectsBadInputs(t *testing.T) {
	in := exampleInputs()
	in.Weight = -1
	if _, err := Learn(exampleConfig(), DefaultLearnConfig(), in, Actuals{}, LearningState{}); !errors.Is(err, risk.ErrNonPositiveDivisor) {
		t.Fatalf("expected ErrNonPositiveDivisor, got %v", err)
	}
}
