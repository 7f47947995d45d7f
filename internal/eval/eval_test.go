package eval

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/gate"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

func sessionInputs() risk.SessionInputs {
	return risk.SessionInputs{
		PatientID:       "Case01",
		Age:             72,
		Weight:          72,
		DurationMinutes: 240,
		IDWG:            3.5,
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

func metric(r EvalResult, name string) EvalMetric {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m
		}
	}
	return EvalMetric{Name: "missing"}
}

func TestEvalPassesOnComputedPlan(t *testing.T) {
	cfg := planner.DefaultConfig()
	plan, err := planner.Plan(cfg, sessionInputs(), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, cfg.Bounds)
	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if len(result.Metrics) != 4 {
		t.Fatalf("expected 4 metrics, got %d", len(result.Metrics))
	}
}

func TestEvalAcceptsGuardedRateBelowMin(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	plan := planner.PlanResult{
		SafeRate: b.RateMin * 0.85,
		Guard:    gate.GuardDecision{Fired: true, Multiplier: 0.85},
	}
	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if !metric(result, "safe_rate_bounds").Pass {
		t.Fatal("guarded rate at RateMin×multiplier should pass")
	}

	plan.Guard = gate.GuardDecision{Multiplier: 1}
	result = NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if metric(result, "safe_rate_bounds").Pass {
		t.Fatal("unguarded rate below RateMin should fail")
	}
}

func TestEvalFailsOnRateAboveMax(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	plan := planner.PlanResult{SafeRate: b.RateMax + 1, Guard: gate.GuardDecision{Multiplier: 1}}
	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if result.Passed {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Reason, "safe rate") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestEvalFailsOnDeficitMismatch(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	plan := planner.PlanResult{SafeRate: 5, Guard: gate.GuardDecision{Multiplier: 1}}
	plan.UFNeeded = 3
	plan.UFCap = 2
	plan.UFDeficit = 0.5

	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if metric(result, "deficit_consistency").Pass {
		t.Fatal("expected deficit mismatch to fail")
	}
}

func TestEvalFailsOffGridExtension(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	plan := planner.PlanResult{SafeRate: 5, Guard: gate.GuardDecision{Multiplier: 1}}
	plan.UFNeeded, plan.UFCap, plan.UFDeficit = 3, 2, 1
	plan.ExtraMinutes = 7
	plan.RecommendedTotalMinutes = 245

	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if metric(result, "extension_step").Pass {
		t.Fatal("expected off-grid extension to fail")
	}
}

func TestEvalFailsExtensionWithoutDeficit(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	plan := planner.PlanResult{SafeRate: 5, Guard: gate.GuardDecision{Multiplier: 1}}
	plan.ExtraMinutes = 10
	plan.RecommendedTotalMinutes = 250

	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if metric(result, "extension_step").Pass {
		t.Fatal("extra minutes without a deficit should fail")
	}
}

func TestEvalMultipleFailuresReason(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	plan := planner.PlanResult{SafeRate: 100, OverhydrationRisk: 2, Guard: gate.GuardDecision{Multiplier: 1}}
	result := NewEvalHarness(DefaultEvalConfig()).Run(plan, b)
	if !strings.Contains(result.Reason, "2 checks") {
		t.Fatalf("expected 2 failed checks in reason, got %q", result.Reason)
	}
}

func TestRunLearnPassesOnComputedStep(t *testing.T) {
	cfg := planner.DefaultConfig()
	act := update.Actuals{UFActualTotalL: 3.0, DurationActualMin: 240, Outcome: update.OutcomeOK}
	res, err := update.Learn(cfg, update.DefaultLearnConfig(), sessionInputs(), act, update.LearningState{})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	result := NewEvalHarness(DefaultEvalConfig()).RunLearn(res, cfg.Bounds)
	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
}

func TestRunLearnFailsOnCapBreach(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	res := update.LearnResult{
		Next: update.NextRate{Base: 5, Capped: 6, Final: 6, Guard: gate.GuardDecision{Multiplier: 1}},
	}
	result := NewEvalHarness(DefaultEvalConfig()).RunLearn(res, b)
	if metric(result, "learning_cap").Pass {
		t.Fatal("6 > 1.15×5 should fail the learning cap")
	}
}

func TestRunLearnFailsOnOffsetMagnitude(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	res := update.LearnResult{
		Next:  update.NextRate{Base: 5, Capped: 5, Final: 5, Guard: gate.GuardDecision{Multiplier: 1}},
		State: update.LearningState{BiasOffset: -7},
	}
	result := NewEvalHarness(DefaultEvalConfig()).RunLearn(res, b)
	if result.Passed {
		t.Fatal("expected offset magnitude to fail")
	}
	if !strings.Contains(result.Reason, "offset magnitude") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}
