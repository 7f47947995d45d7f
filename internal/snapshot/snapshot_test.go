package snapshot

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

func sampleInputs() risk.SessionInputs {
	return risk.SessionInputs{
		PatientID:       "Case01",
		SessionAt:       time.Date(2026, 3, 4, 7, 30, 0, 0, time.UTC),
		Age:             68,
		Weight:          72,
		DurationMinutes: 240,
		IDWG:            2.9,
		IntakeL:         0.4,
		RinsebackL:      0.36,
		SBPPre:          150,
		SBPPost:         120,
		Symptoms:        risk.Symptoms{Cramps: true},
		EFPercent:       55,
		TMPStart:        80, TMPEnd: 96,
		VPStart: 120, VPEnd: 124,
		Dialysate:      risk.Dialysate{Na: 138, HCO3: 32, Cond: 14, K: 2, Ca: 1.5},
		OverhydrationL: 2.5,
		TauPercent:     20,
		OmegaPercent:   10,
	}
}

func planFor(t *testing.T, in risk.SessionInputs) planner.PlanResult {
	t.Helper()
	res, err := planner.Plan(planner.DefaultConfig(), in, 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return res
}

func TestBuild_PlanOnly(t *testing.T) {
	in := sampleInputs()
	plan := planFor(t, in)
	r := Build(in, plan, nil)

	if r.SessionDT != "2026-03-04 07:30" {
		t.Fatalf("unexpected session_dt %q", r.SessionDT)
	}
	if r.SafeRate != plan.SafeRate || r.UFCap != plan.UFCap {
		t.Fatalf("plan fields not copied: %+v", r)
	}
	if r.TMPSlope != 4 {
		t.Fatalf("expected tmp_slope 4, got %f", r.TMPSlope)
	}
	if r.BPDropPct != 20 {
		t.Fatalf("expected bp_drop_pct 20, got %f", r.BPDropPct)
	}
	if r.OffsetUpdated != nil || r.RateUsedLast != nil || r.OutcomeLast != nil {
		t.Fatal("learning fields should be nil without a learning step")
	}
	if r.ExtraMinutes != plan.ExtraMinutes {
		t.Fatalf("expected plan extension %d, got %d", plan.ExtraMinutes, r.ExtraMinutes)
	}
}

func TestBuild_WithLearning(t *testing.T) {
	in := sampleInputs()
	plan := planFor(t, in)
	act := update.Actuals{UFActualTotalL: 2.8, DurationActualMin: 240, Outcome: update.OutcomeHypotension}
	res, err := update.Learn(planner.DefaultConfig(), update.DefaultLearnConfig(), in, act, update.LearningState{})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}

	r := Build(in, plan, &Learning{Actuals: act, Result: res})

	if r.OutcomeLast == nil || *r.OutcomeLast != 1 {
		t.Fatalf("expected outcome_last 1, got %v", r.OutcomeLast)
	}
	if r.RateUsedLast == nil || *r.RateUsedLast != res.ObservedRate {
		t.Fatal("expected r_used_last from learning result")
	}
	if r.OffsetUpdated == nil || *r.OffsetUpdated != res.State.BiasOffset {
		t.Fatal("expected gamma0_offset_updated from learning result")
	}
	if r.SafeRateNext == nil || *r.SafeRateNext != res.Next.Final {
		t.Fatal("expected r_max_next_dyn from learning result")
	}
	if r.ExtraMinutes != res.Extension.ExtraMinutes {
		t.Fatalf("expected learning extension %d, got %d", res.Extension.ExtraMinutes, r.ExtraMinutes)
	}
}

func TestBuild_NoActualTotalLeavesRateNull(t *testing.T) {
	in := sampleInputs()
	plan := planFor(t, in)
	act := update.Actuals{DurationActualMin: 240}
	res, err := update.Learn(planner.DefaultConfig(), update.DefaultLearnConfig(), in, act, update.LearningState{BiasOffset: 0.1})
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	r := Build(in, plan, &Learning{Actuals: act, Result: res})
	if r.RateUsedLast != nil || r.UFActualNet != nil {
		t.Fatal("r_used_last should be null when no total was recorded")
	}
	if *r.OffsetUpdated != 0.1 {
		t.Fatalf("offset should carry forward, got %f", *r.OffsetUpdated)
	}
}

func TestMarshal_FieldNames(t *testing.T) {
	in := sampleInputs()
	data, err := Marshal(Build(in, planFor(t, in), nil))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{
		"session_dt", "patient_id", "age", "weight", "duration_min", "idwg", "intake_L", "rinseback_L", "iv_L",
		"meds_recent", "dm", "dP_atm_10hPa", "sbp_pre", "sbp_post", "bp_drop_pct", "symptoms",
		"ef_percent", "arrhythmia", "af_recent", "tmp_start", "tmp_end", "tmp_slope", "vp_start", "vp_end", "vp_trend",
		"dialysate", "OH_L", "dyspnea", "edema", "chest_symp", "residual_urine_mLd", "severe_as", "severe_mr",
		"tau", "r_max_dyn", "UF_cap_L", "UF_needed_L", "UF_recommended_L", "P_overhydration_risk",
		"UF_actual_total", "UF_actual_net", "duration_actual_min", "r_used_last", "outcome_last", "alpha",
		"gamma0_offset_current", "gamma0_offset_updated", "r_max_next_dyn", "UF_cap_next_L",
		"extra_minutes", "recommended_total_minutes",
	}
	for _, k := range want {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
	if len(m) != len(want) {
		t.Errorf("expected %d keys, got %d", len(want), len(m))
	}
	if m["r_used_last"] != nil {
		t.Errorf("expected null r_used_last, got %v", m["r_used_last"])
	}
	sym := m["symptoms"].(map[string]any)
	if sym["cramps"] != true || sym["GI"] != false {
		t.Errorf("unexpected symptoms %v", sym)
	}
	if !strings.Contains(string(data), "\n  \"session_dt\"") {
		t.Error("expected two-space indentation")
	}
}

func TestUnmarshal(t *testing.T) {
	in := sampleInputs()
	orig := Build(in, planFor(t, in), nil)
	data, _ := Marshal(orig)

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.PatientID != "Case01" || got.SafeRate != orig.SafeRate {
		t.Fatalf("unexpected record %+v", got)
	}

	if _, err := Unmarshal([]byte("{")); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
