package gate

import (
	"testing"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
)

func quietCovariates() risk.Covariates {
	return risk.Covariates{Hours: 4, TMPSlope: 0.5, VPTrend: -1, BPDropPct: 5}
}

func TestGuardPassesOnQuietSession(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	d := g.Evaluate(quietCovariates())

	if d.Fired {
		t.Fatalf("expected no guard, got %s", d.Reason)
	}
	if d.Multiplier != 1 {
		t.Fatalf("expected multiplier 1, got %f", d.Multiplier)
	}
	if d.Apply(10) != 10 {
		t.Fatalf("expected unchanged rate, got %f", d.Apply(10))
	}
}

func TestGuardFiresOnEachTrigger(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*risk.Covariates)
		want   TriggerType
	}{
		{"tmp", func(c *risk.Covariates) { c.TMPSlope = 2.5 }, TriggerTMPSlope},
		{"vp", func(c *risk.Covariates) { c.VPTrend = 1.6 }, TriggerVPTrend},
		{"bp", func(c *risk.Covariates) { c.BPDropPct = 20 }, TriggerBPDrop},
		{"symptoms", func(c *risk.Covariates) { c.SymptomsAny = true }, TriggerSymptoms},
	}
	g := NewGuard(DefaultGuardConfig())
	for _, tc := range cases {
		cov := quietCovariates()
		tc.mutate(&cov)
		d := g.Evaluate(cov)
		if !d.Fired {
			t.Fatalf("%s: expected guard to fire", tc.name)
		}
		if !d.Has(tc.want) {
			t.Fatalf("%s: expected trigger %s, got %+v", tc.name, tc.want, d.Triggers)
		}
		if d.Multiplier != 0.85 {
			t.Fatalf("%s: expected multiplier 0.85, got %f", tc.name, d.Multiplier)
		}
	}
}

func TestGuardThresholdEdges(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	// TMP and VP use strict >, BP drop uses >=.
	cov := quietCovariates()
	cov.TMPSlope = 2.0
	cov.VPTrend = 1.5
	if d := g.Evaluate(cov); d.Fired {
		t.Fatalf("slopes at threshold should not fire: %s", d.Reason)
	}

	cov = quietCovariates()
	cov.BPDropPct = 19.999
	if d := g.Evaluate(cov); d.Fired {
		t.Fatalf("drop below threshold should not fire: %s", d.Reason)
	}
}

func TestGuardCollectsAllTriggers(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	cov := risk.Covariates{TMPSlope: 3, VPTrend: 2, BPDropPct: 25, SymptomsAny: true}
	d := g.Evaluate(cov)

	if len(d.Triggers) != 4 {
		t.Fatalf("expected 4 triggers, got %d", len(d.Triggers))
	}
	// Multiple triggers derate once, not per trigger.
	if d.Multiplier != 0.85 {
		t.Fatalf("expected single multiplier 0.85, got %f", d.Multiplier)
	}
}

func TestGuardNeverIncreasesRate(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())
	quiet := g.Evaluate(quietCovariates())
	loud := g.Evaluate(risk.Covariates{SymptomsAny: true})
	for _, rate := range []float64{0, 0.5, 5, 13} {
		if loud.Apply(rate) > quiet.Apply(rate) {
			t.Fatalf("rate %f: guard increased rate %f > %f", rate, loud.Apply(rate), quiet.Apply(rate))
		}
		if loud.Apply(rate) > rate {
			t.Fatalf("rate %f: guard output %f above input", rate, loud.Apply(rate))
		}
	}
}

func TestFromBounds(t *testing.T) {
	b := risk.DefaultSafetyBounds()
	b.SafetyMultiplier = 0.7
	b.TMPSlopeThreshold = 5
	d := FromBounds(b).Evaluate(risk.Covariates{TMPSlope: 4})
	if d.Fired {
		t.Fatal("slope 4 should not fire with threshold 5")
	}
	d = FromBounds(b).Evaluate(risk.Covariates{TMPSlope: 6})
	if !d.Fired || d.Multiplier != 0.7 {
		t.Fatalf("expected fire with 0.7, got fired=%v mult=%f", d.Fired, d.Multiplier)
	}
}
