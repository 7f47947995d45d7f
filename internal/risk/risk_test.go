package risk

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func zeroWeights() HypotensionCoefficients {
	return HypotensionCoefficients{Intercept: -2.6, Rate: 0.10}
}

func TestLogitTargetTwentyPercent(t *testing.T) {
	got, err := LogitTarget(20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-math.Log(0.25)) > eps {
		t.Fatalf("expected ln(0.25), got %f", got)
	}
}

func TestLogitTargetOutOfRange(t *testing.T) {
	for _, tau := range []float64{0, 100, -5, 120, math.NaN()} {
		_, err := LogitTarget(tau)
		if !errors.Is(err, ErrInvalidRiskTarget) {
			t.Fatalf("tau=%v: expected ErrInvalidRiskTarget, got %v", tau, err)
		}
	}
}

func TestSolveRateWorkedExample(t *testing.T) {
	sol, err := SolveRate(zeroWeights(), DefaultSafetyBounds(), Covariates{}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (math.Log(0.25) + 2.6) / 0.10
	if math.Abs(sol.Raw-want) > eps {
		t.Fatalf("expected raw %f, got %f", want, sol.Raw)
	}
	if math.Abs(sol.Raw-12.137) > 1e-3 {
		t.Fatalf("expected raw ~12.137, got %f", sol.Raw)
	}
	if sol.Bounded != sol.Raw {
		t.Fatalf("expected unbounded value within limits, got %f", sol.Bounded)
	}
}

func TestSolveRateClampsToBounds(t *testing.T) {
	b := DefaultSafetyBounds()

	high := zeroWeights()
	high.Intercept = -10
	sol, err := SolveRate(high, b, Covariates{}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Bounded != b.RateMax {
		t.Fatalf("expected clamp to r_max %f, got %f", b.RateMax, sol.Bounded)
	}

	low := zeroWeights()
	low.Intercept = 5
	sol, err = SolveRate(low, b, Covariates{}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Bounded != b.RateMin {
		t.Fatalf("expected clamp to r_min %f, got %f", b.RateMin, sol.Bounded)
	}
}

func TestSolveRateZeroSensitivity(t *testing.T) {
	h := zeroWeights()
	h.Rate = 0
	sol, err := SolveRate(h, DefaultSafetyBounds(), Covariates{}, 20, 0)
	if !errors.Is(err, ErrZeroRateSensitivity) {
		t.Fatalf("expected ErrZeroRateSensitivity, got %v", err)
	}
	if !math.IsNaN(sol.Raw) || !math.IsNaN(sol.Bounded) {
		t.Fatalf("expected NaN rate, got raw=%f bounded=%f", sol.Raw, sol.Bounded)
	}
}

func TestSolveRateOffsetLowersRate(t *testing.T) {
	b := DefaultSafetyBounds()
	base, _ := SolveRate(zeroWeights(), b, Covariates{}, 20, 0)
	shifted, _ := SolveRate(zeroWeights(), b, Covariates{}, 20, 0.3)
	if !(shifted.Raw < base.Raw) {
		t.Fatalf("positive offset should lower rate: base=%f shifted=%f", base.Raw, shifted.Raw)
	}
}

func TestSolveRateRoundTripsTargetRisk(t *testing.T) {
	h := DefaultCoefficients().Hypotension
	cov := Covariates{TMPSlope: 1.2, VPTrend: -0.5, AgeOver60Decades: 1.2, MedsRecent: true}
	b := SafetyBounds{RateMin: -100, RateMax: 100, SafetyMultiplier: 1, RoundStepMinutes: 1}
	sol, err := SolveRate(h, b, cov, 15, 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := HypotensionRisk(h, cov, sol.Raw, 0.1)
	if math.Abs(p-0.15) > 1e-9 {
		t.Fatalf("expected risk 0.15 at solved rate, got %f", p)
	}
}

func TestOverhydrationRiskUrineIsProtective(t *testing.T) {
	o := DefaultCoefficients().Overhydration
	dry := OverhydrationRisk(o, Covariates{OverhydrationL: 2})
	wet := OverhydrationRisk(o, Covariates{OverhydrationL: 2, ResidualUrineL: 0.8})
	if !(wet < dry) {
		t.Fatalf("residual urine should lower risk: %f >= %f", wet, dry)
	}
}

func TestOverhydrationRiskOpenInterval(t *testing.T) {
	o := DefaultCoefficients().Overhydration
	cases := []Covariates{
		{},
		{OverhydrationL: 4, Dyspnea: true, Edema: true, LowEF: true, ArrhythmiaAny: true, Diabetes: true, SevereMR: true},
		{ResidualUrineL: 2.5},
	}
	for i, cov := range cases {
		p := OverhydrationRisk(o, cov)
		if !(p > 0 && p < 1) {
			t.Fatalf("case %d: expected p in (0,1), got %f", i, p)
		}
	}
}

func TestOverhydrationDefaultBaseline(t *testing.T) {
	p := OverhydrationRisk(DefaultCoefficients().Overhydration, Covariates{})
	want := 1 / (1 + math.Exp(2.2))
	if math.Abs(p-want) > eps {
		t.Fatalf("expected %f, got %f", want, p)
	}
}

func TestLogitDegenerate(t *testing.T) {
	for _, p := range []float64{0, 1, -0.1, 1.5} {
		if _, err := Logit(p); !errors.Is(err, ErrDegenerateProbability) {
			t.Fatalf("p=%v: expected ErrDegenerateProbability, got %v", p, err)
		}
	}
}

func TestSafetyBoundsValidate(t *testing.T) {
	if err := DefaultSafetyBounds().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	b := DefaultSafetyBounds()
	b.RateMin = 20
	if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("expected ErrInvalidBounds, got %v", err)
	}

	for _, rmin := range []float64{0, -1, math.NaN()} {
		b = DefaultSafetyBounds()
		b.RateMin = rmin
		if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
			t.Fatalf("r_min=%v: expected ErrInvalidBounds, got %v", rmin, err)
		}
	}

	b = DefaultSafetyBounds()
	b.SafetyMultiplier = 0
	if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("expected ErrInvalidBounds for zero multiplier, got %v", err)
	}

	b = DefaultSafetyBounds()
	b.SafetyMultiplier = 1.2
	if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("expected ErrInvalidBounds for multiplier > 1, got %v", err)
	}
}

func TestValidateDivisors(t *testing.T) {
	in := SessionInputs{Weight: 72, DurationMinutes: 240}
	if err := in.ValidateDivisors(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in.Weight = 0
	err := in.ValidateDivisors()
	if !errors.Is(err, ErrNonPositiveDivisor) {
		t.Fatalf("expected ErrNonPositiveDivisor, got %v", err)
	}
	var de *DomainError
	if !errors.As(err, &de) || de.Field != "weight" {
		t.Fatalf("expected weight field in error, got %v", err)
	}

	in = SessionInputs{Weight: 72, DurationMinutes: -1}
	if err := in.ValidateDivisors(); !errors.Is(err, ErrNonPositiveDivisor) {
		t.Fatalf("expected ErrNonPositiveDivisor for duration, got %v", err)
	}
}

func TestIsDomainError(t *testing.T) {
	if IsDomainError(errors.New("plain")) {
		t.Fatal("plain error is not a domain error")
	}
	_, err := LogitTarget(0)
	if !IsDomainError(err) {
		t.Fatal("expected domain error")
	}
	if errors.Is(err, ErrZeroRateSensitivity) {
		t.Fatal("kinds should not match across sentinels")
	}
}
