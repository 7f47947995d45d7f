package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// #region eval-harness
// EvalHarness re-checks the invariants of a computed plan or learning step
// before its result is persisted.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates a session plan against the bounds it was computed with.
func (h *EvalHarness) Run(plan planner.PlanResult, b risk.SafetyBounds) EvalResult {
	c := checker{tol: h.config.Tolerance}

	// 1. Safe rate inside bounds. A fired guard may take it below RateMin.
	floor := rateFloor(b, plan.Guard.Multiplier)
	c.check("safe_rate_bounds", plan.SafeRate,
		plan.SafeRate >= floor-c.tol && plan.SafeRate <= b.RateMax+c.tol,
		fmt.Sprintf("safe rate %.4f outside [%.4f, %.4f]", plan.SafeRate, floor, b.RateMax))

	// 2. Deficit = max(0, needed - cap).
	want := math.Max(0, plan.UFNeeded-plan.UFCap)
	diff := math.Abs(plan.UFDeficit - want)
	c.check("deficit_consistency", diff, diff <= c.tol,
		fmt.Sprintf("deficit %.6f differs from needed-cap %.6f", plan.UFDeficit, want))

	// 3. Extension minutes land on the rounding grid.
	c.extension(plan.Extension, plan.UFDeficit, b.RoundStepMinutes)

	// 4. Overhydration probability is a probability.
	c.check("overhydration_range", plan.OverhydrationRisk,
		plan.OverhydrationRisk >= 0 && plan.OverhydrationRisk <= 1,
		fmt.Sprintf("overhydration risk %.4f outside [0,1]", plan.OverhydrationRisk))

	return c.result()
}

// RunLearn validates a learning step: the next-session cap, the next rate
// bounds and the size of the learned offset.
func (h *EvalHarness) RunLearn(res update.LearnResult, b risk.SafetyBounds) EvalResult {
	c := checker{tol: h.config.Tolerance}

	limit := update.MaxNextRateRatio * res.Next.Base
	c.check("learning_cap", res.Next.Capped,
		res.Next.Capped <= limit+c.tol,
		fmt.Sprintf("next rate %.4f exceeds cap %.4f", res.Next.Capped, limit))

	floor := rateFloor(b, res.Next.Guard.Multiplier)
	c.check("next_rate_bounds", res.Next.Final,
		res.Next.Final >= floor-c.tol && res.Next.Final <= b.RateMax+c.tol,
		fmt.Sprintf("next rate %.4f outside [%.4f, %.4f]", res.Next.Final, floor, b.RateMax))

	off := math.Abs(res.State.BiasOffset)
	c.check("offset_magnitude", off, off <= h.config.MaxOffsetMagnitude,
		fmt.Sprintf("offset magnitude %.4f exceeds %.4f", off, h.config.MaxOffsetMagnitude))

	c.extension(res.Extension, res.UFDeficitNext, b.RoundStepMinutes)

	return c.result()
}

// #endregion eval-harness

// #region helpers
type checker struct {
	tol         float64
	metrics     []EvalMetric
	failReasons []string
}

func (c *checker) check(name string, value float64, pass bool, failReason string) {
	c.metrics = append(c.metrics, EvalMetric{Name: name, Value: value, Pass: pass})
	if !pass {
		c.failReasons = append(c.failReasons, failReason)
	}
}

func (c *checker) extension(ext planner.Extension, deficit float64, step int) {
	if step < 1 {
		step = 1
	}
	onGrid := ext.ExtraMinutes%step == 0 && ext.RecommendedTotalMinutes%step == 0
	// No deficit means no extra minutes.
	consistent := deficit > 0 || ext.ExtraMinutes == 0
	c.check("extension_step", float64(ext.ExtraMinutes), onGrid && consistent,
		fmt.Sprintf("extension %d/%d min not on %d-min grid or without deficit", ext.ExtraMinutes, ext.RecommendedTotalMinutes, step))
}

func (c *checker) result() EvalResult {
	reason := "all checks passed"
	if n := len(c.failReasons); n > 0 {
		reason = fmt.Sprintf("eval failed: %s", c.failReasons[0])
		if n > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", n, c.failReasons[0])
		}
	}
	return EvalResult{
		Passed:  len(c.failReasons) == 0,
		Metrics: c.metrics,
		Reason:  reason,
	}
}

func rateFloor(b risk.SafetyBounds, multiplier float64) float64 {
	if multiplier > 0 && multiplier < 1 {
		return b.RateMin * multiplier
	}
	return b.RateMin
}

// #endregion helpers
