package replay

import (
	"fmt"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/eval"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// #region types
// Session is one recorded dialysis session for replay. Actuals is nil when
// only the plan was recorded.
type Session struct {
	SessionID string
	Inputs    risk.SessionInputs
	Actuals   *update.Actuals
}

// ReplayConfig bundles planner, learning, and eval configs for a replay run.
type ReplayConfig struct {
	Planner    planner.Config
	Learn      update.LearnConfig
	EvalConfig eval.EvalConfig
}

// DefaultReplayConfig returns the defaults for all pipeline stages.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Planner:    planner.DefaultConfig(),
		Learn:      update.DefaultLearnConfig(),
		EvalConfig: eval.DefaultEvalConfig(),
	}
}

// Actions recorded per session.
const (
	ActionCommit       = "commit"
	ActionNoOp         = "no_op"
	ActionPlanError    = "plan_error"
	ActionLearnError   = "learn_error"
	ActionEvalRollback = "eval_rollback"
)

// ReplayResult captures the outcome of replaying one session through the full pipeline.
type ReplayResult struct {
	SessionID string
	Action    string
	Reason    string
	Err       error // set for plan_error and learn_error

	// Plan stage (nil on plan_error)
	Plan     *planner.PlanResult
	PlanEval *eval.EvalResult

	// Learning stage (nil without actuals or when an earlier stage stopped)
	Learn     *update.LearnResult
	LearnEval *eval.EvalResult

	OffsetBefore float64
	OffsetAfter  float64
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSessions int
	Commits       int
	NoOps         int
	PlanErrors    int
	LearnErrors   int
	EvalRollbacks int
	FinalOffset   float64
}

// #endregion types

// #region step
// Step runs one session: plan → eval → learn → eval. The offset advances
// only on commit. Errors are recorded on the result, never returned.
func Step(config ReplayConfig, sess Session, offset float64) ReplayResult {
	res := ReplayResult{SessionID: sess.SessionID, OffsetBefore: offset, OffsetAfter: offset}
	harness := eval.NewEvalHarness(config.EvalConfig)

	// 1. Plan
	plan, err := planner.Plan(config.Planner, sess.Inputs, offset)
	if err != nil {
		res.Action = ActionPlanError
		res.Reason = err.Error()
		res.Err = err
		return res
	}
	res.Plan = &plan

	// 2. Eval plan
	planEval := harness.Run(plan, config.Planner.Bounds)
	res.PlanEval = &planEval
	if !planEval.Passed {
		res.Action = ActionEvalRollback
		res.Reason = planEval.Reason
		return res
	}

	// 3. Plan-only session
	if sess.Actuals == nil {
		res.Action = ActionNoOp
		res.Reason = "plan only, no actuals recorded"
		return res
	}

	// 4. Learn
	learn, err := update.Learn(config.Planner, config.Learn, sess.Inputs, *sess.Actuals, update.LearningState{BiasOffset: offset})
	if err != nil {
		res.Action = ActionLearnError
		res.Reason = err.Error()
		res.Err = err
		return res
	}
	res.Learn = &learn

	// 5. Eval learning step
	learnEval := harness.RunLearn(learn, config.Planner.Bounds)
	res.LearnEval = &learnEval
	if !learnEval.Passed {
		res.Action = ActionEvalRollback
		res.Reason = learnEval.Reason
		return res
	}

	if learn.Update.Decision.Action == ActionNoOp {
		res.Action = ActionNoOp
		res.Reason = learn.Update.Decision.Reason
		return res
	}

	// 6. Commit
	res.Action = ActionCommit
	res.Reason = learn.Update.Decision.Reason
	res.OffsetAfter = learn.State.BiasOffset
	return res
}

// #endregion step

// #region replay
// Replay iterates through sessions carrying the bias offset forward. A
// session that fails with a domain error is recorded and skipped; the
// remaining sessions still run. Operates entirely in-memory.
func Replay(startOffset float64, sessions []Session, config ReplayConfig) []ReplayResult {
	offset := startOffset
	results := make([]ReplayResult, 0, len(sessions))
	for _, sess := range sessions {
		r := Step(config, sess, offset)
		offset = r.OffsetAfter
		results = append(results, r)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, startOffset float64) ReplaySummary {
	s := ReplaySummary{
		TotalSessions: len(results),
		FinalOffset:   startOffset,
	}
	for _, r := range results {
		switch r.Action {
		case ActionCommit:
			s.Commits++
		case ActionNoOp:
			s.NoOps++
		case ActionPlanError:
			s.PlanErrors++
		case ActionLearnError:
			s.LearnErrors++
		case ActionEvalRollback:
			s.EvalRollbacks++
		}
		s.FinalOffset = r.OffsetAfter
	}
	return s
}

// String renders a one-line summary.
func (s ReplaySummary) String() string {
	return fmt.Sprintf("%d sessions: %d commit, %d no_op, %d plan_error, %d learn_error, %d eval_rollback; final offset %.4f",
		s.TotalSessions, s.Commits, s.NoOps, s.PlanErrors, s.LearnErrors, s.EvalRollbacks, s.FinalOffset)
}

// #endregion replay
