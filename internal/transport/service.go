package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/eval"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/logging"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/replay"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// ErrNoStore is returned by operations that need persistence when the
// service runs without a store.
var ErrNoStore = errors.New("no offset store configured")

// #region service
// Service runs plan and learn requests against the engine and, when a store
// is attached, persists offsets and writes the session audit log.
type Service struct {
	config replay.ReplayConfig
	store  *state.Store

	onAuditError func(error)

	// mu serializes read-modify-write of a patient's active offset.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithAuditErrorHandler receives session-log write failures. Audit writes
// never fail the request itself.
func WithAuditErrorHandler(fn func(error)) Option {
	return func(s *Service) { s.onAuditError = fn }
}

// NewService creates a service. store may be nil for stateless use.
func NewService(config replay.ReplayConfig, store *state.Store, opts ...Option) *Service {
	s := &Service{config: config, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// #endregion service

// #region plan
// Plan computes the session recommendation with the patient's current offset.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (PlanResponse, error) {
	if err := ctx.Err(); err != nil {
		return PlanResponse{}, err
	}
	sessionID := orNewID(req.SessionID)

	offset, versionID, err := s.resolveOffset(req.Inputs.PatientID, req.Offset)
	if err != nil {
		return PlanResponse{}, err
	}

	plan, err := planner.Plan(s.config.Planner, req.Inputs, offset)
	if err != nil {
		s.audit(logging.SessionEntry{
			SessionID: sessionID, PatientID: req.Inputs.PatientID, VersionID: versionID,
			TriggerType: logging.TriggerPlan, InputsJSON: toJSON(req.Inputs),
			Decision: replay.ActionPlanError, Reason: err.Error(),
		})
		return PlanResponse{}, fmt.Errorf("plan: %w", err)
	}

	result := eval.NewEvalHarness(s.config.EvalConfig).Run(plan, s.config.Planner.Bounds)
	snap := snapshot.Build(req.Inputs, plan, nil)

	decision := replay.ActionNoOp
	if !result.Passed {
		decision = replay.ActionEvalRollback
	}
	s.audit(logging.SessionEntry{
		SessionID: sessionID, PatientID: req.Inputs.PatientID, VersionID: versionID,
		TriggerType: logging.TriggerPlan, InputsJSON: toJSON(req.Inputs), SnapshotJSON: snapshotJSON(snap),
		Decision: decision, Reason: result.Reason,
	})

	return PlanResponse{
		SessionID: sessionID,
		PatientID: req.Inputs.PatientID,
		VersionID: versionID,
		Offset:    offset,
		Plan:      plan,
		Eval:      result,
		Snapshot:  snap,
	}, nil
}

// #endregion plan

// #region learn
// Learn runs the post-session step. A committed offset becomes the
// patient's new active version.
func (s *Service) Learn(ctx context.Context, req LearnRequest) (LearnResponse, error) {
	if err := ctx.Err(); err != nil {
		return LearnResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := orNewID(req.SessionID)
	offset, priorVersion, err := s.resolveOffset(req.Inputs.PatientID, req.Offset)
	if err != nil {
		return LearnResponse{}, err
	}

	actuals := req.Actuals
	r := replay.Step(s.config, replay.Session{SessionID: sessionID, Inputs: req.Inputs, Actuals: &actuals}, offset)

	entry := logging.SessionEntry{
		SessionID: sessionID, PatientID: req.Inputs.PatientID, VersionID: priorVersion,
		TriggerType: logging.TriggerLearn, InputsJSON: toJSON(req.Inputs), ActualsJSON: toJSON(actuals),
		Decision: r.Action, Reason: r.Reason,
	}
	if r.Err != nil {
		s.audit(entry)
		return LearnResponse{}, fmt.Errorf("learn: %w", r.Err)
	}

	resp := LearnResponse{
		SessionID:      sessionID,
		PatientID:      req.Inputs.PatientID,
		Action:         r.Action,
		Reason:         r.Reason,
		PriorVersionID: priorVersion,
		VersionID:      priorVersion,
		Plan:           *r.Plan,
		Eval:           r.LearnEval,
	}
	if r.LearnEval == nil {
		resp.Eval = r.PlanEval
	}
	if r.Learn != nil {
		resp.Learn = *r.Learn
		resp.Snapshot = snapshot.Build(req.Inputs, *r.Plan, &snapshot.Learning{Actuals: actuals, Result: *r.Learn})
	} else {
		resp.Snapshot = snapshot.Build(req.Inputs, *r.Plan, nil)
	}

	if r.Action == replay.ActionCommit && s.store != nil && req.Offset == nil && req.Inputs.PatientID != "" {
		rec := state.OffsetRecord{
			VersionID:   uuid.New().String(),
			ParentID:    priorVersion,
			PatientID:   req.Inputs.PatientID,
			BiasOffset:  r.OffsetAfter,
			MetricsJSON: learnMetrics(sessionID, actuals, r),
		}
		if err := s.store.CommitState(rec); err != nil {
			return LearnResponse{}, fmt.Errorf("commit offset: %w", err)
		}
		resp.VersionID = rec.VersionID
		entry.VersionID = rec.VersionID
	}

	entry.SnapshotJSON = snapshotJSON(resp.Snapshot)
	s.audit(entry)
	return resp, nil
}

// #endregion learn

// #region history
// History returns a patient's offset versions, newest first, and the
// session log in order.
func (s *Service) History(ctx context.Context, req HistoryRequest) (HistoryResponse, error) {
	if err := ctx.Err(); err != nil {
		return HistoryResponse{}, err
	}
	if s.store == nil {
		return HistoryResponse{}, ErrNoStore
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	resp := HistoryResponse{PatientID: req.PatientID}
	cur, err := s.store.GetCurrent(req.PatientID)
	if err != nil {
		return HistoryResponse{}, err
	}
	resp.ActiveVersionID = cur.VersionID

	versions, err := s.store.ListVersions(req.PatientID, limit)
	if err != nil {
		return HistoryResponse{}, err
	}
	for _, v := range versions {
		resp.Versions = append(resp.Versions, VersionView{
			VersionID:   v.VersionID,
			ParentID:    v.ParentID,
			BiasOffset:  v.BiasOffset,
			CreatedAt:   v.CreatedAt,
			MetricsJSON: v.MetricsJSON,
			Active:      v.VersionID == cur.VersionID,
		})
	}

	sessions, err := logging.ListSessions(s.store.DB(), req.PatientID, 0)
	if err != nil {
		return HistoryResponse{}, err
	}
	for _, e := range sessions {
		resp.Sessions = append(resp.Sessions, SessionView{
			SessionID:   e.SessionID,
			TriggerType: e.TriggerType,
			VersionID:   e.VersionID,
			Decision:    e.Decision,
			Reason:      e.Reason,
			CreatedAt:   e.CreatedAt,
		})
	}
	return resp, nil
}

// Rollback points the patient's active offset at an earlier version.
func (s *Service) Rollback(ctx context.Context, req RollbackRequest) (RollbackResponse, error) {
	if err := ctx.Err(); err != nil {
		return RollbackResponse{}, err
	}
	if s.store == nil {
		return RollbackResponse{}, ErrNoStore
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Rollback(req.PatientID, req.VersionID); err != nil {
		return RollbackResponse{}, err
	}
	cur, err := s.store.GetCurrent(req.PatientID)
	if err != nil {
		return RollbackResponse{}, err
	}
	return RollbackResponse{PatientID: req.PatientID, VersionID: cur.VersionID, BiasOffset: cur.BiasOffset}, nil
}

// #endregion history

// #region helpers
// resolveOffset picks the explicit offset, else the stored one, else zero.
func (s *Service) resolveOffset(patientID string, explicit *float64) (float64, string, error) {
	if explicit != nil {
		return *explicit, "", nil
	}
	if s.store == nil || patientID == "" {
		return 0, "", nil
	}
	rec, err := s.store.EnsureCurrent(patientID)
	if err != nil {
		return 0, "", fmt.Errorf("load offset: %w", err)
	}
	return rec.BiasOffset, rec.VersionID, nil
}

// audit writes to the session log when a store is attached.
func (s *Service) audit(e logging.SessionEntry) {
	if s.store == nil || e.PatientID == "" {
		return
	}
	if err := logging.LogSession(s.store.DB(), e); err != nil && s.onAuditError != nil {
		s.onAuditError(err)
	}
}

// learnMetrics records why a version was committed.
func learnMetrics(sessionID string, act update.Actuals, r replay.ReplayResult) string {
	m := struct {
		SessionID    string  `json:"session_id"`
		Outcome      string  `json:"outcome"`
		RateUsedLast float64 `json:"r_used_last"`
		POld         float64 `json:"p_old_last"`
		PTarget      float64 `json:"p_target"`
		DeltaLogit   float64 `json:"delta_logit"`
		Alpha        float64 `json:"alpha"`
		NextRate     float64 `json:"r_max_next_dyn"`
	}{
		SessionID: sessionID,
		Outcome:   act.Outcome.String(),
	}
	if r.Learn != nil {
		m.RateUsedLast = r.Learn.ObservedRate
		m.POld = r.Learn.Update.POld
		m.PTarget = r.Learn.Update.PTarget
		m.DeltaLogit = r.Learn.Update.DeltaLogit
		m.Alpha = r.Learn.Update.Alpha
		m.NextRate = r.Learn.Next.Final
	}
	return toJSON(m)
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func snapshotJSON(r snapshot.Record) string {
	data, err := snapshot.Marshal(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// #endregion helpers
