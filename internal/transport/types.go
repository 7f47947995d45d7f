package transport

import (
	"time"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/eval"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/planner"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// #region requests
// PlanRequest asks for a session plan. Offset overrides the patient's stored
// offset when set.
type PlanRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Inputs    risk.SessionInputs `json:"inputs"`
	Offset    *float64           `json:"offset,omitempty"`
}

// LearnRequest submits post-session actuals for one planned session.
type LearnRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Inputs    risk.SessionInputs `json:"inputs"`
	Actuals   update.Actuals     `json:"actuals"`
	Offset    *float64           `json:"offset,omitempty"`
}

// HistoryRequest selects a patient's offset versions and session log.
type HistoryRequest struct {
	PatientID string `json:"patient_id"`
	Limit     int    `json:"limit,omitempty"`
}

// RollbackRequest moves a patient's active offset to an earlier version.
type RollbackRequest struct {
	PatientID string `json:"patient_id"`
	VersionID string `json:"version_id"`
}

// #endregion requests

// #region responses
// PlanResponse is the recommendation for one session.
type PlanResponse struct {
	SessionID string             `json:"session_id"`
	PatientID string             `json:"patient_id"`
	VersionID string             `json:"version_id,omitempty"`
	Offset    float64            `json:"offset"`
	Plan      planner.PlanResult `json:"plan"`
	Eval      eval.EvalResult    `json:"eval"`
	Snapshot  snapshot.Record    `json:"snapshot"`
}

// LearnResponse reports the learning step and whether it was persisted.
type LearnResponse struct {
	SessionID      string             `json:"session_id"`
	PatientID      string             `json:"patient_id"`
	Action         string             `json:"action"`
	Reason         string             `json:"reason"`
	PriorVersionID string             `json:"prior_version_id,omitempty"`
	VersionID      string             `json:"version_id,omitempty"`
	Plan           planner.PlanResult `json:"plan"`
	Learn          update.LearnResult `json:"learn"`
	Eval           *eval.EvalResult   `json:"eval,omitempty"`
	Snapshot       snapshot.Record    `json:"snapshot"`
}

// VersionView is one stored offset version.
type VersionView struct {
	VersionID   string    `json:"version_id"`
	ParentID    string    `json:"parent_id,omitempty"`
	BiasOffset  float64   `json:"gamma0_offset"`
	CreatedAt   time.Time `json:"created_at"`
	MetricsJSON string    `json:"metrics_json,omitempty"`
	Active      bool      `json:"active"`
}

// SessionView is one audit-log row.
type SessionView struct {
	SessionID   string    `json:"session_id"`
	TriggerType string    `json:"trigger_type"`
	VersionID   string    `json:"version_id,omitempty"`
	Decision    string    `json:"decision"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse lists a patient's offset versions and sessions.
type HistoryResponse struct {
	PatientID       string        `json:"patient_id"`
	ActiveVersionID string        `json:"active_version_id"`
	Versions        []VersionView `json:"versions"`
	Sessions        []SessionView `json:"sessions"`
}

// RollbackResponse confirms the new active version.
type RollbackResponse struct {
	PatientID  string  `json:"patient_id"`
	VersionID  string  `json:"version_id"`
	BiasOffset float64 `json:"gamma0_offset"`
}

// #endregion responses
