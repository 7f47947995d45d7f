package logging

import "time"

// #region session-entry
// SessionEntry is a single row in the session_log table.
type SessionEntry struct {
	ID           int64
	SessionID    string
	PatientID    string
	VersionID    string
	TriggerType  string // "plan" | "learn"
	InputsJSON   string
	ActualsJSON  string
	SnapshotJSON string
	Decision     string // "commit" | "reject" | "no_op"
	Reason       string
	CreatedAt    time.Time
}

// #endregion session-entry

const (
	TriggerPlan  = "plan"
	TriggerLearn = "learn"
)
