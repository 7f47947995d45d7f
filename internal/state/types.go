package state

import "time"

// #region offset-record
// OffsetRecord is a versioned snapshot of one patient's learned bias offset.
type OffsetRecord struct {
	VersionID   string
	ParentID    string
	PatientID   string
	BiasOffset  float64
	CreatedAt   time.Time
	MetricsJSON string
}

// #endregion offset-record
