package logging

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// #region log-session
// LogSession writes an audit entry to the session_log table.
func LogSession(db *sql.DB, entry SessionEntry) error {
	if entry.SessionID == "" || entry.PatientID == "" {
		return errors.New("log session: session and patient id are required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO session_log (session_id, patient_id, version_id, trigger_type, inputs_json, actuals_json, snapshot_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.PatientID,
		nullIfEmpty(entry.VersionID),
		entry.TriggerType,
		nullIfEmpty(entry.InputsJSON),
		nullIfEmpty(entry.ActualsJSON),
		nullIfEmpty(entry.SnapshotJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log session: %w", err)
	}
	return nil
}

// #endregion log-session

// #region list-sessions
// ListSessions returns a patient's audit entries in insertion order. A
// non-positive limit returns every entry.
func ListSessions(db *sql.DB, patientID string, limit int) ([]SessionEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT id, session_id, patient_id, version_id, trigger_type, inputs_json, actuals_json, snapshot_json, decision, reason, created_at
		 FROM session_log WHERE patient_id = ?
		 ORDER BY id ASC LIMIT ?`, patientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionEntry
	for rows.Next() {
		var e SessionEntry
		var versionID, inputs, actuals, snapshot, reason sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.PatientID, &versionID, &e.TriggerType,
			&inputs, &actuals, &snapshot, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		e.VersionID = versionID.String
		e.InputsJSON = inputs.String
		e.ActualsJSON = actuals.String
		e.SnapshotJSON = snapshot.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-sessions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
