package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS offset_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	patient_id    TEXT NOT NULL,
	bias_offset   REAL NOT NULL,
	created_at    TEXT NOT NULL,
	metrics_json  TEXT,
	FOREIGN KEY (parent_id) REFERENCES offset_versions(version_id)
);

CREATE INDEX IF NOT EXISTS idx_offset_versions_patient ON offset_versions(patient_id, created_at);

CREATE TABLE IF NOT EXISTS session_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	patient_id    TEXT NOT NULL,
	version_id    TEXT,
	trigger_type  TEXT NOT NULL,
	inputs_json   TEXT,
	actuals_json  TEXT,
	snapshot_json TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_offset (
	patient_id    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES offset_versions(version_id)
);
`

// #endregion schema

var (
	// ErrNoActiveOffset is returned when a patient has no active offset version.
	ErrNoActiveOffset = errors.New("no active offset")
	// ErrVersionNotFound is returned when a version id does not exist for the patient.
	ErrVersionNotFound = errors.New("version not found")
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region store-struct
// Store manages versioned per-patient offsets in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// busyTimeoutMS is how long a statement waits on a lock held by another
// process before failing with SQLITE_BUSY.
const busyTimeoutMS = 5000

// #region constructor
// NewStore opens a SQLite database and runs migrations. The pool holds a
// single connection, so the per-connection pragmas cover every statement and
// concurrent callers queue on the pool rather than failing with SQLITE_BUSY.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS)); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-migrated *sql.DB. Used by tests that need
// to corrupt the schema underneath the store.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region create-initial
// CreateInitialState creates a zero-offset version for the patient and makes it active.
func (s *Store) CreateInitialState(patientID string) (OffsetRecord, error) {
	if patientID == "" {
		return OffsetRecord{}, errors.New("patient id is empty")
	}
	rec := OffsetRecord{
		VersionID: uuid.New().String(),
		PatientID: patientID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CommitState(rec); err != nil {
		return OffsetRecord{}, fmt.Errorf("create initial: %w", err)
	}
	return rec, nil
}

// EnsureCurrent returns the active offset, creating a zero offset on first use.
// Concurrent first calls for one patient create a single root version.
func (s *Store) EnsureCurrent(patientID string) (OffsetRecord, error) {
	rec, err := s.GetCurrent(patientID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNoActiveOffset) {
		return OffsetRecord{}, err
	}
	if patientID == "" {
		return OffsetRecord{}, errors.New("patient id is empty")
	}

	rec = OffsetRecord{
		VersionID: uuid.New().String(),
		PatientID: patientID,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.createRootIfAbsent(rec)
	if err != nil {
		return OffsetRecord{}, fmt.Errorf("create initial: %w", err)
	}
	if created {
		return rec, nil
	}
	return s.GetCurrent(patientID)
}

// createRootIfAbsent inserts rec and makes it active unless the patient
// already has an active version, in which case nothing is written.
func (s *Store) createRootIfAbsent(rec OffsetRecord) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO offset_versions (version_id, parent_id, patient_id, bias_offset, created_at, metrics_json)
		 VALUES (?, NULL, ?, ?, ?, NULL)`,
		rec.VersionID, rec.PatientID, rec.BiasOffset, rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("insert version: %w", err)
	}

	res, err := tx.Exec(
		`INSERT INTO active_offset (patient_id, version_id) VALUES (?, ?)
		 ON CONFLICT(patient_id) DO NOTHING`,
		rec.PatientID, rec.VersionID,
	)
	if err != nil {
		return false, fmt.Errorf("set active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set active: %w", err)
	}
	if n == 0 {
		// Lost the race; the deferred rollback discards the orphan version.
		return false, nil
	}
	return true, tx.Commit()
}

// #endregion create-initial

// #region get-current
// GetCurrent reads the patient's active offset version.
func (s *Store) GetCurrent(patientID string) (OffsetRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_offset WHERE patient_id = ?`, patientID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return OffsetRecord{}, fmt.Errorf("patient %s: %w", patientID, ErrNoActiveOffset)
	}
	if err != nil {
		return OffsetRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific offset version by ID.
func (s *Store) GetVersion(id string) (OffsetRecord, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, patient_id, bias_offset, created_at, metrics_json
		 FROM offset_versions WHERE version_id = ?`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OffsetRecord{}, fmt.Errorf("get version %s: %w", id, ErrVersionNotFound)
	}
	if err != nil {
		return OffsetRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// GetInitial returns the patient's root version, the one with no parent.
func (s *Store) GetInitial(patientID string) (OffsetRecord, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, patient_id, bias_offset, created_at, metrics_json
		 FROM offset_versions WHERE patient_id = ? AND parent_id IS NULL
		 ORDER BY created_at ASC, rowid ASC LIMIT 1`, patientID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OffsetRecord{}, fmt.Errorf("initial version for %s: %w", patientID, ErrVersionNotFound)
	}
	if err != nil {
		return OffsetRecord{}, fmt.Errorf("initial version for %s: %w", patientID, err)
	}
	return rec, nil
}

// #endregion get-version

// #region commit-state
// CommitState inserts a new version and moves the patient's active pointer atomically.
func (s *Store) CommitState(rec OffsetRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO offset_versions (version_id, parent_id, patient_id, bias_offset, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.VersionID, nullIfEmpty(rec.ParentID), rec.PatientID, rec.BiasOffset,
		rec.CreatedAt.UTC().Format(timeLayout), nullIfEmpty(rec.MetricsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_offset (patient_id, version_id) VALUES (?, ?)
		 ON CONFLICT(patient_id) DO UPDATE SET version_id = excluded.version_id`,
		rec.PatientID, rec.VersionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}

	return tx.Commit()
}

// #endregion commit-state

// #region rollback
// Rollback points the patient's active offset at a previous version.
func (s *Store) Rollback(patientID, targetVersionID string) error {
	var owner string
	err := s.db.QueryRow(
		`SELECT patient_id FROM offset_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rollback to %s: %w", targetVersionID, ErrVersionNotFound)
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if owner != patientID {
		return fmt.Errorf("rollback to %s: belongs to patient %s, not %s: %w", targetVersionID, owner, patientID, ErrVersionNotFound)
	}

	_, err = s.db.Exec(`UPDATE active_offset SET version_id = ? WHERE patient_id = ?`, targetVersionID, patientID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the patient's most recent offset versions, newest first.
func (s *Store) ListVersions(patientID string, limit int) ([]OffsetRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, patient_id, bias_offset, created_at, metrics_json
		 FROM offset_versions WHERE patient_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, patientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []OffsetRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListPatients returns every patient with an active offset.
func (s *Store) ListPatients() ([]string, error) {
	rows, err := s.db.Query(`SELECT patient_id FROM active_offset ORDER BY patient_id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// #endregion list-versions

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(r scanner) (OffsetRecord, error) {
	var rec OffsetRecord
	var parentID sql.NullString
	var createdStr string
	var metricsJSON sql.NullString

	if err := r.Scan(&rec.VersionID, &parentID, &rec.PatientID, &rec.BiasOffset, &createdStr, &metricsJSON); err != nil {
		return OffsetRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if metricsJSON.Valid {
		rec.MetricsJSON = metricsJSON.String
	}
	return rec, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
