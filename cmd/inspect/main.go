package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/logging"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("UFPLAN_DB", ""), "path to the ufplan SQLite database")
	patientID := flag.String("patient", "", "show one patient's offset versions and sessions")
	last := flag.Int("last", 20, "show N most recent versions")
	session := flag.String("session", "", "show the snapshot of one session (requires --patient)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" || (*session != "" && *patientID == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/ufplan.db [--patient id [--last N] [--session id]] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *session != "":
		err = runSessionMode(store, *patientID, *session, *jsonOut)
	case *patientID != "":
		err = runPatientMode(store, *patientID, *last, *jsonOut)
	default:
		err = runListMode(store, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type patientRow struct {
	PatientID  string  `json:"patient_id"`
	VersionID  string  `json:"active_version_id"`
	BiasOffset float64 `json:"gamma0_offset"`
	Sessions   int     `json:"sessions"`
	CreatedAt  string  `json:"created_at"`
}

func runListMode(store *state.Store, jsonOut bool) error {
	patients, err := store.ListPatients()
	if err != nil {
		return err
	}
	if len(patients) == 0 {
		fmt.Fprintln(os.Stderr, "no patients found")
		return nil
	}

	rows := make([]patientRow, 0, len(patients))
	for _, p := range patients {
		cur, err := store.GetCurrent(p)
		if err != nil {
			return err
		}
		entries, err := logging.ListSessions(store.DB(), p, 0)
		if err != nil {
			return err
		}
		rows = append(rows, patientRow{
			PatientID:  p,
			VersionID:  cur.VersionID,
			BiasOffset: cur.BiasOffset,
			Sessions:   countSessions(entries),
			CreatedAt:  cur.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-16s  %-12s  %10s  %8s  %s\n", "Patient", "Version", "Offset", "Sessions", "Since")
	fmt.Printf("%-16s+-%-12s+-%10s+-%8s+-%s\n",
		"----------------", "------------", "----------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-16s  %-12s  %10.4f  %8d  %s\n", r.PatientID, shortID(r.VersionID), r.BiasOffset, r.Sessions, r.CreatedAt)
	}
	return nil
}

func countSessions(entries []logging.SessionEntry) int {
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.SessionID] = true
	}
	return len(seen)
}

// #endregion list-mode

// #region patient-mode

type versionRow struct {
	VersionID  string  `json:"version_id"`
	ParentID   string  `json:"parent_id,omitempty"`
	BiasOffset float64 `json:"gamma0_offset"`
	Delta      float64 `json:"delta"`
	Active     bool    `json:"active"`
	CreatedAt  string  `json:"created_at"`
}

type sessionRow struct {
	SessionID string  `json:"session_id"`
	Trigger   string  `json:"trigger_type"`
	Decision  string  `json:"decision"`
	SafeRate  float64 `json:"r_max_dyn"`
	UFDeficit float64 `json:"UF_deficit_L"`
	ExtraMin  int     `json:"extra_minutes"`
	CreatedAt string  `json:"created_at"`
}

type patientOutput struct {
	PatientID string       `json:"patient_id"`
	Versions  []versionRow `json:"versions"`
	Sessions  []sessionRow `json:"sessions"`
}

func runPatientMode(store *state.Store, patientID string, last int, jsonOut bool) error {
	cur, err := store.GetCurrent(patientID)
	if err != nil {
		return err
	}
	versions, err := store.ListVersions(patientID, last)
	if err != nil {
		return err
	}
	entries, err := logging.ListSessions(store.DB(), patientID, 0)
	if err != nil {
		return err
	}

	out := patientOutput{PatientID: patientID}
	// store returns DESC, reverse for chronological
	out.Versions = make([]versionRow, len(versions))
	for i, v := range versions {
		row := versionRow{
			VersionID:  v.VersionID,
			ParentID:   v.ParentID,
			BiasOffset: v.BiasOffset,
			Active:     v.VersionID == cur.VersionID,
			CreatedAt:  v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if i+1 < len(versions) {
			row.Delta = v.BiasOffset - versions[i+1].BiasOffset
		}
		out.Versions[len(versions)-1-i] = row
	}
	for _, e := range entries {
		row := sessionRow{
			SessionID: e.SessionID,
			Trigger:   e.TriggerType,
			Decision:  e.Decision,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if rec, err := snapshot.Unmarshal([]byte(e.SnapshotJSON)); err == nil {
			row.SafeRate = rec.SafeRate
			row.UFDeficit = math.Max(0, rec.UFNeeded-rec.UFCap)
			row.ExtraMin = rec.ExtraMinutes
		}
		out.Sessions = append(out.Sessions, row)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Patient: %s\n\n", patientID)
	fmt.Printf("%-3s%-12s  %10s  %8s  %s\n", "", "Version", "Offset", "Delta", "Time")
	fmt.Printf("%-3s%-12s+-%10s+-%8s+-%s\n", "", "------------", "----------", "--------", "--------------------")
	for _, v := range out.Versions {
		mark := ""
		if v.Active {
			mark = "*"
		}
		fmt.Printf("%-3s%-12s  %10.4f  %8.4f  %s\n", mark, shortID(v.VersionID), v.BiasOffset, v.Delta, v.CreatedAt)
	}

	if len(out.Sessions) == 0 {
		return nil
	}
	fmt.Printf("\n%-14s  %-6s  %-14s  %9s  %8s  %-5s  %s\n", "Session", "Type", "Decision", "r_max_dyn", "Deficit", "Ext", "Time")
	for _, s := range out.Sessions {
		fmt.Printf("%-14s  %-6s  %-14s  %9.2f  %8.2f  %5d  %s\n",
			s.SessionID, s.Trigger, s.Decision, s.SafeRate, s.UFDeficit, s.ExtraMin, s.CreatedAt)
	}
	return nil
}

// #endregion patient-mode

// #region session-mode

func runSessionMode(store *state.Store, patientID, sessionID string, jsonOut bool) error {
	entries, err := logging.ListSessions(store.DB(), patientID, 0)
	if err != nil {
		return err
	}

	var latest *logging.SessionEntry
	for i := range entries {
		if entries[i].SessionID == sessionID {
			latest = &entries[i]
		}
	}
	if latest == nil {
		return fmt.Errorf("session %s not found for patient %s", sessionID, patientID)
	}
	if latest.SnapshotJSON == "" {
		return fmt.Errorf("session %s has no snapshot (decision %s: %s)", sessionID, latest.Decision, latest.Reason)
	}

	rec, err := snapshot.Unmarshal([]byte(latest.SnapshotJSON))
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rec)
	}

	fmt.Printf("Session:    %s (%s, %s)\n", sessionID, latest.TriggerType, latest.Decision)
	fmt.Printf("Version:    %s\n", latest.VersionID)
	fmt.Printf("Time:       %s\n", rec.SessionDT)
	fmt.Printf("r_max_dyn:  %.2f mL/kg/h\n", rec.SafeRate)
	fmt.Printf("UF cap:     %.2f L\n", rec.UFCap)
	fmt.Printf("UF needed:  %.2f L\n", rec.UFNeeded)
	fmt.Printf("UF rec:     %.2f L\n", rec.UFRecommended)
	fmt.Printf("P_over:     %.1f%%\n", rec.OverhydrationRisk*100)
	if rec.ExtraMinutes > 0 {
		fmt.Printf("Extension:  +%d min (total %d)\n", rec.ExtraMinutes, rec.RecommendedTotalMin)
	}
	if rec.SafeRateNext != nil {
		fmt.Printf("\nLearning:\n")
		fmt.Printf("  Offset:     %.4f", rec.OffsetCurrent)
		if rec.OffsetUpdated != nil {
			fmt.Printf(" -> %.4f", *rec.OffsetUpdated)
		}
		fmt.Println()
		if rec.RateUsedLast != nil {
			fmt.Printf("  Rate used:  %.2f mL/kg/h\n", *rec.RateUsedLast)
		}
		fmt.Printf("  Next rate:  %.2f mL/kg/h\n", *rec.SafeRateNext)
	}
	return nil
}

// #endregion session-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion output
