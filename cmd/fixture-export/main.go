package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/logging"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/replay"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the ufplan SQLite database")
	patientID := flag.String("patient", "", "patient whose sessions are exported")
	last := flag.Int("last", 0, "export only the N most recent sessions (0 = all)")
	outPath := flag.String("out", "", "output fixture path (.json, .yaml or .yml)")
	flag.Parse()

	if *dbPath == "" || *patientID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/ufplan.db --patient id --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *patientID, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, patientID string, last int, outPath string) error {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	entries, err := logging.ListSessions(store.DB(), patientID, 0)
	if err != nil {
		return err
	}
	f, err := replay.FixtureFromLog(entries, patientID, 0)
	if err != nil {
		return err
	}

	if last > 0 && len(f.Sessions) > last {
		drop := len(f.Sessions) - last
		f.Sessions = f.Sessions[drop:]
		f.ExpectedResults = f.ExpectedResults[drop:]
		f.Description = fmt.Sprintf("last %d sessions for patient %s", last, patientID)
	}

	start, err := startOffset(store, entries, f.Sessions[0].SessionID, patientID)
	if err != nil {
		return err
	}
	f.StartOffset = start

	if err := replay.WriteFixture(f, outPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d sessions for %s to %s (start offset %.4f)\n", len(f.Sessions), patientID, outPath, start)
	return nil
}

// startOffset is the offset in effect when sessionID was planned. A committed
// learn entry records the version it created, so its parent is used. It falls
// back to the patient's root version when the log has no version for it.
func startOffset(store *state.Store, entries []logging.SessionEntry, sessionID, patientID string) (float64, error) {
	for _, e := range entries {
		if e.SessionID != sessionID || e.VersionID == "" {
			continue
		}
		rec, err := store.GetVersion(e.VersionID)
		if err == nil && e.TriggerType == logging.TriggerLearn && e.Decision == replay.ActionCommit && rec.ParentID != "" {
			rec, err = store.GetVersion(rec.ParentID)
		}
		if err == nil {
			return rec.BiasOffset, nil
		}
		if !errors.Is(err, state.ErrVersionNotFound) {
			return 0, err
		}
		break
	}
	rec, err := store.GetInitial(patientID)
	if err != nil {
		return 0, fmt.Errorf("find start offset: %w", err)
	}
	return rec.BiasOffset, nil
}

// #endregion extract
