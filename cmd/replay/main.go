package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/config"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/logging"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/replay"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the ufplan SQLite database (DB mode)")
	patientID := flag.String("patient", "", "patient whose session log is replayed (DB mode)")
	configPath := flag.String("config", "", "config file for DB mode (default: built-in coefficients)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON or YAML (fixture mode)")
	verbose := flag.Bool("v", false, "print rates and offsets per session")
	flag.Parse()

	dbMode := *dbPath != "" && *patientID != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/ufplan.db --patient id [--config ufplan.toml] [-v]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}

	var (
		f   *replay.Fixture
		err error
	)
	if dbMode {
		f, err = fixtureFromDB(*dbPath, *patientID, *configPath)
	} else {
		f, err = replay.LoadFixture(*fixturePath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(f, *verbose))
}

// #endregion main

// #region db-extract

func fixtureFromDB(dbPath, patientID, configPath string) (*replay.Fixture, error) {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	initial, err := store.GetInitial(patientID)
	if err != nil {
		return nil, err
	}
	entries, err := logging.ListSessions(store.DB(), patientID, 0)
	if err != nil {
		return nil, err
	}
	f, err := replay.FixtureFromLog(entries, patientID, initial.BiasOffset)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if f.Config, err = config.Load(viper.New(), configPath); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// #endregion db-extract

// #region output

func run(f *replay.Fixture, verbose bool) int {
	results := replay.Replay(f.StartOffset, f.ToSessions(), f.ToReplayConfig())

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}
	code := printComparison(results, expected, verbose)
	fmt.Println(replay.Summarize(results, f.StartOffset))
	return code
}

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.ReplayResult, expected []string, verbose bool) int {
	fmt.Printf("%-14s| %-15s| %-15s| %s\n", "Session", "Expected", "Replayed", "Match")
	fmt.Printf("%-14s+%-15s+%-15s+%s\n",
		"--------------", "----------------", "----------------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		r := results[i]
		exp := expected[i]
		match := "DIFF"
		if exp == r.Action {
			match = "OK"
			matches++
		}
		fmt.Printf("%-14s| %-15s| %-15s| %s\n", r.SessionID, exp, r.Action, match)
		if verbose {
			printDetail(r)
		}
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

func printDetail(r replay.ReplayResult) {
	if r.Plan != nil {
		fmt.Printf("    r_max_dyn %.2f  UF_cap %.2f L  deficit %.2f L  guard %v\n",
			r.Plan.SafeRate, r.Plan.UFCap, r.Plan.UFDeficit, r.Plan.HypotensionGuardTriggered)
	}
	if r.Learn != nil {
		fmt.Printf("    offset %.4f -> %.4f  r_max_next_dyn %.2f\n",
			r.OffsetBefore, r.OffsetAfter, r.Learn.Next.Final)
	}
	if r.Reason != "" {
		fmt.Printf("    %s\n", r.Reason)
	}
}

// #endregion output
