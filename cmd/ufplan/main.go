package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	remote     string
	noStore    bool
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          "ufplan",
		Short:        "Ultrafiltration rate planner for hemodialysis sessions",
		Long:         "ufplan computes a risk-bounded maximum UF rate, the fluid balance and any session extension for one dialysis session, and learns a per-patient offset from post-session outcomes.",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (TOML, YAML or JSON)")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database path (default $UFPLAN_DB or storage.db from config)")
	pf.StringVar(&opts.remote, "remote", "", "address of a running ufplan server; plan/learn/history/rollback go over gRPC")
	pf.BoolVar(&opts.noStore, "no-store", false, "run without persisting offsets or the session log")
	pf.BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(
		newPlanCmd(opts),
		newLearnCmd(opts),
		newHistoryCmd(opts),
		newRollbackCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}
