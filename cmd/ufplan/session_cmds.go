package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/snapshot"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/transport"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/update"
)

// #region plan-cmd
func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		inputsPath   string
		offset       float64
		snapshotPath string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the safe UF rate, fluid balance and extension for a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(inputsPath)
			if err != nil {
				return err
			}
			b, cfg, closeFn, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			req := transport.PlanRequest{SessionID: sess.SessionID, Inputs: cfg.ApplyTargets(sess.Inputs)}
			if cmd.Flags().Changed("offset") {
				req.Offset = &offset
			}
			resp, err := b.Plan(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeSnapshot(snapshotPath, resp.Snapshot); err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printPlan(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&inputsPath, "inputs", "", "session file (JSON or YAML); a missing tau or omega takes the [targets] default")
	cmd.Flags().Float64Var(&offset, "offset", 0, "use this γ0 offset instead of the patient's stored one")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "write the session snapshot JSON to this path")
	_ = cmd.MarkFlagRequired("inputs")
	return cmd
}

// #endregion plan-cmd

// #region learn-cmd
func newLearnCmd(opts *rootOptions) *cobra.Command {
	var (
		inputsPath     string
		offset         float64
		snapshotPath   string
		ufTotal        float64
		durationActual float64
		outcome        string
	)
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Update the patient's offset from post-session actuals",
		Long:  "learn replays the plan for a session, reconstructs the UF rate actually used and moves the γ0 offset toward the hindsight target. Actuals come from the session file unless given as flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(inputsPath)
			if err != nil {
				return err
			}
			act := update.Actuals{}
			if sess.Actuals != nil {
				act = *sess.Actuals
			}
			flags := cmd.Flags()
			if flags.Changed("uf-total") {
				act.UFActualTotalL = ufTotal
			}
			if flags.Changed("duration-actual") {
				act.DurationActualMin = durationActual
			}
			if flags.Changed("outcome") {
				if act.Outcome, err = parseOutcome(outcome); err != nil {
					return err
				}
			}

			b, cfg, closeFn, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			req := transport.LearnRequest{SessionID: sess.SessionID, Inputs: cfg.ApplyTargets(sess.Inputs), Actuals: act}
			if flags.Changed("offset") {
				req.Offset = &offset
			}
			resp, err := b.Learn(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeSnapshot(snapshotPath, resp.Snapshot); err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printLearn(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&inputsPath, "inputs", "", "session file (JSON or YAML); a missing tau or omega takes the [targets] default")
	f.Float64Var(&offset, "offset", 0, "use this γ0 offset instead of the patient's stored one; nothing is persisted")
	f.StringVar(&snapshotPath, "snapshot", "", "write the session snapshot JSON to this path")
	f.Float64Var(&ufTotal, "uf-total", 0, "actual total UF removed, L")
	f.Float64Var(&durationActual, "duration-actual", 0, "actual session duration, min")
	f.StringVar(&outcome, "outcome", "ok", "session outcome: ok or hypotension")
	_ = cmd.MarkFlagRequired("inputs")
	return cmd
}

func parseOutcome(s string) (update.Outcome, error) {
	switch s {
	case "ok", "0":
		return update.OutcomeOK, nil
	case "hypotension", "1":
		return update.OutcomeHypotension, nil
	}
	return 0, fmt.Errorf("unknown outcome %q (want ok or hypotension)", s)
}

// #endregion learn-cmd

func writeSnapshot(path string, rec snapshot.Record) error {
	if path == "" {
		return nil
	}
	data, err := snapshot.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
