package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/config"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/transport"
)

// #region history-cmd
func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		patientID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a patient's offset versions and session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, closeFn, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := b.History(cmd.Context(), transport.HistoryRequest{PatientID: patientID, Limit: limit})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printHistory(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "", "patient id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of versions")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

// #endregion history-cmd

// #region rollback-cmd
func newRollbackCmd(opts *rootOptions) *cobra.Command {
	var patientID, versionID string
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Make an earlier offset version active for a patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, closeFn, err := openBackend(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := b.Rollback(cmd.Context(), transport.RollbackRequest{PatientID: patientID, VersionID: versionID})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s to %s (γ0 offset %.4f)\n", resp.PatientID, resp.VersionID, resp.BiasOffset)
			return nil
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "", "patient id")
	cmd.Flags().StringVar(&versionID, "version", "", "version id to activate")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

// #endregion rollback-cmd

// #region serve-cmd
func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.remote != "" {
				return errors.New("serve runs locally; drop --remote")
			}
			f, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = envOr("UFPLAN_ADDR", f.Server.Addr)
			}

			var store *state.Store
			if !opts.noStore {
				store, err = state.NewStore(f.Storage.DB)
				if err != nil {
					return fmt.Errorf("open store %s: %w", f.Storage.DB, err)
				}
				defer store.Close()
				log.Printf("State store: %s", f.Storage.DB)
			}

			svc := transport.NewService(replayConfig(f), store, transport.WithAuditErrorHandler(func(err error) {
				log.Printf("session log: %v", err)
			}))

			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			srv := grpc.NewServer()
			transport.NewPlannerServer(svc).Register(srv)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				log.Printf("Shutting down")
				srv.GracefulStop()
			}()

			log.Printf("Planner listening on %s", lis.Addr())
			if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $UFPLAN_ADDR or server.addr from config)")
	return cmd
}

// #endregion serve-cmd

// #region config-cmd
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "ufplan.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), f)
			}
			data, err := config.Encode(f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// #endregion config-cmd

