package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/config"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/replay"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/transport"
)

// backend is satisfied by both the in-process Service and the gRPC client.
type backend interface {
	Plan(context.Context, transport.PlanRequest) (transport.PlanResponse, error)
	Learn(context.Context, transport.LearnRequest) (transport.LearnResponse, error)
	History(context.Context, transport.HistoryRequest) (transport.HistoryResponse, error)
	Rollback(context.Context, transport.RollbackRequest) (transport.RollbackResponse, error)
}

var (
	_ backend = (*transport.Service)(nil)
	_ backend = (*transport.PlannerClient)(nil)
)

// #region load-config
func loadConfig(opts *rootOptions) (config.File, error) {
	f, err := config.Load(viper.New(), opts.configPath)
	if err != nil {
		return config.File{}, err
	}
	if db := envOr("UFPLAN_DB", ""); db != "" {
		f.Storage.DB = db
	}
	if opts.dbPath != "" {
		f.Storage.DB = opts.dbPath
	}
	return f, nil
}

func replayConfig(f config.File) replay.ReplayConfig {
	return replay.ReplayConfig{
		Planner:    f.PlannerConfig(),
		Learn:      f.LearnConfig(),
		EvalConfig: f.EvalConfig(),
	}
}

// #endregion load-config

// #region open-backend
// openBackend returns the gRPC client when --remote is set, otherwise an
// in-process service over the configured store. The local config is returned
// in both cases for input defaults. The returned func releases the backend.
func openBackend(opts *rootOptions) (backend, config.File, func(), error) {
	f, err := loadConfig(opts)
	if err != nil {
		return nil, config.File{}, nil, err
	}

	if opts.remote != "" {
		client, err := transport.NewPlannerClient(opts.remote)
		if err != nil {
			return nil, config.File{}, nil, err
		}
		return client, f, func() { client.Close() }, nil
	}
	if opts.noStore {
		return transport.NewService(replayConfig(f), nil), f, func() {}, nil
	}

	store, err := state.NewStore(f.Storage.DB)
	if err != nil {
		return nil, config.File{}, nil, fmt.Errorf("open store %s: %w", f.Storage.DB, err)
	}
	svc := transport.NewService(replayConfig(f), store, transport.WithAuditErrorHandler(func(err error) {
		log.Printf("session log: %v", err)
	}))
	return svc, f, func() { store.Close() }, nil
}

// #endregion open-backend

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
