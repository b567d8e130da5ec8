// Copyright 2026 Bizledger Labs
// SPDX-License-Identifier: Apache-2.0

// possync is the device-side sync CLI. It reconciles a local SQLite store
// against a possync-server instance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bizledger/possync/cloudstore"
	"github.com/bizledger/possync/localstore"
	"github.com/bizledger/possync/possync"
)

var (
	flagDB     string
	flagServer string
	flagTenant string
	flagToken  string
)

func main() {
	root := &cobra.Command{
		Use:          "possync",
		Short:        "Synchronize a local POS database with the cloud",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagDB, "db", "possync.db", "path to the local SQLite database")
	root.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "base URL of the sync server")
	root.PersistentFlags().StringVar(&flagTenant, "tenant", "", "tenant ID (must match the token subject)")
	root.PersistentFlags().StringVar(&flagToken, "token", "", "JWT bearer token")

	root.AddCommand(syncCmd(), refreshCmd(), signoutCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a full two-way reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(cmd.Context(), func(ctx context.Context, syncer *possync.Syncer) error {
				return syncer.SyncAll(ctx, flagTenant)
			})
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Discard local data and re-pull everything from the cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(cmd.Context(), func(ctx context.Context, syncer *possync.Syncer) error {
				return syncer.RefreshFromCloudOnLogin(ctx, flagTenant)
			})
		},
	}
}

func signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Purge all synchronized local data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(cmd.Context(), func(ctx context.Context, syncer *possync.Syncer) error {
				return syncer.ClearLocalData(ctx)
			})
		},
	}
}

func withSyncer(ctx context.Context, fn func(context.Context, *possync.Syncer) error) error {
	if flagTenant == "" {
		return fmt.Errorf("--tenant is required")
	}
	if flagToken == "" {
		return fmt.Errorf("--token is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := localstore.Open(ctx, flagDB, logger)
	if err != nil {
		return fmt.Errorf("failed to open local database: %w", err)
	}
	defer store.Close()

	cloud := cloudstore.NewHTTPClient(flagServer, func(ctx context.Context) (string, error) {
		return flagToken, nil
	})

	syncer := possync.NewSyncer(store, cloud, logger)
	if err := fn(ctx, syncer); err != nil {
		return err
	}
	logger.Info("done")
	return nil
}
