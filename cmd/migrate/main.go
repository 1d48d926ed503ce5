package main

// Manage the Postgres session store:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate status
//   go run ./cmd/migrate purge --older-than 24h

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cv-optimizer/internal/sessions"
	"cv-optimizer/internal/shared/config"
	"cv-optimizer/internal/shared/storage/db"
	"cv-optimizer/internal/shared/storage/object"
	localstore "cv-optimizer/internal/shared/storage/object/local"
	s3store "cv-optimizer/internal/shared/storage/object/s3"
	"cv-optimizer/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	defer telemetry.Sync()

	if err := newRootCmd(cfg).Execute(); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the Postgres session store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), cfg, func(ctx context.Context, sqlDB *sql.DB) error {
				return db.RunMigrations(ctx, sqlDB)
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), cfg, db.MigrationStatus)
		},
	})

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions idle longer than --older-than, with their files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			objects, err := objectStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), cfg, func(ctx context.Context, sqlDB *sql.DB) error {
				svc := sessions.NewService(&sessions.PGStore{DB: sqlDB}, objects, nil)
				n, err := svc.PurgeExpired(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d sessions\n", n)
				return nil
			})
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", cfg.SessionTTL, "maximum idle time before a session is purged")
	root.AddCommand(purge)

	// Bare invocation keeps the old behaviour of applying migrations.
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), cfg, func(ctx context.Context, sqlDB *sql.DB) error {
			return db.RunMigrations(ctx, sqlDB)
		})
	}
	return root
}

func withDB(ctx context.Context, cfg config.Config, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()
	return fn(ctx, sqlDB)
}

func objectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ObjectStoreType == "s3" {
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	}
	return localstore.New(cfg.LocalStoreDir), nil
}
