package main

import (
	"fmt"
	"log/slog"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the ledger database schema to the latest version.

Every command migrates on startup; this command is for setting up a new
database or checking which version an existing one is at.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	slog.Info("Starting database migration", "database", settings.DBPath, "status_only", status)

	store, err := storage.NewSQLiteStorage(settings.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if !status {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	schemaVersion, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	msg := fmt.Sprintf("Database %s is at schema version %d", settings.DBPath, schemaVersion)
	if status {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(msg))
	} else {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
	}
	return err
}
