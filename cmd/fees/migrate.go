package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; this one lets you do it explicitly
or inspect the current version.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()

	slog.Info("Starting database migration",
		"database", settings.DatabasePath,
		"status_only", status)

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStorage(store)

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Println(cli.RenderReport(cli.FolderIcon+" Database Migration Status", []cli.ReportField{ //nolint:forbidigo // User-facing output
			{Label: "Database", Value: settings.DatabasePath},
			{Label: "Current version", Value: strconv.Itoa(current)},
			{Label: "Latest version", Value: strconv.Itoa(storage.ExpectedSchemaVersion)},
		}))
		if current < storage.ExpectedSchemaVersion {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("%d migration(s) pending", storage.ExpectedSchemaVersion-current))) //nolint:forbidigo // User-facing output
		} else {
			fmt.Println(cli.FormatSuccess("Schema is up to date")) //nolint:forbidigo // User-facing output
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database migrated from version %d to %d", //nolint:forbidigo // User-facing output
		current, storage.ExpectedSchemaVersion)))
	return nil
}
