package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blogpilot/internal/config"
	"blogpilot/internal/migrate"
	"blogpilot/internal/publish"
	"blogpilot/internal/storage"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy existing Webflow items into the spreadsheet",
	Long: `Migrate lists every item in the Webflow collection, re-hosts each main
image in S3, and upserts one row per item into the Google Sheets worksheet.
Rows are matched by slug, so re-running the migration is safe.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "transform items without writing rows")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// The migration reads from the CMS and writes to the spreadsheet, so both
	// providers must be configured.
	if err := cfg.Validate("cms"); err != nil {
		return err
	}
	if err := cfg.Validate("spreadsheet"); err != nil {
		return err
	}

	source := publish.NewWebflowPublisher(cfg.Webflow,
		&http.Client{Timeout: cfg.GetWebflowTimeout()}, logger)
	target, err := publish.NewSheetsPublisher(ctx, cfg.Sheets, cfg.Webflow.PublishedURLBase, logger)
	if err != nil {
		return err
	}

	var images migrate.ImageStore
	if uploader, err := storage.NewS3Uploader(ctx, cfg.Storage); err != nil {
		logger.Warn("object storage unavailable, migrating without images", zap.Error(err))
	} else {
		images = uploader
	}

	m := migrate.New(source, target, images,
		&http.Client{Timeout: 30 * time.Second}, migrateDryRun, logger)
	report, err := m.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d/%d items migrated\n", report.Migrated, report.Total)
	for _, f := range report.Failures {
		fmt.Printf("  %s: %v\n", f.Slug, f.Err)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d items failed to migrate", len(report.Failures))
	}
	return nil
}
