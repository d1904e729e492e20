// Command deskctl is the operator CLI for the document pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"campus-desk-be/internal/bootstrap"
	"campus-desk-be/internal/config"
	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/repository/contract"
	"campus-desk-be/internal/repository/implementation"
	"campus-desk-be/internal/repository/specification"
	"campus-desk-be/internal/repository/unitofwork"
	"campus-desk-be/internal/service"
	"campus-desk-be/pkg/database"
	"campus-desk-be/pkg/ingest"
	"campus-desk-be/pkg/remote"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "deskctl",
	Short: "Operator tooling for handbook and syllabus processing",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the document tables",
	RunE:  runMigrate,
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-send documents stuck in uploaded to the processing backend",
	Long: `Finds documents that are still in the uploaded status after the given
age and triggers processing for each of them once.

Environment variables:
  DB_CONNECTION_STRING  Database DSN (required)
  BACKEND_URL           Processing backend base URL (required)`,
	RunE: runReprocess,
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id> <processing|completed|failed>",
	Short: "Advance a document's processing status by hand",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatus,
}

var (
	olderThan    time.Duration
	limit        int
	dryRun       bool
	errorMessage string
)

func init() {
	reprocessCmd.Flags().DurationVar(&olderThan, "older-than", 10*time.Minute, "only documents uploaded at least this long ago")
	reprocessCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of documents to trigger (0 for all)")
	reprocessCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list matching documents without triggering")
	statusCmd.Flags().StringVar(&errorMessage, "error", "", "error message recorded with a failed status")

	rootCmd.AddCommand(migrateCmd, reprocessCmd, statusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Connection == "" {
		return nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
	}
	return database.NewGormDB(database.GormConfig{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.Connection,
		LogLevel: cfg.Database.LogLevel,
	})
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := openDB(config.Load())
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	fmt.Println("Migration complete")
	return nil
}

func runReprocess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	repo := implementation.NewDocumentRepository(db)

	docs, err := repo.FindAll(ctx,
		specification.StatusIn{Statuses: []entity.DocumentStatus{entity.DocumentStatusUploaded}},
		specification.UploadedBefore{Time: time.Now().Add(-olderThan)},
		specification.OrderBy{Field: "upload_date", Desc: false},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	fmt.Printf("Found %d document(s) waiting longer than %s\n", len(docs), olderThan)
	if dryRun || len(docs) == 0 {
		for _, d := range docs {
			fmt.Printf("  %s  %-8s  %s\n", d.Id, d.Kind, d.StoragePath)
		}
		return nil
	}

	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	backend, err := remote.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log)
	if err != nil {
		return err
	}
	feed, err := bootstrap.NewStatusFeed(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer feed.Close()

	pipeline := ingest.NewPipeline(nil, repo, backend, feed, log, ingest.DefaultOptions())

	var failed []string
	for _, d := range docs {
		if err := pipeline.Retrigger(ctx, d); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", d.Id, err))
			continue
		}
		fmt.Printf("  triggered %s\n", d.Id)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d trigger(s) failed:\n  %s", len(failed), strings.Join(failed, "\n  "))
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id %q", args[0])
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	feed, err := bootstrap.NewStatusFeed(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer feed.Close()

	update := contract.StatusUpdate{Status: entity.DocumentStatus(args[1])}
	if errorMessage != "" {
		update.ErrorMessage = &errorMessage
	}

	statusService := service.NewStatusService(unitofwork.NewRepositoryFactory(db), feed, log)
	doc, err := statusService.Apply(ctx, id, update)
	if err != nil {
		return err
	}
	fmt.Printf("Document %s is now %s\n", doc.Id, doc.Status)
	return nil
}
