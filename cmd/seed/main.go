/*
main.go - Seed job entry point

PURPOSE:
  Replaces the contents of the records table with the non-compliance rows
  of the regional workbook, then prints a per-region summary.

SEQUENCE:
  1. Read the workbook (every configured sheet)
  2. Clear the table
  3. Insert in batches (-batch, default 100)
  4. Print total and the top 10 regions with their share

COMMAND-LINE FLAGS:
  -db      SQLite path or postgres:// DSN (default: $COMPLIANCE_DB or cumplimiento.db)
  -file    Workbook path (default: data/Analisis_Esquemas_Condiciones_anom.xlsx)
  -batch   Records per insert transaction
  -top     Regions listed in the summary

NOTE:
  Destructive. The table is cleared before the new rows are written; a
  failure half-way leaves a partially seeded table, so rerun the job.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/warp/compliance-dashboard/compliance"
	"github.com/warp/compliance-dashboard/config"
	"github.com/warp/compliance-dashboard/ingest"
	"github.com/warp/compliance-dashboard/store/postgres"
	"github.com/warp/compliance-dashboard/store/sqlite"
)

type seedStore interface {
	compliance.Store
	compliance.Loader
	io.Closer
}

func main() {
	cfg := config.FromEnv()

	dbPath := flag.String("db", cfg.DB, "SQLite database path or postgres:// DSN")
	file := flag.String("file", "data/Analisis_Esquemas_Condiciones_anom.xlsx", "workbook to import")
	batch := flag.Int("batch", ingest.DefaultBatchSize, "records per insert batch")
	top := flag.Int("top", 10, "regions listed in the summary")
	flag.Parse()
	cfg.DB = *dbPath

	logger := config.NewLogger(cfg.LogFormat, cfg.LogLevel)

	if err := run(context.Background(), cfg, *file, *batch, *top, logger); err != nil {
		logger.Error("seed process failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, file string, batch, top int, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	logger.Info("processing workbook", "file", file)
	records, err := ingest.NewWorkbook(logger).ReadFile(file)
	if err != nil {
		return err
	}
	logger.Info("found non-compliance records", "count", len(records))

	written, err := ingest.Seed(ctx, store, records, batch, logger)
	if err != nil {
		return err
	}

	total, shares, err := ingest.Summary(ctx, store, top)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	logger.Info("import complete", "written", written, "total", total)

	fmt.Println()
	fmt.Println("Summary by DIRIS:")
	for _, s := range shares {
		fmt.Printf("   %s: %d cases (%s%%)\n", s.Region, s.Count, s.Percent.StringFixed(1))
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Server) (seedStore, error) {
	if cfg.IsPostgres() {
		return postgres.New(ctx, cfg.DB)
	}
	return sqlite.New(cfg.DB)
}
