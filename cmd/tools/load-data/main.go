// cmd/tools/load-data/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/common/database"
	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/lending/importer"
)

func main() {
	customers := flag.String("customers", "data/customer_data.xlsx", "Customer workbook")
	loans := flag.String("loans", "data/loan_data.xlsx", "Loan workbook")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall import timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.FromConfig(cfg.Logging)
	defer zapLog.Sync()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres open failed", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	start := time.Now()
	reports, err := importer.New(pg.DB, logger.NewZapAdapter(zapLog)).ImportFiles(ctx, *customers, *loans)
	for _, r := range reports {
		zapLog.Info("sheet imported",
			zap.String("sheet", r.Sheet),
			zap.Int("created", r.Created),
			zap.Int("skipped", r.Skipped),
		)
	}
	if err != nil {
		stdErr := errors.NewImportFailedError(*customers+", "+*loans, err)
		zapLog.Error("import failed",
			zap.String("errorCode", string(stdErr.Code)),
			zap.String("details", stdErr.Details),
		)
		os.Exit(1)
	}

	zapLog.Info("import finished", zap.Duration("elapsed", time.Since(start)))
}
