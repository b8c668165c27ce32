package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"diecast-collector/internal/config"
	"diecast-collector/internal/db"
	"diecast-collector/internal/repository"
	"diecast-collector/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Binario operativo: borra registros nunca pagados más viejos que el
// umbral. Pensado para correr por cron.
func main() {
	days := flag.Int("days", 0, "minimum age in days (default: REAPER_THRESHOLD_DAYS)")
	dryRun := flag.Bool("dry-run", false, "list candidates without deleting")
	flag.Parse()

	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	threshold := *days
	if threshold <= 0 {
		threshold = cfg.ReaperThresholdDays
	}

	reaper := service.NewReaperService(logger, repository.NewPgUserRepository(pool))
	report, err := reaper.Sweep(ctx, threshold, *dryRun)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}

	for _, c := range report.Candidates {
		fmt.Printf("%s\t%s\t%s\t%s\n", c.UserID, c.Username, c.Email, c.Stage)
	}
	if report.DryRun {
		fmt.Printf("dry run: %d candidate(s), nothing deleted\n", len(report.Candidates))
		return
	}
	fmt.Printf("deleted %d stale registration(s)\n", report.Deleted)
}
