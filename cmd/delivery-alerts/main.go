package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"diecast-collector/internal/config"
	"diecast-collector/internal/db"
	"diecast-collector/internal/email"
	"diecast-collector/internal/repository"
	"diecast-collector/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Binario operativo: corre el motor de alertas de entrega. Sin registro
// de enviados, cada corrida decide desde cero; correrlo una vez al día.
func main() {
	emailAddr := flag.String("email", "", "evaluate a single account")
	dryRun := flag.Bool("dry-run", false, "decide without sending email")
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

	sender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		smtpSender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			sender = smtpSender
		}
	}

	alerts := service.NewAlertService(
		logger,
		repository.NewPgUserRepository(pool),
		repository.NewPgSubscriptionRepository(pool),
		repository.NewPgPreferenceRepository(pool),
		repository.NewPgCarRepository(pool),
		sender,
	)

	if *emailAddr != "" {
		decision, err := alerts.RunUser(ctx, *emailAddr, *dryRun)
		if err != nil {
			logger.Fatal("alert run failed", zap.Error(err))
		}
		fmt.Printf("eligible=%v overdue=%d upcoming=%d send=%v dry_run=%v\n",
			decision.Eligible, len(decision.Overdue), len(decision.Upcoming), decision.Send, *dryRun)
		return
	}

	report, err := alerts.RunAll(ctx, *dryRun)
	if err != nil {
		logger.Fatal("alert run failed", zap.Error(err))
	}
	fmt.Printf("evaluated=%d sent=%d skipped=%d dry_run=%v\n",
		report.Evaluated, report.Sent, report.Skipped, report.DryRun)
}
