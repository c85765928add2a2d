package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ZAX3000/mailtrace/internal/config"
	"github.com/ZAX3000/mailtrace/internal/csvio"
	"github.com/ZAX3000/mailtrace/internal/domain"
	"github.com/ZAX3000/mailtrace/internal/logger"
	"github.com/ZAX3000/mailtrace/internal/matching"
	"github.com/ZAX3000/mailtrace/internal/repository"
	"github.com/ZAX3000/mailtrace/internal/service"
)

// matchrun executes one matching run from the command line, without the API
// server: useful for smoke-testing a CSV pair and for scripted backfills.
func main() {
	var (
		mailPath   = flag.String("mail", "", "path to the mail CSV")
		crmPath    = flag.String("crm", "", "path to the CRM jobs CSV")
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
		noPersist  = flag.Bool("dry-run", false, "skip writing the run to the database")
	)
	flag.Parse()

	if *mailPath == "" || *crmPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      "text",
		ServiceName: "matchrun",
	})
	logger.SetDefault(lg)

	matchCfg := matching.Config{
		NameWeight:      cfg.Matching.NameWeight,
		AddressWeight:   cfg.Matching.AddressWeight,
		DateWeight:      cfg.Matching.DateWeight,
		DateWindowDays:  cfg.Matching.DateWindowDays,
		AcceptThreshold: cfg.Matching.AcceptThreshold,
		BatchSize:       cfg.Matching.BatchSize,
	}
	if err := matchCfg.Validate(); err != nil {
		lg.WithError(err).Fatal("Invalid matching configuration")
	}

	mailCSV, err := os.ReadFile(*mailPath)
	if err != nil {
		lg.WithError(err).Fatal("Failed to read mail CSV")
	}
	crmCSV, err := os.ReadFile(*crmPath)
	if err != nil {
		lg.WithError(err).Fatal("Failed to read CRM CSV")
	}

	mailTable, err := csvio.ReadTable(bytes.NewReader(mailCSV))
	if err != nil {
		lg.WithError(err).Fatal("Failed to parse mail CSV")
	}
	crmTable, err := csvio.ReadTable(bytes.NewReader(crmCSV))
	if err != nil {
		lg.WithError(err).Fatal("Failed to parse CRM CSV")
	}
	mailRecords := csvio.MailRecords(mailTable)
	crmRecords := csvio.CRMRecords(crmTable)

	// Ctrl-C cancels the run cooperatively
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	result, err := matching.Match(ctx, mailRecords, crmRecords, matchCfg, func(percent int, phase string) {
		fmt.Fprintf(os.Stderr, "\r%3d%% %-12s", percent, phase)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		lg.WithError(err).Fatal("Matching failed")
	}

	fmt.Printf("mail records:   %d (skipped %d)\n", result.MailCount, result.SkippedMail)
	fmt.Printf("crm records:    %d (skipped %d)\n", result.CRMCount, result.SkippedCRM)
	fmt.Printf("matches:        %d\n", len(result.Candidates))
	fmt.Printf("match rate:     %.1f%%\n", result.MatchRate()*100)
	fmt.Printf("avg confidence: %.0f%%\n", result.AvgConfidence()*100)
	fmt.Printf("elapsed:        %s\n", time.Since(started).Round(time.Millisecond))

	if *noPersist {
		return
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		lg.WithError(err).Fatal("Failed to initialize database")
	}
	runRepo := repository.NewRunRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	runID := uuid.New().String()
	run := &domain.Run{
		ID:            runID,
		Status:        domain.RunStatusCompleted,
		StartedAt:     started,
		MailCount:     result.MailCount,
		CRMCount:      result.CRMCount,
		MatchCount:    len(result.Candidates),
		SkippedMail:   result.SkippedMail,
		SkippedCRM:    result.SkippedCRM,
		MatchRate:     result.MatchRate(),
		AvgConfidence: result.AvgConfidence(),
	}
	rows := service.MatchRows(runID, result)
	for _, r := range rows {
		run.MatchRevenue += r.JobValue
	}
	if err := runRepo.Create(ctx, run); err != nil {
		lg.WithError(err).Fatal("Failed to create run")
	}
	if err := matchRepo.BulkInsert(ctx, rows); err != nil {
		lg.WithError(err).Fatal("Failed to persist matches")
	}
	if err := runRepo.Finalize(ctx, run); err != nil {
		lg.WithError(err).Fatal("Failed to finalize run")
	}

	fmt.Printf("run id:         %s\n", runID)
}
