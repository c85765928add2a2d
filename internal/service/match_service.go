package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZAX3000/mailtrace/internal/csvio"
	"github.com/ZAX3000/mailtrace/internal/domain"
	"github.com/ZAX3000/mailtrace/internal/jobs"
	"github.com/ZAX3000/mailtrace/internal/logger"
	"github.com/ZAX3000/mailtrace/internal/matching"
	"github.com/ZAX3000/mailtrace/internal/repository"
	"github.com/ZAX3000/mailtrace/internal/storage"
)

// ErrStillRunning is returned by Result while the job has not finished.
var ErrStillRunning = errors.New("job still running")

// MatchService orchestrates asynchronous matching runs: CSV decoding,
// artifact archival, matcher execution, persistence, and report assembly.
type MatchService struct {
	runs    *repository.RunRepository
	matches *repository.MatchRepository
	geo     *GeocodeService
	store   storage.ArtifactStore
	runner  *jobs.Runner
	cfg     matching.Config
	logger  *logger.Logger
}

// NewMatchService creates a match service. geo may be nil when geocoding is
// disabled.
func NewMatchService(
	runs *repository.RunRepository,
	matches *repository.MatchRepository,
	geo *GeocodeService,
	store storage.ArtifactStore,
	runner *jobs.Runner,
	cfg matching.Config,
	log *logger.Logger,
) *MatchService {
	return &MatchService{
		runs:    runs,
		matches: matches,
		geo:     geo,
		store:   store,
		runner:  runner,
		cfg:     cfg,
		logger:  log,
	}
}

func (s *MatchService) log(ctx context.Context) *logger.Logger {
	if ctx != nil {
		return logger.FromContext(ctx)
	}
	return s.logger
}

// StartMatch decodes both uploads, validates the configuration, and launches
// the matching job. Returns the job identifier immediately; configuration and
// parse errors are reported here, before any job exists.
func (s *MatchService) StartMatch(ctx context.Context, mailCSV, crmCSV []byte) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", err
	}

	mailTable, err := csvio.ReadTable(bytes.NewReader(mailCSV))
	if err != nil {
		return "", fmt.Errorf("mail csv: %w", err)
	}
	crmTable, err := csvio.ReadTable(bytes.NewReader(crmCSV))
	if err != nil {
		return "", fmt.Errorf("crm csv: %w", err)
	}
	mailRecords := csvio.MailRecords(mailTable)
	crmRecords := csvio.CRMRecords(crmTable)

	jobID := s.runner.Start(ctx, func(jobCtx context.Context, publish func(int, string)) (any, error) {
		return s.executeRun(jobCtx, mailRecords, crmRecords, mailCSV, crmCSV, publish)
	})

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldJobID: jobID,
		"mail_rows":       len(mailRecords),
		"crm_rows":        len(crmRecords),
	}).Info("Matching job started")
	return jobID, nil
}

// executeRun is the background task body: it owns the Run record from
// creation to its terminal state. Job-level failures are returned to the
// runner; they never escape the goroutine.
func (s *MatchService) executeRun(
	ctx context.Context,
	mailRecords []domain.MailRecord,
	crmRecords []domain.CRMRecord,
	mailCSV, crmCSV []byte,
	publish func(int, string),
) (any, error) {
	runID := uuid.New().String()
	ctx = logger.SetRunID(ctx, runID)

	run := &domain.Run{
		ID:        runID,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	run.MailCSVURL, run.CRMCSVURL = s.archiveArtifacts(ctx, runID, mailCSV, crmCSV)

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	result, err := matching.Match(ctx, mailRecords, crmRecords, s.cfg, matching.ProgressFunc(publish))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Best-effort bookkeeping; the job status is authoritative.
			if dbErr := s.runs.MarkCancelled(context.WithoutCancel(ctx), runID); dbErr != nil {
				s.log(ctx).WithError(dbErr).Warn("Failed to mark run cancelled")
			}
			return nil, err
		}
		if dbErr := s.runs.MarkFailed(ctx, runID, err.Error()); dbErr != nil {
			s.log(ctx).WithError(dbErr).Warn("Failed to mark run failed")
		}
		return nil, err
	}

	rows := MatchRows(runID, result)
	if err := s.matches.BulkInsert(ctx, rows); err != nil {
		// Drop any partially inserted batches before failing the run.
		if dbErr := s.matches.DeleteByRun(ctx, runID); dbErr != nil {
			s.log(ctx).WithError(dbErr).Warn("Failed to clean up partial matches")
		}
		if dbErr := s.runs.MarkFailed(ctx, runID, "failed to persist matches"); dbErr != nil {
			s.log(ctx).WithError(dbErr).Warn("Failed to mark run failed")
		}
		return nil, fmt.Errorf("failed to persist matches: %w", err)
	}

	run.MailCount = result.MailCount
	run.CRMCount = result.CRMCount
	run.MatchCount = len(result.Candidates)
	run.SkippedMail = result.SkippedMail
	run.SkippedCRM = result.SkippedCRM
	run.MatchRate = result.MatchRate()
	run.AvgConfidence = result.AvgConfidence()
	run.MatchRevenue = sumRevenue(rows)
	run.Status = domain.RunStatusCompleted
	if err := s.runs.Finalize(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to finalize run: %w", err)
	}

	s.geocodeMatches(ctx, runID, rows)

	s.log(ctx).WithFields(logger.Fields{
		"mail":    run.MailCount,
		"crm":     run.CRMCount,
		"matches": run.MatchCount,
		"skipped": run.SkippedMail + run.SkippedCRM,
	}).Info("Matching run completed")

	return BuildRunReport(run, rows), nil
}

// archiveArtifacts uploads the raw CSVs. Failures degrade to empty URLs; the
// run itself must not fail because archival did.
func (s *MatchService) archiveArtifacts(ctx context.Context, runID string, mailCSV, crmCSV []byte) (mailURL, crmURL string) {
	if s.store == nil {
		return "", ""
	}
	mailKey := runID + "/mail.csv"
	crmKey := runID + "/crm.csv"
	if err := s.store.Upload(ctx, mailKey, bytes.NewReader(mailCSV), int64(len(mailCSV)), "text/csv"); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to archive mail csv")
	} else {
		mailURL = s.store.GetURL(mailKey)
	}
	if err := s.store.Upload(ctx, crmKey, bytes.NewReader(crmCSV), int64(len(crmCSV)), "text/csv"); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to archive crm csv")
	} else {
		crmURL = s.store.GetURL(crmKey)
	}
	return mailURL, crmURL
}

func (s *MatchService) geocodeMatches(ctx context.Context, runID string, rows []domain.Match) {
	if s.geo == nil || !s.geo.Enabled() {
		return
	}
	if err := s.geo.GeocodeRun(ctx, runID, rows); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to geocode run")
	}
}

// Progress returns the canonical v1 progress snapshot for a job.
func (s *MatchService) Progress(jobID string) (jobs.Snapshot, error) {
	return s.runner.Progress(jobID)
}

// Result returns the finished job's report. ErrStillRunning signals the
// caller to keep polling; a failed job surfaces its stored message.
func (s *MatchService) Result(jobID string) (*Report, error) {
	result, snap, err := s.runner.Result(jobID)
	if err != nil {
		return nil, err
	}
	switch snap.Status {
	case jobs.StatusDone:
		report, ok := result.(*Report)
		if !ok {
			return nil, errors.New("job finished without a report")
		}
		return report, nil
	case jobs.StatusError:
		return nil, errors.New(snap.Error)
	case jobs.StatusCancelled:
		return nil, errors.New("job cancelled")
	default:
		return nil, ErrStillRunning
	}
}

// Cancel requests cooperative cancellation of a job.
func (s *MatchService) Cancel(jobID string) error {
	return s.runner.Cancel(jobID)
}

// ListRuns returns the most recent runs for the history view.
func (s *MatchService) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.runs.ListRecent(ctx, limit)
}

// RunResult rebuilds the report of a persisted run.
func (s *MatchService) RunResult(ctx context.Context, runID string) (*Report, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.matches.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return BuildRunReport(run, rows), nil
}

// Aggregate builds the cross-run aggregate report over deduplicated matches.
func (s *MatchService) Aggregate(ctx context.Context) (*Report, error) {
	rows, err := s.matches.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return BuildAggregateReport(dedupMatches(rows)), nil
}

// MatchRows converts accepted candidates into persistable match rows.
func MatchRows(runID string, result *matching.Result) []domain.Match {
	rows := make([]domain.Match, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		var lastMail *time.Time
		if n := len(c.WindowMailDates); n > 0 {
			d := c.WindowMailDates[n-1]
			lastMail = &d
		}
		rows = append(rows, domain.Match{
			RunID:              runID,
			CRMID:              c.CRM.CRMID,
			CRMJobDate:         c.CRM.JobDate,
			JobValue:           c.CRM.JobValue,
			MailID:             c.Mail.ID,
			MatchedMailAddress: c.Mail.FullAddress(),
			MailDatesInWindow:  formatWindowDates(c.WindowMailDates),
			MailCountInWindow:  len(c.WindowMailDates),
			ConfidencePercent:  c.ConfidencePercent,
			MatchNotes:         joinNotes(c.Notes),
			CRMCity:            c.CRM.City,
			CRMState:           c.CRM.State,
			CRMZip:             c.CRM.PostalCode,
			Zip5:               matching.Zip5(c.CRM.PostalCode),
			StateCode:          stateCode(c.CRM.State),
			LastMailDate:       lastMail,
		})
	}
	return rows
}

func formatWindowDates(dates []time.Time) string {
	if len(dates) == 0 {
		return "None provided"
	}
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format("01-02-06")
	}
	return strings.Join(parts, ", ")
}

func joinNotes(notes []string) string {
	if len(notes) == 0 {
		return "perfect match"
	}
	return strings.Join(notes, "; ")
}

func stateCode(state string) string {
	s := strings.ToUpper(strings.TrimSpace(state))
	if len(s) > 2 {
		s = s[:2]
	}
	return s
}

func sumRevenue(rows []domain.Match) float64 {
	var sum float64
	for _, r := range rows {
		sum += r.JobValue
	}
	return sum
}

// dedupMatches drops repeated pairings of the same mail address and job date
// across runs, keeping the first occurrence in the stable input order.
func dedupMatches(rows []domain.Match) []domain.Match {
	type key struct {
		addr string
		date string
	}
	seen := make(map[key]struct{}, len(rows))
	out := make([]domain.Match, 0, len(rows))
	for _, r := range rows {
		k := key{addr: r.MatchedMailAddress}
		if r.CRMJobDate != nil {
			k.date = r.CRMJobDate.Format("2006-01-02")
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
