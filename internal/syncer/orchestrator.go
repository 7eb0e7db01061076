package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/cache"
	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// ProviderClient is the slice of the provider client the orchestrator needs.
type ProviderClient interface {
	FetchChangeSummary(ctx context.Context, date time.Time) (*provider.ChangeSummary, error)
	FetchAllChanges(ctx context.Context, date time.Time) ([]provider.ChangeRecord, error)
}

// Orchestrator runs reconciliation at the configured daily slots plus once at
// startup, decides from the day's audit records whether a retry is warranted,
// and writes one SyncRun row per execution.
type Orchestrator struct {
	cfg    *config.Config
	db     *gorm.DB
	client ProviderClient
	engine *reconciler.Engine
	cache  cache.Store
	logger *logger.Logger
	cron   *cron.Cron
}

func New(cfg *config.Config, db *gorm.DB, client ProviderClient, engine *reconciler.Engine, store cache.Store, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		db:     db,
		client: client,
		engine: engine,
		cache:  store,
		logger: log,
		cron:   cron.New(),
	}
}

// Start registers the scheduled slots and fires the startup run after the
// settle delay. Retries are naturally capped at the slot count: a run only
// ever happens when a slot (or startup) fires.
func (o *Orchestrator) Start() error {
	for _, spec := range o.cfg.SyncSchedules {
		if _, err := o.cron.AddFunc(spec, func() {
			o.runGuarded(database.TriggerScheduled)
		}); err != nil {
			return fmt.Errorf("invalid sync schedule %q: %w", spec, err)
		}
	}
	o.cron.Start()

	go func() {
		time.Sleep(o.cfg.StartupDelay)
		o.runGuarded(database.TriggerStartup)
	}()

	o.logger.Info("Sync orchestrator started",
		"slots", strings.Join(o.cfg.SyncSchedules, ";"),
		"startup_delay", o.cfg.StartupDelay.String(),
	)
	return nil
}

// Stop halts the schedule and waits for a running slot to finish.
func (o *Orchestrator) Stop() {
	ctx := o.cron.Stop()
	<-ctx.Done()
}

// runGuarded is the scheduled entry point: it skips satisfied days and must
// never crash the host process, so failures are logged and swallowed.
func (o *Orchestrator) runGuarded(trigger string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Scheduled sync panicked", "trigger", trigger, "panic", r)
		}
	}()

	if !o.ShouldRun(time.Now()) {
		o.logger.Info("Skipping sync, day already satisfied", "trigger", trigger)
		return
	}

	if _, err := o.SyncToday(trigger); err != nil {
		o.logger.Error("Scheduled sync failed", "trigger", trigger, "error", err)
	}
}

// ShouldRun reports whether the day still needs a sync: it does unless a run
// already finished success or partial with a non-zero processed count. A run
// that processed nothing is retried: the provider reporting nothing and the
// provider silently failing look identical here.
func (o *Orchestrator) ShouldRun(now time.Time) bool {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var runs []database.SyncRun
	err := o.db.
		Where("started_at >= ? AND status IN ?", dayStart, []string{database.StatusSuccess, database.StatusPartial}).
		Find(&runs).Error
	if err != nil {
		o.logger.Error("Failed to inspect sync history, running anyway", "error", err)
		return true
	}

	for _, run := range runs {
		if run.Total > 0 {
			return false
		}
	}
	return true
}

// SyncToday reconciles today's change feed sequentially (incremental daily
// mode). Errors propagate to the caller; scheduled callers swallow them in
// runGuarded.
func (o *Orchestrator) SyncToday(trigger string) (*reconciler.Summary, error) {
	return o.execute(trigger, func(ctx context.Context) (*reconciler.Summary, bool, error) {
		return o.syncDay(ctx, time.Now(), false)
	})
}

// SyncHistoryRange walks calendar days from start through today in batched
// historical mode, with a fixed inter-day delay to respect provider rate
// limits. There is no checkpoint beyond the data already persisted; re-runs
// are idempotent via docket matching.
func (o *Orchestrator) SyncHistoryRange(start time.Time) (*reconciler.Summary, error) {
	return o.execute(database.TriggerHistory, func(ctx context.Context) (*reconciler.Summary, bool, error) {
		total := &reconciler.Summary{}
		hadChanges := false

		today := time.Now()
		for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
			daySummary, dayHadChanges, err := o.syncDay(ctx, day, true)
			if err != nil {
				return total, hadChanges, fmt.Errorf("day %s: %w", day.Format("2006-01-02"), err)
			}
			hadChanges = hadChanges || dayHadChanges

			total.Created += daySummary.Created
			total.Updated += daySummary.Updated
			total.Skipped += daySummary.Skipped
			total.Errored += daySummary.Errored
			total.Total += daySummary.Total
			total.Errors = append(total.Errors, daySummary.Errors...)

			if day.Before(today.AddDate(0, 0, -1)) {
				time.Sleep(o.cfg.InterDayDelay)
			}
		}
		return total, hadChanges, nil
	})
}

// RecordImport writes the audit row for a spreadsheet import executed through
// the reconciliation engine.
func (o *Orchestrator) RecordImport(fn func() (*reconciler.Summary, error)) (*reconciler.Summary, error) {
	return o.execute(database.TriggerImport, func(ctx context.Context) (*reconciler.Summary, bool, error) {
		summary, err := fn()
		return summary, summary != nil && summary.Total > 0, err
	})
}

// GetLastSyncStatus returns the most recent SyncRun, preferring the cached
// copy.
func (o *Orchestrator) GetLastSyncStatus() (*database.SyncRun, error) {
	if run, found := o.cache.GetLastStatus(); found {
		return run, nil
	}

	var run database.SyncRun
	err := o.db.Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last sync run: %w", err)
	}
	return &run, nil
}

// execute wraps a run body with the SyncRun audit row: pending before, a
// terminal status after, error message and capped error sample on the way
// out. Run-level failures mark the row error and propagate.
func (o *Orchestrator) execute(trigger string, fn func(ctx context.Context) (*reconciler.Summary, bool, error)) (*reconciler.Summary, error) {
	run := &database.SyncRun{
		CorrelationID: uuid.NewString(),
		TriggerSource: trigger,
		StartedAt:     time.Now(),
		Status:        database.StatusPending,
	}
	if err := o.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to open sync run: %w", err)
	}

	o.logger.Info("Sync run started", "run", run.CorrelationID, "trigger", trigger)

	summary, hadChanges, err := fn(context.Background())

	run.FinishedAt = time.Now()
	run.ProviderHadChanges = hadChanges
	if summary != nil {
		run.CreatedCount = summary.Created
		run.UpdatedCount = summary.Updated
		run.SkippedCount = summary.Skipped
		run.ErroredCount = summary.Errored
		run.Total = summary.Total
		run.ErrorSample = o.sampleErrors(trigger, summary.Errors)
	}

	if err != nil {
		run.Status = database.StatusError
		run.ErrorMessage = err.Error()
	} else {
		run.Status = summary.Status()
	}

	if saveErr := o.db.Save(run).Error; saveErr != nil {
		o.logger.Error("Failed to close sync run", "run", run.CorrelationID, "error", saveErr)
	}
	o.cache.SetLastStatus(run)

	if err != nil {
		o.logger.Error("Sync run failed", "run", run.CorrelationID, "trigger", trigger, "error", err)
		return summary, err
	}

	o.logger.Info("Sync run finished",
		"run", run.CorrelationID,
		"trigger", trigger,
		"status", run.Status,
		"created", run.CreatedCount,
		"updated", run.UpdatedCount,
		"skipped", run.SkippedCount,
		"errored", run.ErroredCount,
	)
	return summary, nil
}

// syncDay pulls one day's changes and reconciles them, sequentially for the
// incremental daily mode or in bounded-parallel batches for historical mode.
func (o *Orchestrator) syncDay(ctx context.Context, date time.Time, batched bool) (*reconciler.Summary, bool, error) {
	dateKey := date.Format("20060102")

	summary, found := o.cache.GetSummary(dateKey)
	if !found {
		var err error
		summary, err = o.client.FetchChangeSummary(ctx, date)
		if err != nil {
			return nil, false, err
		}
		// Only positive summaries are worth caching: "no changes" is
		// indistinguishable from a silently failed upstream call, and retry
		// slots exist precisely to ask again.
		if summary.HasChanges {
			o.cache.SetSummary(dateKey, summary)
		}
	}

	result := &reconciler.Summary{}
	if !summary.HasChanges {
		return result, false, nil
	}

	records, err := o.client.FetchAllChanges(ctx, date)
	if err != nil {
		return nil, true, err
	}

	// Resolve-or-create-then-merge is not atomic, so the same docket must
	// never be in flight twice: collapse duplicates before batching.
	records = dedupeByDocket(records)

	if batched {
		o.reconcileBatched(records, result)
	} else {
		for i := range records {
			result.Add(o.engine.Reconcile(&records[i]))
		}
	}
	return result, true, nil
}

// reconcileBatched partitions the records into fixed-size batches; within a
// batch every record runs concurrently and the batch awaits every outcome
// before advancing. One record's failure never cancels its siblings: the
// engine folds failures into results instead of returning errors.
func (o *Orchestrator) reconcileBatched(records []provider.ChangeRecord, summary *reconciler.Summary) {
	batchSize := o.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		results := make([]reconciler.Result, len(batch))

		g := new(errgroup.Group)
		g.SetLimit(batchSize)
		for i := range batch {
			i := i
			g.Go(func() error {
				results[i] = o.engine.Reconcile(&batch[i])
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			summary.Add(r)
		}
	}
}

// dedupeByDocket keeps one record per docket, the latest occurrence winning,
// in first-seen order. Records without a usable docket (empty or a provider
// placeholder) pass through individually; the engine classifies them as
// skipped, and collapsing them would undercount.
func dedupeByDocket(records []provider.ChangeRecord) []provider.ChangeRecord {
	seen := make(map[string]int, len(records))
	var out []provider.ChangeRecord

	for _, rec := range records {
		docket := strings.TrimSpace(rec.Docket)
		if reconciler.IsPlaceholderDocket(docket) {
			out = append(out, rec)
			continue
		}
		if idx, ok := seen[docket]; ok {
			out[idx] = rec
			continue
		}
		seen[docket] = len(out)
		out = append(out, rec)
	}
	return out
}

// sampleErrors serializes a capped sample of per-record errors for the audit
// row: a small cap for scheduled runs, a larger one for manual runs.
func (o *Orchestrator) sampleErrors(trigger string, errs []reconciler.RecordError) string {
	if len(errs) == 0 {
		return ""
	}

	limit := o.cfg.ScheduledErrorCap
	switch trigger {
	case database.TriggerManual, database.TriggerHistory, database.TriggerImport:
		limit = o.cfg.ManualErrorCap
	}
	if len(errs) > limit {
		errs = errs[:limit]
	}

	raw, err := json.Marshal(errs)
	if err != nil {
		return ""
	}
	return string(raw)
}
