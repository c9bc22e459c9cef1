// workers/ledger_audit_worker.go
package workers

import (
	"context"
	"fmt"
	"time"

	"practice-hub/services"
	"practice-hub/utils"

	"github.com/go-co-op/gocron/v2"
)

// ReportUploader stores audit reports (R2 in production)
type ReportUploader interface {
	PutJSON(ctx context.Context, key string, v interface{}) error
}

// LedgerReconciler is the engine operation the worker runs
type LedgerReconciler interface {
	ReconcileLedger(ctx context.Context) ([]services.LedgerDrift, error)
}

// LedgerAuditReport is what gets uploaded after each run
type LedgerAuditReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	DriftCount  int                    `json:"drift_count"`
	Drifts      []services.LedgerDrift `json:"drifts"`
}

// LedgerAuditWorker periodically checks cached gem balances against the ledger
type LedgerAuditWorker struct {
	reconciler LedgerReconciler
	uploader   ReportUploader // nil = log only
	interval   time.Duration
	log        *utils.Logger
	sched      gocron.Scheduler
}

func NewLedgerAuditWorker(reconciler LedgerReconciler, uploader ReportUploader, interval time.Duration, log *utils.Logger) *LedgerAuditWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &LedgerAuditWorker{
		reconciler: reconciler,
		uploader:   uploader,
		interval:   interval,
		log:        log.With("worker", "LedgerAudit"),
	}
}

// Start schedules the audit and stops the scheduler when ctx is done
func (w *LedgerAuditWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error("ledger audit failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule ledger audit: %w", err)
	}
	w.sched = sched
	sched.Start()
	w.log.Info("🔁 ledger audit scheduled", "interval", w.interval.String())

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			w.log.Warn("scheduler shutdown", "error", err)
		}
		w.log.Info("⏹️ ledger audit worker stopped")
	}()
	return nil
}

// RunOnce reconciles, logs any drift and uploads the report
func (w *LedgerAuditWorker) RunOnce(ctx context.Context) (*LedgerAuditReport, error) {
	drifts, err := w.reconciler.ReconcileLedger(ctx)
	if err != nil {
		return nil, err
	}
	report := &LedgerAuditReport{
		GeneratedAt: time.Now().UTC(),
		DriftCount:  len(drifts),
		Drifts:      drifts,
	}

	for _, d := range drifts {
		w.log.Warn("gem balance drift", "user_id", d.UserID, "cached", d.CachedBalance, "ledger", d.LedgerBalance)
	}
	if len(drifts) == 0 {
		w.log.Debug("ledger consistent")
	}

	if w.uploader != nil {
		key := fmt.Sprintf("ledger-audits/%s.json", report.GeneratedAt.Format(time.RFC3339))
		if err := w.uploader.PutJSON(ctx, key, report); err != nil {
			return report, fmt.Errorf("upload audit report: %w", err)
		}
	}
	return report, nil
}
