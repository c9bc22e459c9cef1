package workers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"practice-hub/services"
	"practice-hub/utils"
)

type fakeReconciler struct {
	drifts []services.LedgerDrift
	err    error
}

func (f fakeReconciler) ReconcileLedger(context.Context) ([]services.LedgerDrift, error) {
	return f.drifts, f.err
}

type fakeUploader struct {
	keys    []string
	reports []interface{}
	err     error
}

func (f *fakeUploader) PutJSON(_ context.Context, key string, v interface{}) error {
	f.keys = append(f.keys, key)
	f.reports = append(f.reports, v)
	return f.err
}

func TestRunOnceUploadsReport(t *testing.T) {
	drifts := []services.LedgerDrift{{UserID: "u1", CachedBalance: 10, LedgerBalance: 5}}
	up := &fakeUploader{}
	w := NewLedgerAuditWorker(fakeReconciler{drifts: drifts}, up, 0, utils.NewNopLogger())

	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.DriftCount != 1 || report.Drifts[0].UserID != "u1" {
		t.Fatalf("report = %+v", report)
	}
	if len(up.keys) != 1 || !strings.HasPrefix(up.keys[0], "ledger-audits/") || !strings.HasSuffix(up.keys[0], ".json") {
		t.Fatalf("uploaded keys = %v", up.keys)
	}
	if up.reports[0] != report {
		t.Fatal("uploaded a different report than returned")
	}
}

func TestRunOnceWithoutUploader(t *testing.T) {
	w := NewLedgerAuditWorker(fakeReconciler{}, nil, 0, utils.NewNopLogger())
	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.DriftCount != 0 {
		t.Fatalf("drift count = %d", report.DriftCount)
	}
}

func TestRunOnceErrors(t *testing.T) {
	boom := errors.New("db down")
	w := NewLedgerAuditWorker(fakeReconciler{err: boom}, &fakeUploader{}, 0, utils.NewNopLogger())
	if _, err := w.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want reconcile error", err)
	}

	up := &fakeUploader{err: errors.New("r2 unavailable")}
	w = NewLedgerAuditWorker(fakeReconciler{}, up, 0, utils.NewNopLogger())
	report, err := w.RunOnce(context.Background())
	if err == nil || report == nil {
		t.Fatalf("upload failure: report=%v err=%v", report, err)
	}
}

func TestStartStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewLedgerAuditWorker(fakeReconciler{}, nil, 0, utils.NewNopLogger())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if w.interval.Hours() != 1 {
		t.Fatalf("default interval = %s", w.interval)
	}
	cancel()
}
