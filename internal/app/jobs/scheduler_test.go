package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
)

type fakeReconciler struct{ calls atomic.Int32 }

func (f *fakeReconciler) Reconcile(ctx context.Context, memberID string) ([]inventory.Balance, error) {
	f.calls.Add(1)
	return []inventory.Balance{{MemberID: "m1", Product: "coffee"}}, nil
}

type fakeLeases struct {
	year atomic.Int32
}

func (f *fakeLeases) ChargeLeases(ctx context.Context, memberID string, year int) ([]accounting.Entry, error) {
	f.year.Store(int32(year))
	return nil, nil
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler(nil, nil, Config{ReconcileSpec: "every day"}, logger.Discard()); err == nil {
		t.Fatalf("expected invalid spec error")
	}
}

func TestSchedulerRunNow(t *testing.T) {
	rec := &fakeReconciler{}
	leases := &fakeLeases{}
	s, err := NewScheduler(rec, leases, Config{}, logger.Discard())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	if err := s.ReconcileNow(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rec.calls.Load() != 1 {
		t.Fatalf("expected one reconcile call")
	}
	if err := s.ChargeLeasesNow(context.Background()); err != nil {
		t.Fatalf("charge leases: %v", err)
	}
	if leases.year.Load() != 2025 {
		t.Fatalf("expected charge for 2025, got %d", leases.year.Load())
	}
}

func TestSchedulerLifecycle(t *testing.T) {
	s, err := NewScheduler(&fakeReconciler{}, &fakeLeases{}, Config{ReconcileSpec: "@every 1h", LeaseSpec: "0 2 1 1 *"}, logger.Discard())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	if s.Name() != "jobs" {
		t.Fatalf("unexpected name %q", s.Name())
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second start should be a no-op: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}
