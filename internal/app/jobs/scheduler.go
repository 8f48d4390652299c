// Package jobs runs the periodic maintenance of the back office: repairing
// inventory balance drift and charging parcel leases.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/domain/accounting"
	"github.com/R3E-Network/farm_backoffice/internal/app/domain/inventory"
	"github.com/R3E-Network/farm_backoffice/internal/app/metrics"
	"github.com/R3E-Network/farm_backoffice/internal/app/system"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Reconciler repairs inventory balances from the stock ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, memberID string) ([]inventory.Balance, error)
}

// LeaseCharger posts yearly lease expenses.
type LeaseCharger interface {
	ChargeLeases(ctx context.Context, memberID string, year int) ([]accounting.Entry, error)
}

// Config holds cron specs. An empty spec disables the job.
type Config struct {
	ReconcileSpec string        `yaml:"reconcile_spec" env:"JOBS_RECONCILE_SPEC"`
	LeaseSpec     string        `yaml:"lease_spec" env:"JOBS_LEASE_SPEC"`
	Timeout       time.Duration `yaml:"timeout" env:"JOBS_TIMEOUT"`
}

// Scheduler runs maintenance jobs on cron schedules.
type Scheduler struct {
	reconciler Reconciler
	leases     LeaseCharger
	cfg        Config
	log        *logger.Logger
	now        func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

var _ system.Service = (*Scheduler)(nil)

// NewScheduler validates the cron specs and returns an idle scheduler.
func NewScheduler(reconciler Reconciler, leases LeaseCharger, cfg Config, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewDefault("jobs")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	for _, spec := range []string{cfg.ReconcileSpec, cfg.LeaseSpec} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
		}
	}
	return &Scheduler{
		reconciler: reconciler,
		leases:     leases,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Scheduler) Name() string { return "jobs" }

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if s.cfg.ReconcileSpec != "" && s.reconciler != nil {
		if _, err := c.AddFunc(s.cfg.ReconcileSpec, func() { s.run("inventory-reconcile", s.ReconcileNow) }); err != nil {
			return err
		}
	}
	if s.cfg.LeaseSpec != "" && s.leases != nil {
		if _, err := c.AddFunc(s.cfg.LeaseSpec, func() { s.run("lease-charges", s.ChargeLeasesNow) }); err != nil {
			return err
		}
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron = c
	s.running = true
	c.Start()

	s.log.WithField("reconcile", s.cfg.ReconcileSpec).
		WithField("leases", s.cfg.LeaseSpec).
		Info("job scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.cron = nil
	s.cancel = nil
	s.mu.Unlock()

	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
	cancel()
	s.log.Info("job scheduler stopped")
	return nil
}

func (s *Scheduler) run(job string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordJobRun(job, time.Since(start), err == nil)
	if err != nil {
		s.log.WithError(err).WithField("job", job).Warn("scheduled job failed")
	}
}

// ReconcileNow repairs the inventory balances of every member.
func (s *Scheduler) ReconcileNow(ctx context.Context) error {
	repaired, err := s.reconciler.Reconcile(ctx, "")
	if err != nil {
		return err
	}
	if len(repaired) > 0 {
		s.log.WithField("balances", len(repaired)).Warn("inventory balances repaired")
	}
	return nil
}

// ChargeLeasesNow charges every leased parcel for the current year.
func (s *Scheduler) ChargeLeasesNow(ctx context.Context) error {
	year := s.now().Year()
	posted, err := s.leases.ChargeLeases(ctx, "", year)
	if err != nil {
		return err
	}
	if len(posted) > 0 {
		s.log.WithField("year", year).
			WithField("entries", len(posted)).
			Info("parcel leases charged")
	}
	return nil
}
