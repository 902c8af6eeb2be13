// Package jobs runs the server's periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	sweepSchedule  = "@hourly"
	expirySchedule = "@every 15m"

	// StaleCheckoutAge is how long a checkout attempt may stay pending.
	StaleCheckoutAge = 24 * time.Hour
)

type SessionSweeper interface {
	DeleteExpired() (int64, error)
}

type LimiterCleaner interface {
	Cleanup() int
}

type CheckoutExpirer interface {
	ExpireStale(age time.Duration) (int64, error)
}

type Backupper interface {
	Enabled() bool
	Run(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

type Deps struct {
	Sessions  SessionSweeper
	Limiter   LimiterCleaner
	Checkouts CheckoutExpirer
	Backups   Backupper

	// BackupSchedule is a cron expression; empty disables scheduled backups.
	BackupSchedule string
}

// Scheduler owns the cron instance and the jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func New(deps Deps, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("component", "jobs"),
	}
	if err := s.register(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) register() error {
	if _, err := s.cron.AddFunc(sweepSchedule, s.Sweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(expirySchedule, s.ExpireCheckouts); err != nil {
		return err
	}
	if s.deps.Backups != nil && s.deps.Backups.Enabled() && s.deps.BackupSchedule != "" {
		if _, err := s.cron.AddFunc(s.deps.BackupSchedule, s.Backup); err != nil {
			return err
		}
		s.logger.Info("backups scheduled", "schedule", s.deps.BackupSchedule)
	}
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.Entries())
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Sweep deletes expired sessions and idle rate limit windows.
func (s *Scheduler) Sweep() {
	if s.deps.Sessions != nil {
		n, err := s.deps.Sessions.DeleteExpired()
		if err != nil {
			s.logger.Error("cleanup expired sessions", "error", err)
		} else if n > 0 {
			s.logger.Info("cleaned up expired sessions", "count", n)
		}
	}
	if s.deps.Limiter != nil {
		if n := s.deps.Limiter.Cleanup(); n > 0 {
			s.logger.Debug("dropped rate limit windows", "count", n)
		}
	}
}

// ExpireCheckouts marks abandoned checkout attempts expired.
func (s *Scheduler) ExpireCheckouts() {
	if s.deps.Checkouts == nil {
		return
	}
	n, err := s.deps.Checkouts.ExpireStale(StaleCheckoutAge)
	if err != nil {
		s.logger.Error("expire stale checkouts", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired stale checkouts", "count", n)
	}
}

// Backup uploads a snapshot and prunes old ones.
func (s *Scheduler) Backup() {
	if s.deps.Backups == nil || !s.deps.Backups.Enabled() {
		return
	}
	if err := s.deps.Backups.Run(s.ctx); err != nil {
		s.logger.Error("scheduled backup", "error", err)
		return
	}
	if err := s.deps.Backups.Cleanup(s.ctx); err != nil {
		s.logger.Error("prune backups", "error", err)
	}
}
