// Package scheduler runs the periodic background jobs of the hub on top of
// gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// ErrSchedulerStopped is returned when scheduling on a stopped scheduler.
var ErrSchedulerStopped = errors.New("scheduler is stopped")

// Job is a unit of periodic work.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Run executes the job.
	Run(ctx context.Context) error

	// Description explains what the job does.
	Description() string
}

// Schedule describes when a job runs.
type Schedule struct {
	// Interval between runs. Used when Cron is empty.
	Interval time.Duration

	// Cron is an optional cron expression overriding Interval.
	Cron string

	// RunImmediately triggers the first run at startup instead of waiting
	// for the first tick.
	RunImmediately bool
}

// Scheduler wraps gocron with job-level logging and panic recovery.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	stopped   bool
}

// New creates a scheduler. Jobs run in UTC.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register adds a job with its schedule.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSchedulerStopped
	}

	definition := s.scheduler.Every(schedule.Interval)
	if schedule.Cron != "" {
		definition = s.scheduler.Cron(schedule.Cron)
	}
	if schedule.RunImmediately {
		definition = definition.StartImmediately()
	}

	_, err := definition.Do(func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name(), err)
	}

	s.logger.Info("job registered",
		"job", job.Name(),
		"interval", schedule.Interval,
		"cron", schedule.Cron,
		"description", job.Description())
	return nil
}

// Start begins executing jobs in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
}

// Stop cancels running jobs and waits for the scheduler to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runJob(job Job) {
	log := s.logger.With("job", job.Name())
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r)
		}
	}()

	started := time.Now()
	log.Debug("job starting")
	if err := job.Run(s.ctx); err != nil {
		log.Error("job failed", "error", err, "duration", time.Since(started))
		return
	}
	log.Info("job finished", "duration", time.Since(started))
}
