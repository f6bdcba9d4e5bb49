package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-storemetrics/internal/domain/calendar"
)

// Schedule computes the next fire time strictly after a given instant.
type Schedule interface {
	Next(after time.Time) time.Time
}

// DailyAt fires every day at Hour:Minute in Location (+05:30 when nil).
type DailyAt struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Next implements Schedule.
func (d DailyAt) Next(after time.Time) time.Time {
	loc := locationOrDefault(d.Location)
	local := after.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// WeeklyAt fires on Weekday at Hour:Minute.
type WeeklyAt struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

// Next implements Schedule.
func (w WeeklyAt) Next(after time.Time) time.Time {
	loc := locationOrDefault(w.Location)
	local := after.In(loc)
	days := (int(w.Weekday) - int(local.Weekday()) + 7) % 7
	next := time.Date(local.Year(), local.Month(), local.Day()+days, w.Hour, w.Minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// MonthlyAt fires on Day of every month at Hour:Minute. Day is clamped to 1..28.
type MonthlyAt struct {
	Day      int
	Hour     int
	Minute   int
	Location *time.Location
}

// Next implements Schedule.
func (m MonthlyAt) Next(after time.Time) time.Time {
	loc := locationOrDefault(m.Location)
	day := m.Day
	if day < 1 {
		day = 1
	}
	if day > 28 {
		day = 28
	}
	local := after.In(loc)
	next := time.Date(local.Year(), local.Month(), day, m.Hour, m.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month()+1, day, m.Hour, m.Minute, 0, 0, loc)
	}
	return next
}

func locationOrDefault(loc *time.Location) *time.Location {
	if loc == nil {
		return calendar.Location
	}
	return loc
}

// Job is a named unit of scheduled work.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) error
}

type scheduledJob struct {
	Job
	running atomic.Bool
}

// Scheduler fires registered jobs on their schedules. A job never overlaps
// with itself: a tick that arrives while the previous run is going is skipped.
type Scheduler struct {
	jobs   []*scheduledJob
	now    func() time.Time
	logger *zap.Logger

	// Lifecycle management
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Schedule == nil || job.Run == nil {
		return errors.New("job needs a name, schedule and run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot register job %s: scheduler already running", job.Name)
	}
	s.jobs = append(s.jobs, &scheduledJob{Job: job})
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	jobs := s.jobs
	s.mu.Unlock()

	for _, job := range jobs {
		s.wg.Add(1)
		go s.loop(runCtx, job)

		s.logger.Info("scheduled job",
			zap.String("job", job.Name),
			zap.Time("next_run", job.Schedule.Next(s.now())),
		)
	}

	s.logger.Info("scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

// Stop cancels in-flight runs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.cancel()
	s.wg.Wait()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job *scheduledJob) {
	defer s.wg.Done()

	for {
		next := job.Schedule.Next(s.now())
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.trigger(ctx, job)
		}
	}
}

// trigger starts a run of job unless one is still going.
func (s *Scheduler) trigger(ctx context.Context, job *scheduledJob) bool {
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping job, previous run still in progress", zap.String("job", job.Name))
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer job.running.Store(false)
		s.execute(ctx, job)
	}()
	return true
}

func (s *Scheduler) execute(ctx context.Context, job *scheduledJob) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r),
			)
		}
	}()

	s.logger.Info("running job", zap.String("job", job.Name))
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("job finished",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(started)),
	)
}
