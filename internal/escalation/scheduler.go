package escalation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SchedulerStatus is the admin-facing view of the background sweep loop.
type SchedulerStatus struct {
	Running   bool       `json:"running"`
	Interval  string     `json:"interval"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastRun   *Report    `json:"last_run,omitempty"`
}

// Scheduler runs the escalation evaluator on a fixed interval. It is an
// explicit component: it is constructed, started and stopped by the worker
// entrypoint, and exposes a manual trigger for operators.
type Scheduler struct {
	evaluator Evaluator
	interval  time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	running   bool
	lastRunAt *time.Time
	nextRunAt *time.Time
	lastRun   *Report

	stop    chan struct{}
	trigger chan chan Report
	wg      sync.WaitGroup
}

func NewScheduler(evaluator Evaluator, interval time.Duration, logger ...*zap.Logger) *Scheduler {
	l := zap.L().Named("escalation.scheduler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("escalation.scheduler")
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		logger:    l,
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.trigger = make(chan chan Report)

	next := time.Now().UTC().Add(s.interval)
	s.nextRunAt = &next

	s.wg.Add(1)
	go s.run(s.stop, s.trigger)

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.nextRunAt = nil
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// TriggerManual runs one sweep immediately and returns its report. It works
// whether or not the background loop is running.
func (s *Scheduler) TriggerManual(ctx context.Context) (Report, error) {
	s.mu.Lock()
	running := s.running
	trigger := s.trigger
	s.mu.Unlock()

	if !running {
		report, err := s.evaluator.Evaluate(ctx, time.Now().UTC())
		if err != nil {
			return report, err
		}
		s.recordRun(report)
		return report, nil
	}

	done := make(chan Report, 1)
	select {
	case trigger <- done:
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
	select {
	case report := <-done:
		return report, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStatus{
		Running:   s.running,
		Interval:  s.interval.String(),
		LastRunAt: s.lastRunAt,
		NextRunAt: s.nextRunAt,
		LastRun:   s.lastRun,
	}
}

func (s *Scheduler) run(stop chan struct{}, trigger chan chan Report) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sweep()
		case done := <-trigger:
			done <- s.sweep()
		}
	}
}

func (s *Scheduler) sweep() Report {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	report, err := s.evaluator.Evaluate(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("escalation sweep failed", zap.Error(err))
	}
	s.recordRun(report)
	return report
}

func (s *Scheduler) recordRun(report Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	s.lastRunAt = &now
	s.lastRun = &report
	if s.running {
		next := now.Add(s.interval)
		s.nextRunAt = &next
	}
}
