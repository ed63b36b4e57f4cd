package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/catalog-metrics/internal/jobs/runtime"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

// JobRunner runs one invocation of a registered job type.
type JobRunner interface {
	Run(ctx context.Context, jobType string) (*runtime.Context, error)
}

type entry struct {
	spec    string
	jobType string
}

// Scheduler triggers jobs on cron specs. An invocation that is still running when its
// next tick arrives makes that tick a no-op.
type Scheduler struct {
	log    *logger.Logger
	runner JobRunner

	entries []entry
	timers  []*time.Timer

	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	inflight  sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

func New(baseLog *logger.Logger, runner JobRunner) *Scheduler {
	return &Scheduler{
		log:    baseLog.With("component", "Scheduler"),
		runner: runner,
	}
}

// Add registers jobType on spec ("@every 1m", "*/5 * * * *"). Must be called before Start.
func (s *Scheduler) Add(spec, jobType string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule %s: invalid spec %q: %w", jobType, spec, err)
	}
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if s.running {
		return fmt.Errorf("schedule %s: scheduler already started", jobType)
	}
	s.entries = append(s.entries, entry{spec: spec, jobType: jobType})
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.runner == nil {
		return fmt.Errorf("scheduler: missing runner")
	}
	if s.running {
		s.log.Warn("scheduler already running")
		return nil
	}

	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		),
	)
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.trigger(e.jobType) }); err != nil {
			s.cancel()
			return fmt.Errorf("schedule %s: %w", e.jobType, err)
		}
	}

	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", "entries", len(s.entries))
	return nil
}

// ScheduleOnce fires jobType a single time after delay. Timers pending at Stop are dropped.
func (s *Scheduler) ScheduleOnce(delay time.Duration, jobType string) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if !s.running {
		return fmt.Errorf("schedule once %s: scheduler not running", jobType)
	}
	s.inflight.Add(1)
	t := time.AfterFunc(delay, func() {
		defer s.inflight.Done()
		s.trigger(jobType)
	})
	s.timers = append(s.timers, t)
	s.log.Info("one-shot job scheduled", "job_type", jobType, "delay", delay.String())
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	for _, t := range s.timers {
		if t.Stop() {
			s.inflight.Done()
		}
	}
	s.timers = nil
	s.cancel()
	c := s.cron
	s.cron = nil
	s.runningMu.Unlock()

	<-c.Stop().Done()
	s.inflight.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) trigger(jobType string) {
	ctx := s.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	jc, err := s.runner.Run(ctx, jobType)
	if err != nil {
		s.log.Warn("scheduled job failed", "job_type", jobType, "error", err)
		return
	}
	if jc != nil && jc.Run != nil {
		s.log.Debug("scheduled job finished", "job_type", jobType, "status", jc.Run.Status)
	}
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
