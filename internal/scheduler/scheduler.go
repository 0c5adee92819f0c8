// Package scheduler runs periodic pipeline maintenance on cron specs with a
// seconds field.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSpec reports whether spec is a valid six field spec or descriptor.
func ParseSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return nil
}

// Scheduler manages the cron tasks of one pipeline. A run of a task is
// skipped while the previous one is still going.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *slog.Logger
}

func New(ctx context.Context, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
		ctx: ctx,
		log: log,
	}
}

// Add registers task under name. Errors returned by the task are logged.
func (s *Scheduler) Add(name, spec string, task func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := task(s.ctx); err != nil {
			s.log.Warn("task failed", "task", name, "err", err)
			return
		}
		s.log.Debug("task done", "task", name)
	})
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.log.Info("task registered", "task", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
