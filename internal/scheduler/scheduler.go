// Package scheduler runs the engine's periodic passes on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Task func(ctx context.Context) error

type entry struct {
	name string
	run  func()
}

// Scheduler owns one cron runner. A task still running when its next tick
// fires skips that tick instead of overlapping itself.
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	ctx     context.Context
	entries []entry
}

func New(ctx context.Context, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger{log: log}),
		)),
		log: log,
		ctx: ctx,
	}
}

// Add registers a named task on a cron spec ("@every 15m", "0 */6 * * *").
func (s *Scheduler) Add(spec, name string, task Task) error {
	run := s.wrap(name, task)
	if _, err := s.cron.AddFunc(spec, run); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.entries = append(s.entries, entry{name: name, run: run})
	return nil
}

// RunAll fires every registered task once, sequentially. The daemon calls it
// at startup so a fresh process does not wait out the first interval.
func (s *Scheduler) RunAll() {
	for _, e := range s.entries {
		e.run()
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for in-flight tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(name string, task Task) func() {
	log := s.log.With(zap.String("task", name))
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := task(s.ctx); err != nil {
			log.Error("task failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		log.Debug("task finished", zap.Duration("took", time.Since(start)))
	}
}

// cronLogger adapts zap to the cron logging interface; skip notices land at
// warn so overlapping passes are visible.
type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Sugar().Warnw(msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Sugar().Errorw(msg, append(kv, "error", err)...)
}
