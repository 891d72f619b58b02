// Package scheduler triggers publish runs on a cron or interval schedule.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "channelposter/pkg/logx"
)

// Job is one triggered run. It receives the scheduler's context.
type Job func(ctx context.Context)

type Scheduler struct {
	spec  ParsedSpec
	sched cron.Schedule
	loc   *time.Location
	log   logx.Logger

	runs    atomic.Uint64
	skipped atomic.Uint64
}

// New parses raw and prepares a scheduler in loc (nil means local time).
func New(raw string, loc *time.Location, log logx.Logger) (*Scheduler, error) {
	spec, err := ParseSchedule(raw)
	if err != nil {
		return nil, err
	}
	sched, err := spec.Schedule()
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{spec: spec, sched: sched, loc: loc, log: log}, nil
}

func (s *Scheduler) Spec() ParsedSpec { return s.spec }

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t.In(s.loc))
}

// Runs returns how many times the job has been started.
func (s *Scheduler) Runs() uint64 { return s.runs.Load() }

// Run triggers job on schedule until ctx is done, then waits for a running
// job to finish. Runs never overlap: a tick that fires while the previous run
// is still going is skipped.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	cl := cronLogger{log: s.log, skipped: &s.skipped}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.sched, cron.FuncJob(func() {
		n := s.runs.Add(1)
		start := time.Now()
		s.log.Debug("scheduled run started", logx.Int64("run", int64(n)))
		job(ctx)
		s.log.Debug("scheduled run finished", logx.Int64("run", int64(n)), logx.Duration("took", time.Since(start)))
	}))

	s.log.Info("scheduler started",
		logx.String("schedule", s.spec.String()),
		logx.String("tz", s.loc.String()),
		logx.Time("next", s.Next(time.Now())))
	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.log.Info("scheduler stopped", logx.Int64("runs", int64(s.runs.Load())), logx.Int64("skipped", int64(s.skipped.Load())))
	return nil
}

// cronLogger routes robfig/cron's logging into logx.
type cronLogger struct {
	log     logx.Logger
	skipped *atomic.Uint64
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" && l.skipped != nil {
		l.skipped.Add(1)
		l.log.Warn("previous run still in progress; tick skipped")
		return
	}
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
