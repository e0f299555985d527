package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crucial707/ledger/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Job is a named function run on a cron spec.
type Job struct {
	Name string
	Spec string
	// RunOnStart also runs the job once before the first tick.
	RunOnStart bool
	Fn         func(ctx context.Context) error
}

// Run schedules jobs and blocks until ctx is cancelled, then waits for running jobs.
// An invalid spec fails before anything is started.
func Run(ctx context.Context, log *slog.Logger, jobs ...Job) error {
	cl := cronLogger{log: log}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	for _, j := range jobs {
		if _, err := c.AddFunc(j.Spec, func() { runJob(ctx, log, j) }); err != nil {
			return fmt.Errorf("scheduler: job %s: invalid spec %q: %w", j.Name, j.Spec, err)
		}
		log.Info("scheduler: job added", "job", j.Name, "spec", j.Spec)
	}

	for _, j := range jobs {
		if j.RunOnStart {
			runJob(ctx, log, j)
		}
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func runJob(ctx context.Context, log *slog.Logger, j Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.Fn(ctx); err != nil {
		log.Warn("scheduler: job failed", "job", j.Name, "error", err)
		return
	}
	log.Debug("scheduler: job done", "job", j.Name, "duration_ms", time.Since(start).Milliseconds())
}

// Counter is satisfied by both stores.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// LedgerStatsJob refreshes the ledger_users and ledger_transactions gauges.
func LedgerStatsJob(spec string, users, transactions Counter) Job {
	return Job{
		Name:       "ledger-stats",
		Spec:       spec,
		RunOnStart: true,
		Fn: func(ctx context.Context) error {
			u, err := users.Count(ctx)
			if err != nil {
				return fmt.Errorf("count users: %w", err)
			}
			t, err := transactions.Count(ctx)
			if err != nil {
				return fmt.Errorf("count transactions: %w", err)
			}
			metrics.SetLedgerSize(u, t)
			return nil
		},
	}
}

// Pruner forgets idle entries. Implemented by the per-IP rate limiter.
type Pruner interface {
	Prune(idle time.Duration) int
}

// PruneJob drops rate-limit buckets idle for longer than idle.
func PruneJob(spec string, p Pruner, idle time.Duration, log *slog.Logger) Job {
	return Job{
		Name: "ratelimit-prune",
		Spec: spec,
		Fn: func(context.Context) error {
			if n := p.Prune(idle); n > 0 {
				log.Debug("scheduler: pruned rate limiters", "removed", n)
			}
			return nil
		},
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
