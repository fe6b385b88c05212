// Package jobs runs the periodic ingest, notification and stats work.
package jobs

import (
	"context"
	"errors"
	"time"

	"linker/internal/lock"
	"linker/internal/logging"
	"linker/internal/metrics"
)

// observe records the duration and outcome of one job run.
func observe(m *metrics.MetricsRegistry, name string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := metrics.ResultOK
	switch {
	case errors.Is(err, lock.ErrLockHeld):
		result = metrics.ResultSkipped
	case err != nil:
		result = metrics.ResultError
	}
	m.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	m.JobRunsTotal.WithLabelValues(name, result).Inc()
}

// runEvery calls run immediately and then on every tick until ctx is done.
func runEvery(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logPrefix := "[" + name + "]"
	if err := run(ctx); err != nil && !errors.Is(err, lock.ErrLockHeld) {
		logging.Error(logPrefix+" Error in initial run", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := run(ctx); err != nil && !errors.Is(err, lock.ErrLockHeld) {
				logging.Error(logPrefix+" Error in scheduled run", "error", err)
			}
		case <-ctx.Done():
			logging.Info(logPrefix + " Shutting down scheduled job")
			return
		}
	}
}
