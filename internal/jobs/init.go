package jobs

import (
	"context"
	"sync"

	"linker/internal/config"
	"linker/internal/logging"
)

// Scheduler owns the background jobs of the server.
type Scheduler struct {
	Ingest        *IngestJob
	Notifications *NotificationJob
	Stats         *StatsJob

	wg sync.WaitGroup
}

// InitializeJobs starts every job on its configured interval. Call Wait after
// cancelling ctx to let in-flight runs finish.
func InitializeJobs(ctx context.Context, cfg config.JobsConfig, ingest *IngestJob, notifications *NotificationJob, stats *StatsJob) *Scheduler {
	s := &Scheduler{Ingest: ingest, Notifications: notifications, Stats: stats}

	s.start(func() { ingest.RunScheduled(ctx, cfg.IngestInterval) })
	s.start(func() { notifications.RunScheduled(ctx, cfg.NotificationInterval) })
	s.start(func() { stats.RunScheduled(ctx, cfg.StatsInterval) })

	logging.Info("Background jobs started",
		"ingest_interval", cfg.IngestInterval.String(),
		"notification_interval", cfg.NotificationInterval.String(),
		"stats_interval", cfg.StatsInterval.String(),
	)
	return s
}

func (s *Scheduler) start(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}
