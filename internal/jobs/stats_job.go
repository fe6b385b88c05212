package jobs

import (
	"context"
	"time"

	"linker/internal/metrics"
)

const statsJobName = "StatsJob"

type StatsRefresher interface {
	Refresh(ctx context.Context) error
}

// StatsJob keeps the cached stats report warm.
type StatsJob struct {
	stats   StatsRefresher
	metrics *metrics.MetricsRegistry
}

func NewStatsJob(stats StatsRefresher, metricsReg *metrics.MetricsRegistry) *StatsJob {
	return &StatsJob{stats: stats, metrics: metricsReg}
}

func (j *StatsJob) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(j.metrics, statsJobName, start, err) }()

	return j.stats.Refresh(ctx)
}

func (j *StatsJob) RunScheduled(ctx context.Context, interval time.Duration) {
	runEvery(ctx, statsJobName, interval, j.Run)
}
