package jobs

import (
	"context"
	"time"

	"linker/internal/metrics"
)

const notificationJobName = "NotificationJob"

type NotificationRunner interface {
	RunAll(ctx context.Context, now time.Time) error
}

// NotificationJob reconciles all notification rules.
type NotificationJob struct {
	engine  NotificationRunner
	metrics *metrics.MetricsRegistry
	now     func() time.Time
}

func NewNotificationJob(engine NotificationRunner, metricsReg *metrics.MetricsRegistry) *NotificationJob {
	return &NotificationJob{engine: engine, metrics: metricsReg, now: time.Now}
}

func (j *NotificationJob) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(j.metrics, notificationJobName, start, err) }()

	return j.engine.RunAll(ctx, j.now())
}

func (j *NotificationJob) RunScheduled(ctx context.Context, interval time.Duration) {
	runEvery(ctx, notificationJobName, interval, j.Run)
}
