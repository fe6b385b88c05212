package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linker/internal/constants"
	"linker/internal/lock"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/models/dtos"
)

const ingestJobName = "IngestJob"

type Feed interface {
	FetchTrackers(ctx context.Context) (*dtos.GeodynamicsPayload, error)
}

type Importer interface {
	Import(ctx context.Context, payload *dtos.GeodynamicsPayload, source constants.TrackerLogSource, fetchTime time.Time) (int64, error)
}

type Stepper interface {
	Step(ctx context.Context) (int, error)
}

type Tracer interface {
	TraceAll(ctx context.Context) error
}

type Switches interface {
	SwitchIsActive(ctx context.Context, name string) (bool, error)
	SwitchIsActiveOr(ctx context.Context, name string, missing bool) (bool, error)
}

// FeedSource binds a vendor feed to the switch that enables it.
type FeedSource struct {
	Switch string
	Source constants.TrackerLogSource
	Feed   Feed
}

// IngestJob pulls fixes (or replays a simulation step) and then traces all
// teams. A cycle holds the ingest lock; a cycle that finds it taken is skipped.
type IngestJob struct {
	locker    lock.Locker
	lockTTL   time.Duration
	switches  Switches
	feeds     []FeedSource
	importer  Importer
	simulator Stepper
	tracer    Tracer
	metrics   *metrics.MetricsRegistry
	now       func() time.Time
}

// NewIngestJob creates the job. simulator may be nil when no dumps are configured.
func NewIngestJob(
	locker lock.Locker,
	lockTTL time.Duration,
	switches Switches,
	feeds []FeedSource,
	importer Importer,
	simulator Stepper,
	tracer Tracer,
	metricsReg *metrics.MetricsRegistry,
) *IngestJob {
	return &IngestJob{
		locker:    locker,
		lockTTL:   lockTTL,
		switches:  switches,
		feeds:     feeds,
		importer:  importer,
		simulator: simulator,
		tracer:    tracer,
		metrics:   metricsReg,
		now:       time.Now,
	}
}

// Run executes one cycle. It returns lock.ErrLockHeld when another cycle is running.
func (j *IngestJob) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe(j.metrics, ingestJobName, start, err) }()

	l, err := j.locker.TryAcquire(ctx, constants.LockIngest, j.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			logging.Info("[IngestJob] Previous cycle still running, skipping")
		}
		return err
	}
	defer func() {
		if releaseErr := l.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			logging.Warn("[IngestJob] Failed to release lock", "error", releaseErr)
		}
	}()

	var errs []error
	if err := j.ingest(ctx); err != nil {
		errs = append(errs, err)
	}

	trace, err := j.switches.SwitchIsActiveOr(ctx, constants.SwitchTraceTeams, true)
	if err != nil {
		errs = append(errs, err)
	} else if trace {
		if err := j.tracer.TraceAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace: %w", err))
		}
	}

	logging.Info("[IngestJob] Completed cycle", "duration_ms", time.Since(start).Milliseconds())
	return errors.Join(errs...)
}

func (j *IngestJob) ingest(ctx context.Context) error {
	simulate, err := j.switches.SwitchIsActive(ctx, constants.SwitchSimulate)
	if err != nil {
		return err
	}
	if simulate {
		if j.simulator == nil {
			logging.Warn("[IngestJob] Simulation switch is on but no simulation path is configured")
			return nil
		}
		imported, err := j.simulator.Step(ctx)
		if err != nil {
			return fmt.Errorf("simulation step: %w", err)
		}
		logging.Info("[IngestJob] Replayed simulation dumps", "dumps", imported)
		return nil
	}

	var errs []error
	for _, f := range j.feeds {
		active, err := j.switches.SwitchIsActive(ctx, f.Switch)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !active {
			continue
		}

		fetchTime := j.now()
		payload, err := f.Feed.FetchTrackers(ctx)
		if err != nil {
			logging.Error("[IngestJob] Failed to fetch feed", "source", f.Source, "error", err)
			errs = append(errs, fmt.Errorf("fetch %s: %w", f.Source, err))
			continue
		}

		inserted, err := j.importer.Import(ctx, payload, f.Source, fetchTime)
		if err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", f.Source, err))
			continue
		}
		logging.Info("[IngestJob] Imported feed", "source", f.Source, "trackers", len(payload.Data), "inserted", inserted)
	}
	return errors.Join(errs...)
}

// RunScheduled runs the job every interval until ctx is done.
func (j *IngestJob) RunScheduled(ctx context.Context, interval time.Duration) {
	runEvery(ctx, ingestJobName, interval, j.Run)
}
