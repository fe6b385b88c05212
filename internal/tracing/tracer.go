// Package tracing derives checkpoint intervals from a team's GPS fixes.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"linker/internal/config"
	"linker/internal/db/repositories"
	"linker/internal/geo"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/models/gorm"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Tracer maintains the CheckpointLog rows of each team. Runs for the same
// team must not overlap; the ingest lock serializes whole sweeps.
type Tracer struct {
	teams    *repositories.TeamRepo
	trackers *repositories.TrackerRepo
	logs     *repositories.CheckpointLogRepo
	index    geo.Index
	tracking config.Tracking
	metrics  *metrics.MetricsRegistry
	log      *zap.SugaredLogger
}

func NewTracer(
	teams *repositories.TeamRepo,
	trackers *repositories.TrackerRepo,
	logs *repositories.CheckpointLogRepo,
	index geo.Index,
	tracking config.Tracking,
	metricsReg *metrics.MetricsRegistry,
) *Tracer {
	return &Tracer{
		teams:    teams,
		trackers: trackers,
		logs:     logs,
		index:    index,
		tracking: tracking,
		metrics:  metricsReg,
		log:      logging.Named("tracer"),
	}
}

// run is a maximal sequence of consecutive fixes nearest to the same fiche.
type run struct {
	ficheID uint
	arrived time.Time
	left    time.Time
}

// TraceAll traces every team that carries a tracker. Teams are independent,
// so they are traced in parallel. A failing team does not stop the others.
func (t *Tracer) TraceAll(ctx context.Context) error {
	teams, err := t.teams.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(t.tracking.TracerConcurrency)
	for _, team := range teams {
		if team.TrackerID == nil {
			continue
		}
		g.Go(func() error {
			if err := t.TraceTeam(ctx, team); err != nil {
				t.log.Errorw("Failed to trace team", "team", team.String(), "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("team %d: %w", team.Number, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// TraceTeam extends the team's checkpoint history with the fixes received
// since its latest interval ended. Tracing the same fixes again changes nothing.
func (t *Tracer) TraceTeam(ctx context.Context, team gorm.Team) error {
	if team.TrackerID == nil {
		return nil
	}

	resume, err := t.logs.LatestLeft(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("failed to find resume point: %w", err)
	}

	fixes, err := t.trackers.TraceableLogs(ctx, *team.TrackerID, resume)
	if err != nil {
		return fmt.Errorf("failed to load fixes: %w", err)
	}
	if len(fixes) == 0 {
		return nil
	}

	runs, err := t.groupRuns(ctx, fixes)
	if err != nil {
		return err
	}

	for _, r := range runs {
		if err := t.flush(ctx, team.ID, r); err != nil {
			return err
		}
	}
	return nil
}

// groupRuns maps each fix to its nearest fiche and groups consecutive fixes
// with the same fiche. Fixes near no fiche end the current run and start none.
func (t *Tracer) groupRuns(ctx context.Context, fixes []gorm.TrackerLog) ([]run, error) {
	var (
		runs    []run
		current *run
	)

	for _, f := range fixes {
		ficheID, ok, err := t.index.NearestFiche(ctx, orb.Point{f.Longitude, f.Latitude}, t.tracking.FicheRadius)
		if err != nil {
			return nil, fmt.Errorf("failed to find nearest fiche: %w", err)
		}

		if !ok {
			if current != nil {
				runs = append(runs, *current)
				current = nil
			}
			continue
		}

		if current != nil && current.ficheID == ficheID {
			current.left = f.GpsDatetime
			continue
		}
		if current != nil {
			runs = append(runs, *current)
		}
		current = &run{ficheID: ficheID, arrived: f.GpsDatetime, left: f.GpsDatetime}
	}

	if current != nil {
		runs = append(runs, *current)
	}
	return runs, nil
}

// flush writes one run. The run extends an existing interval at the same fiche
// when that interval started no later than the run ended, is open or ended no
// earlier than MergeGrace before the run arrived, and no other interval of the
// team started in between. Otherwise it becomes a new interval. The last run of
// a trace is handled the same way, so re-tracing before the team leaves a
// fiche extends instead of duplicating.
func (t *Tracer) flush(ctx context.Context, teamID uint, r run) error {
	candidate, err := t.logs.FindMergeCandidate(ctx, teamID, r.ficheID, r.arrived, r.left, t.tracking.MergeGrace())
	if err != nil {
		return fmt.Errorf("failed to find merge candidate: %w", err)
	}

	if candidate != nil {
		end := candidate.Arrived
		if candidate.Left != nil {
			end = *candidate.Left
		}
		between, err := t.logs.HasLogBetween(ctx, teamID, candidate.ID, end, r.arrived)
		if err != nil {
			return fmt.Errorf("failed to check intervening intervals: %w", err)
		}
		if !between {
			return t.extend(ctx, candidate, r)
		}
	}

	left := r.left
	log := gorm.CheckpointLog{TeamID: teamID, FicheID: r.ficheID, Arrived: r.arrived, Left: &left}
	if err := t.logs.Create(ctx, &log); err != nil {
		return fmt.Errorf("failed to create checkpoint log: %w", err)
	}
	t.count(metrics.ActionCreated)
	return nil
}

func (t *Tracer) extend(ctx context.Context, candidate *gorm.CheckpointLog, r run) error {
	// An open interval already covers everything after its arrival.
	if candidate.Left == nil || !r.left.After(*candidate.Left) {
		return nil
	}
	if err := t.logs.UpdateLeft(ctx, candidate.ID, r.left); err != nil {
		return fmt.Errorf("failed to extend checkpoint log: %w", err)
	}
	t.count(metrics.ActionExtended)
	return nil
}

func (t *Tracer) count(action string) {
	if t.metrics != nil {
		t.metrics.CheckpointLogsTotal.WithLabelValues(action).Inc()
	}
}
