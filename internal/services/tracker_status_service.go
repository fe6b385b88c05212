package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"linker/internal/config"
	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/geo"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"

	"github.com/paulmach/orb"
)

var ErrTrackerNotFound = errors.New("tracker not found")

// TrackerStatusService derives the live state of each tracker shown on the map.
type TrackerStatusService struct {
	trackers *repositories.TrackerRepo
	teams    *repositories.TeamRepo
	settings *repositories.SettingsRepo
	index    geo.Index
	tracking config.Tracking
	now      func() time.Time
}

func NewTrackerStatusService(
	trackers *repositories.TrackerRepo,
	teams *repositories.TeamRepo,
	settings *repositories.SettingsRepo,
	index geo.Index,
	tracking config.Tracking,
) *TrackerStatusService {
	return &TrackerStatusService{
		trackers: trackers,
		teams:    teams,
		settings: settings,
		index:    index,
		tracking: tracking,
		now:      time.Now,
	}
}

// List returns the status of every tracker.
func (s *TrackerStatusService) List(ctx context.Context) ([]dtos.TrackerStatusResponse, error) {
	trackers, err := s.trackers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}
	teams, err := s.teams.TeamsByTracker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	members, err := s.teams.MembersByTracker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	now := s.now().UTC()
	out := make([]dtos.TrackerStatusResponse, 0, len(trackers))
	for _, tr := range trackers {
		status := dtos.TrackerStatusResponse{
			ID:        tr.ID,
			TrackerID: tr.ExternalID,
			Name:      tr.String(),
		}
		if team, ok := teams[tr.ID]; ok {
			status.TeamID = &team.ID
		}
		if member, ok := members[tr.ID]; ok {
			status.MemberID = &member.ID
		}

		if err := s.fill(ctx, &status, tr, now); err != nil {
			return nil, fmt.Errorf("tracker %s: %w", tr.String(), err)
		}
		out = append(out, status)
	}
	return out, nil
}

func (s *TrackerStatusService) fill(ctx context.Context, status *dtos.TrackerStatusResponse, tr gorm.Tracker, now time.Time) error {
	low, err := s.trackers.HasLogOfTypesSince(ctx, tr.ID, s.tracking.LowBatteryTypes, now.Add(-s.tracking.BatteryLowWindow()))
	if err != nil {
		return err
	}
	status.BatteryLow = low

	sos, err := s.trackers.LatestLogOfTypes(ctx, tr.ID, s.tracking.SOSTypes)
	if err != nil {
		return err
	}
	if sos != nil {
		status.SOSSent = &sos.GpsDatetime
	}

	last := tr.LastLog
	if last == nil {
		return nil
	}
	status.LastLog = toLogResponse(*last)
	status.IsOnline = !last.GpsDatetime.Before(now.Add(-s.tracking.OfflineAfter()))
	status.BatteryPercentage = batteryPercentage(last.Voltage, s.tracking.VoltageMin, s.tracking.VoltageMax)

	p := orb.Point{last.Longitude, last.Latitude}
	if id, ok, err := s.index.NearestFiche(ctx, p, s.tracking.FicheRadius); err != nil {
		return err
	} else if ok {
		status.FicheID = &id
	}
	if id, ok, err := s.index.NearestTocht(ctx, p, s.tracking.TochtRadius); err != nil {
		return err
	} else if ok {
		status.TochtID = &id
	}
	if id, ok, err := s.index.NearestWeide(ctx, p, s.tracking.WeideRadius); err != nil {
		return err
	} else if ok {
		status.WeideID = &id
	}
	if status.Basis, err = s.index.NearBasis(ctx, p, s.tracking.BasisRadius); err != nil {
		return err
	}
	areas, err := s.index.ForbiddenAreasAt(ctx, p)
	if err != nil {
		return err
	}
	if len(areas) > 0 {
		status.ForbiddenAreaID = &areas[0].ID
	}
	return nil
}

// batteryPercentage maps a voltage linearly onto the configured range, clamped to 0..100.
func batteryPercentage(voltage *float64, minV, maxV float64) *int {
	if voltage == nil || maxV <= minV {
		return nil
	}
	pct := (*voltage - minV) / (maxV - minV) * 100
	pct = math.Max(0, math.Min(100, pct))
	rounded := int(math.Round(pct))
	return &rounded
}

func toLogResponse(l gorm.TrackerLog) *dtos.TrackerLogResponse {
	return &dtos.TrackerLogResponse{
		ID:          l.ID,
		GpsDatetime: l.GpsDatetime,
		Longitude:   l.Longitude,
		Latitude:    l.Latitude,
		TrackerType: l.TrackerType,
		Source:      l.Source.String(),
	}
}

// Track returns the path of a tracker as a GeoJSON LineString. Fixes far from
// the course are dropped, as are fixes at the base camp for team trackers when
// the exclude_basis_from_track switch is on. Fewer than two fixes give an
// empty line.
func (s *TrackerStatusService) Track(ctx context.Context, trackerID uint) ([]byte, error) {
	tracker, err := s.trackers.FindByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, ErrTrackerNotFound
	}

	logs, err := s.trackers.LogsSince(ctx, tracker.ID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load fixes: %w", err)
	}

	center, hasCenter, err := s.index.CourseCenter(ctx)
	if err != nil {
		return nil, err
	}

	skipBasis, err := s.settings.SwitchIsActive(ctx, constants.SwitchExcludeBasisFromTrack)
	if err != nil {
		return nil, err
	}
	if skipBasis {
		teams, err := s.teams.TeamsByTracker(ctx)
		if err != nil {
			return nil, err
		}
		_, skipBasis = teams[tracker.ID]
	}

	maxDist := s.tracking.GebiedMaxDistKM * 1000
	line := orb.LineString{}
	for _, l := range logs {
		p := orb.Point{l.Longitude, l.Latitude}
		if hasCenter && geo.Distance(center, p) > maxDist {
			continue
		}
		if skipBasis {
			atBasis, err := s.index.NearBasis(ctx, p, s.tracking.BasisRadius)
			if err != nil {
				return nil, err
			}
			if atBasis {
				continue
			}
		}
		line = append(line, p)
	}
	if len(line) < 2 {
		line = orb.LineString{}
	}

	return geo.LineStringJSON(line)
}
