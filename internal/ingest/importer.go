// Package ingest turns vendor feed snapshots, simulation dumps and manual
// entries into TrackerLog rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"
)

var (
	ErrTrackerNotFound = errors.New("tracker not found")
	ErrDuplicateFix    = errors.New("a fix with this timestamp already exists")
)

// Skip reasons reported on the skipped fixes counter.
const (
	skipNoLocation   = "no_location"
	skipBadTimestamp = "bad_timestamp"
)

// timestamp layouts seen in the feed, tried in order. Values without an
// offset are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseTimePtr(s string) *time.Time {
	t, ok := parseTime(s)
	if !ok {
		return nil
	}
	return &t
}

// round6 rounds a coordinate to six decimals, about 11 cm.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

type Importer struct {
	trackers *repositories.TrackerRepo
	teams    *repositories.TeamRepo
	metrics  *metrics.MetricsRegistry
}

func NewImporter(trackers *repositories.TrackerRepo, teams *repositories.TeamRepo, metricsReg *metrics.MetricsRegistry) *Importer {
	return &Importer{trackers: trackers, teams: teams, metrics: metricsReg}
}

// Import stores the fixes of one feed snapshot and returns how many were new.
// Unknown trackers are registered; fixes without a readable timestamp are skipped.
func (i *Importer) Import(ctx context.Context, payload *dtos.GeodynamicsPayload, source constants.TrackerLogSource, fetchTime time.Time) (int64, error) {
	if payload == nil || len(payload.Data) == 0 {
		return 0, nil
	}

	safe, err := i.teams.SafeTrackerIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load safe trackers: %w", err)
	}

	fetched := fetchTime.UTC()
	logs := make([]gorm.TrackerLog, 0, len(payload.Data))

	for _, data := range payload.Data {
		var name *string
		if data.Name != "" {
			n := data.Name
			name = &n
		}
		tracker, err := i.trackers.GetOrCreate(ctx, string(data.ID), name)
		if err != nil {
			return 0, err
		}

		loc := data.LastLocation
		if loc == nil {
			i.skipped(skipNoLocation)
			continue
		}

		gpsTime, ok := parseTime(loc.GpsDateTime)
		if !ok {
			logging.Warn("[Ingest] Skipping fix with unreadable GPS time", "tracker", data.ID, "gps_datetime", loc.GpsDateTime)
			i.skipped(skipBadTimestamp)
			continue
		}

		trackerType := 0
		if loc.Type != nil {
			trackerType = *loc.Type
		}

		logs = append(logs, gorm.TrackerLog{
			TrackerID:     tracker.ID,
			GpsDatetime:   gpsTime,
			TrackerType:   trackerType,
			Longitude:     round6(loc.Longitude),
			Latitude:      round6(loc.Latitude),
			TeamIsSafe:    safe[tracker.ID],
			Source:        source,
			FetchDatetime: &fetched,
			LocalDatetime: parseTimePtr(loc.LocalDateTime),
			LastSyncDate:  parseTimePtr(loc.LastSyncDate),
			Satellites:    loc.Satellites,
			AnalogInput:   loc.AnalogInput1,
			Voltage:       loc.Voltage(),
			Heading:       loc.Heading,
			Speed:         loc.Speed,
			HasGps:        data.HasGps,
			HasPower:      data.HasPower,
			IsOnline:      data.IsOnline,
			Code:          data.Code,
			Name:          data.Name,
		})
	}

	inserted, err := i.trackers.InsertLogs(ctx, logs)
	if err != nil {
		return 0, err
	}
	if i.metrics != nil {
		i.metrics.FixesIngestedTotal.WithLabelValues(source.String()).Add(float64(inserted))
	}
	logging.Info("[Ingest] Imported fixes", "source", source.String(), "received", len(payload.Data), "inserted", inserted)
	return inserted, nil
}

// AddManual records a fix entered by staff, e.g. from a phone call.
func (i *Importer) AddManual(ctx context.Context, trackerID uint, gpsTime time.Time, lon, lat float64) (*gorm.TrackerLog, error) {
	tracker, err := i.trackers.FindByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, ErrTrackerNotFound
	}

	safe, err := i.teams.SafeTrackerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load safe trackers: %w", err)
	}

	logs := []gorm.TrackerLog{{
		TrackerID:   tracker.ID,
		GpsDatetime: gpsTime.UTC(),
		Longitude:   round6(lon),
		Latitude:    round6(lat),
		TeamIsSafe:  safe[tracker.ID],
		Source:      constants.SourceManual,
	}}
	inserted, err := i.trackers.InsertLogs(ctx, logs)
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		return nil, ErrDuplicateFix
	}
	if i.metrics != nil {
		i.metrics.FixesIngestedTotal.WithLabelValues(constants.SourceManual.String()).Inc()
	}
	return &logs[0], nil
}

func (i *Importer) skipped(reason string) {
	if i.metrics != nil {
		i.metrics.FixesSkippedTotal.WithLabelValues(reason).Inc()
	}
}
