package ingest

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/logging"
	"linker/internal/models/dtos"

	"github.com/goccy/go-json"
)

// DefaultEpoch is the moment the recorded event started, 2023-04-29 12:00 Brussels time.
var DefaultEpoch = time.Date(2023, 4, 29, 10, 0, 0, 0, time.UTC)

const dumpSuffix = ".json.gz"

// Simulator replays recorded feed snapshots named <unix seconds>.json.gz as
// if the event were happening now. Simulated time is the epoch plus the wall
// time elapsed since the simulation was (re)started.
type Simulator struct {
	dir         string
	epoch       time.Time
	importer    *Importer
	trackers    *repositories.TrackerRepo
	checkpoints *repositories.CheckpointLogRepo
	settings    *repositories.SettingsRepo
	now         func() time.Time
}

func NewSimulator(
	dir string,
	epoch time.Time,
	importer *Importer,
	trackers *repositories.TrackerRepo,
	checkpoints *repositories.CheckpointLogRepo,
	settings *repositories.SettingsRepo,
) *Simulator {
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &Simulator{
		dir:         dir,
		epoch:       epoch.UTC(),
		importer:    importer,
		trackers:    trackers,
		checkpoints: checkpoints,
		settings:    settings,
		now:         time.Now,
	}
}

// Until returns the simulated current time. Before the first reset it is the epoch.
func (s *Simulator) Until(ctx context.Context) (time.Time, error) {
	value, err := s.settings.GetSetting(ctx, constants.SettingSimulationStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read simulation start: %w", err)
	}
	if value == nil {
		return s.epoch, nil
	}
	start, err := time.Parse(time.RFC3339Nano, *value)
	if err != nil {
		logging.Warn("[Simulator] Unreadable simulation start, using epoch", "value", *value)
		return s.epoch, nil
	}
	return s.epoch.Add(s.now().Sub(start)), nil
}

type dump struct {
	path string
	at   time.Time
}

func (s *Simulator) dumps() ([]dump, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation directory: %w", err)
	}

	var out []dump
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, dumpSuffix) {
			continue
		}
		secs, err := strconv.ParseInt(strings.TrimSuffix(name, dumpSuffix), 10, 64)
		if err != nil {
			logging.Warn("[Simulator] Ignoring dump with unexpected name", "file", name)
			continue
		}
		out = append(out, dump{path: filepath.Join(s.dir, name), at: time.Unix(secs, 0).UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out, nil
}

// Step imports every dump newer than the last imported one and not later than
// the simulated current time. Returns the number of dumps imported.
func (s *Simulator) Step(ctx context.Context) (int, error) {
	until, err := s.Until(ctx)
	if err != nil {
		return 0, err
	}
	latest, err := s.trackers.LatestFetchTime(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest fetch time: %w", err)
	}

	dumps, err := s.dumps()
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, d := range dumps {
		if latest != nil && !d.at.After(*latest) {
			continue
		}
		if d.at.After(until) {
			break
		}
		payload, err := readDump(d.path)
		if err != nil {
			return imported, err
		}
		if _, err := s.importer.Import(ctx, payload, constants.SourceMinisiteAPI, d.at); err != nil {
			return imported, fmt.Errorf("failed to import %s: %w", filepath.Base(d.path), err)
		}
		imported++
	}
	return imported, nil
}

func readDump(path string) (*dtos.GeodynamicsPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	var payload dtos.GeodynamicsPayload
	if err := json.NewDecoder(zr).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &payload, nil
}

// Reset rewinds the simulation to the epoch: fixes fetched and checkpoint
// intervals started after it are deleted, and simulated time restarts now.
func (s *Simulator) Reset(ctx context.Context) error {
	fixes, err := s.trackers.DeleteFetchedAfter(ctx, s.epoch)
	if err != nil {
		return fmt.Errorf("failed to delete fixes: %w", err)
	}
	intervals, err := s.checkpoints.DeleteArrivedAfter(ctx, s.epoch)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint logs: %w", err)
	}
	if err := s.trackers.RefreshLastLogs(ctx); err != nil {
		return fmt.Errorf("failed to refresh last logs: %w", err)
	}
	if err := s.settings.SetSetting(ctx, constants.SettingSimulationStart, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to store simulation start: %w", err)
	}

	logging.Info("[Simulator] Reset", "epoch", s.epoch, "fixes_deleted", fixes, "checkpoint_logs_deleted", intervals)
	return nil
}
