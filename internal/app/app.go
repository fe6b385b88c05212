// Package app assembles repositories, engines and jobs from configuration.
// The server and linkerctl share it so both see the same wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"linker/internal/api"
	"linker/internal/common"
	"linker/internal/config"
	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/geo"
	"linker/internal/ingest"
	"linker/internal/jobs"
	"linker/internal/lock"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/notifications"
	"linker/internal/providers"
	"linker/internal/services"
	"linker/internal/stats"
	"linker/internal/tracing"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Repositories struct {
	Trackers       *repositories.TrackerRepo
	Teams          *repositories.TeamRepo
	CheckpointLogs *repositories.CheckpointLogRepo
	Notifications  *repositories.NotificationRepo
	Reference      *repositories.ReferenceRepo
	Settings       *repositories.SettingsRepo
}

// App holds every long-lived component.
type App struct {
	Config  *config.Config
	Repo    *Repositories
	Metrics *metrics.MetricsRegistry

	SQL    *sqlx.DB
	Redis  *redis.Client
	Cache  common.CacheInterface
	Locker lock.Locker
	Index  geo.Index

	Importer  *ingest.Importer
	Simulator *ingest.Simulator
	Coupler   *ingest.Coupler
	Tracer    *tracing.Tracer
	Engine    *notifications.Engine
	Stats     *stats.Service

	TrackerStatus  *services.TrackerStatusService
	CheckpointLogs *services.CheckpointLogService

	IngestJob       *jobs.IngestJob
	NotificationJob *jobs.NotificationJob
	StatsJob        *jobs.StatsJob
}

// Build wires the application. sqlDB may be nil when the spatial backend is
// memory; it is then only missing from the health check.
func Build(ctx context.Context, cfg *config.Config, gdb *gorm.DB, sqlDB *sqlx.DB, metricsReg *metrics.MetricsRegistry) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metricsReg,
		SQL:     sqlDB,
		Repo: &Repositories{
			Trackers:       repositories.NewTrackerRepo(gdb),
			Teams:          repositories.NewTeamRepo(gdb),
			CheckpointLogs: repositories.NewCheckpointLogRepo(gdb),
			Notifications:  repositories.NewNotificationRepo(gdb),
			Reference:      repositories.NewReferenceRepo(gdb),
			Settings:       repositories.NewSettingsRepo(gdb),
		},
	}

	if cfg.CacheBackend == config.BackendRedis || cfg.LockBackend == config.BackendRedis {
		a.Redis = common.NewRedisClient(cfg.Redis)
	}

	if err := a.initCache(); err != nil {
		return nil, err
	}
	a.initLocker()
	if err := a.initIndex(ctx); err != nil {
		return nil, err
	}

	tracking := cfg.Tracking
	repo := a.Repo

	a.Importer = ingest.NewImporter(repo.Trackers, repo.Teams, metricsReg)
	a.Coupler = ingest.NewCoupler(repo.Trackers, repo.Teams)
	if cfg.Simulation.Path != "" {
		a.Simulator = ingest.NewSimulator(cfg.Simulation.Path, cfg.Simulation.Epoch, a.Importer, repo.Trackers, repo.CheckpointLogs, repo.Settings)
	}

	a.Tracer = tracing.NewTracer(repo.Teams, repo.Trackers, repo.CheckpointLogs, a.Index, tracking, metricsReg)
	a.Engine = notifications.NewEngine(repo.Notifications, metricsReg,
		notifications.Rules(repo.Trackers, repo.Teams, a.Index, tracking)...)
	a.Stats = stats.NewService(repo.Reference, repo.Teams, repo.CheckpointLogs, a.Cache, tracking.StatsCacheTTL(), metricsReg)

	a.TrackerStatus = services.NewTrackerStatusService(repo.Trackers, repo.Teams, repo.Settings, a.Index, tracking)
	a.CheckpointLogs = services.NewCheckpointLogService(repo.CheckpointLogs, repo.Reference)

	feeds := []jobs.FeedSource{
		{
			Switch: constants.SwitchFetchTrackersMinisite,
			Source: constants.SourceMinisiteAPI,
			Feed:   providers.NewGeodynamicsProvider(cfg.Geodynamics.MinisiteURL, constants.SourceMinisiteAPI, cfg.Geodynamics.Timeout, metricsReg),
		},
		{
			Switch: constants.SwitchFetchTrackersAPI,
			Source: constants.SourceGeodynamicsAPI,
			Feed:   providers.NewGeodynamicsProvider(cfg.Geodynamics.APIURL, constants.SourceGeodynamicsAPI, cfg.Geodynamics.Timeout, metricsReg),
		},
	}

	// A nil *Simulator stored in the interface would not compare equal to nil.
	var stepper jobs.Stepper
	if a.Simulator != nil {
		stepper = a.Simulator
	}
	a.IngestJob = jobs.NewIngestJob(a.Locker, cfg.Jobs.IngestLockTTL, repo.Settings, feeds, a.Importer, stepper, a.Tracer, metricsReg)
	a.NotificationJob = jobs.NewNotificationJob(a.Engine, metricsReg)
	a.StatsJob = jobs.NewStatsJob(a.Stats, metricsReg)

	logging.Info("Application wired",
		"cache_backend", cfg.CacheBackend,
		"lock_backend", cfg.LockBackend,
		"spatial_backend", cfg.SpatialBackend,
		"simulation", a.Simulator != nil,
	)
	return a, nil
}

func (a *App) initCache() error {
	if a.Config.CacheBackend != config.BackendRedis {
		ttl := int(a.Config.Tracking.StatsCacheTTL() / time.Second)
		a.Cache = common.NewCacheService(ttl, 10*ttl)
		return nil
	}

	redisCache, err := common.NewRedisCacheService(a.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis cache: %w", err)
	}
	a.Cache = redisCache
	return nil
}

func (a *App) initLocker() {
	if a.Config.LockBackend == config.BackendRedis {
		a.Locker = lock.NewRedisLocker(a.Redis)
		return
	}
	a.Locker = lock.NewMemoryLocker()
}

// initIndex loads the course into memory, or delegates to PostGIS.
func (a *App) initIndex(ctx context.Context) error {
	if a.Config.SpatialBackend == config.BackendPostGIS {
		if a.SQL == nil {
			return fmt.Errorf("spatial backend %s needs a sql connection", config.BackendPostGIS)
		}
		a.Index = geo.NewPostGISIndex(a.SQL)
		return nil
	}

	ref, err := a.Repo.Reference.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load course reference: %w", err)
	}
	idx, err := geo.NewMemoryIndex(ref)
	if err != nil {
		return fmt.Errorf("failed to index course reference: %w", err)
	}
	a.Index = idx
	return nil
}

// APIDependencies exposes the components the HTTP handlers use.
func (a *App) APIDependencies(upSince time.Time) *api.Dependencies {
	svc := &api.Services{
		Stats:          a.Stats,
		CheckpointLogs: a.CheckpointLogs,
		Trackers:       a.TrackerStatus,
		Manual:         a.Importer,
		Notifications:  a.Engine,
		Ingest:         a.IngestJob,
	}
	if a.Simulator != nil {
		svc.Simulation = a.Simulator
	}
	return &api.Dependencies{
		Services: svc,
		Locker:   a.Locker,
		SQL:      a.SQL,
		Redis:    a.Redis,
		UpSince:  upSince,
	}
}

// Close releases the connections Build opened. The redis cache shares the client.
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return a.Cache.Close()
}
