package api

import (
	"context"
	"time"

	"linker/internal/lock"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type StatsReporter interface {
	Report(ctx context.Context) ([]byte, error)
}

type CheckpointLogLister interface {
	List(ctx context.Context, teamID *uint) ([]dtos.CheckpointLogResponse, error)
}

type TrackerStatusProvider interface {
	List(ctx context.Context) ([]dtos.TrackerStatusResponse, error)
	Track(ctx context.Context, trackerID uint) ([]byte, error)
}

type ManualLogger interface {
	AddManual(ctx context.Context, trackerID uint, gpsTime time.Time, lon, lat float64) (*gorm.TrackerLog, error)
}

type NotificationService interface {
	List(ctx context.Context, userID string) ([]dtos.NotificationResponse, error)
	MarkRead(ctx context.Context, userID string, notificationID uint) (bool, error)
}

type IngestRunner interface {
	Run(ctx context.Context) error
}

type SimulationResetter interface {
	Reset(ctx context.Context) error
}

type Services struct {
	Stats          StatsReporter
	CheckpointLogs CheckpointLogLister
	Trackers       TrackerStatusProvider
	Manual         ManualLogger
	Notifications  NotificationService
	Ingest         IngestRunner
	// Simulation is nil when no simulation dumps are configured.
	Simulation SimulationResetter
}

// Dependencies is everything the handlers need. SQL and Redis are only used
// by the health check; Redis is nil when no Redis backend is configured.
type Dependencies struct {
	Services *Services
	Locker   lock.Locker
	SQL      *sqlx.DB
	Redis    *redis.Client
	UpSince  time.Time
}

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{deps: deps}
}
