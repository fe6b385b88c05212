package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"linker/internal/config"
	"linker/internal/constants"
	"linker/internal/db/dbtest"
	"linker/internal/db/repositories"
	"linker/internal/geo"
	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

var now = time.Date(2023, 4, 29, 22, 0, 0, 0, time.UTC)

const (
	routeA = `{"type":"LineString","coordinates":[[4.0,50.0],[4.01,50.0]]}`
	// Straddles route A and reaches about 330m north of it.
	tolerantArea = `{"type":"Polygon","coordinates":[[[4.004,49.999],[4.006,49.999],[4.006,50.003],[4.004,50.003],[4.004,49.999]]]}`
	strictArea   = `{"type":"Polygon","coordinates":[[[4.008,49.999],[4.009,49.999],[4.009,50.001],[4.008,50.001],[4.008,49.999]]]}`
)

type env struct {
	db       *gormlib.DB
	trackers *repositories.TrackerRepo
	teams    *repositories.TeamRepo
	repo     *repositories.NotificationRepo
	index    geo.Index
	tracking config.Tracking
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)

	idx, err := geo.NewMemoryIndex(&geo.Reference{
		Tochten: []gorm.Tocht{{ID: 1, Identifier: "A", Route: routeA}},
		ForbiddenAreas: []gorm.ForbiddenArea{
			{ID: 1, Area: tolerantArea, RouteAllowed: true},
			{ID: 2, Area: strictArea},
		},
	})
	if err != nil {
		t.Fatalf("Failed to build index: %v", err)
	}

	return &env{
		db:       db,
		trackers: repositories.NewTrackerRepo(db),
		teams:    repositories.NewTeamRepo(db),
		repo:     repositories.NewNotificationRepo(db),
		index:    idx,
		tracking: config.DefaultTracking(),
	}
}

func (e *env) rule(t *testing.T, notificationType constants.NotificationType) Rule {
	t.Helper()
	for _, r := range Rules(e.trackers, e.teams, e.index, e.tracking) {
		if r.Type() == notificationType {
			return r
		}
	}
	t.Fatalf("No rule of type %s", notificationType)
	return nil
}

// teamTracker creates a tracker carried by a new team.
func (e *env) teamTracker(t *testing.T, number int, safeWeide string) gorm.Tracker {
	t.Helper()
	tracker := gorm.Tracker{ExternalID: fmt.Sprintf("dev-%d", number)}
	if err := e.db.Create(&tracker).Error; err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	team := gorm.Team{Direction: constants.DirectionRed, Number: number, TrackerID: &tracker.ID, SafeWeide: safeWeide}
	if err := e.db.Create(&team).Error; err != nil {
		t.Fatalf("Failed to create team: %v", err)
	}
	return tracker
}

// staffTracker creates a tracker carried by a staff member.
func (e *env) staffTracker(t *testing.T, code string) gorm.Tracker {
	t.Helper()
	tracker := gorm.Tracker{ExternalID: "staff-" + code}
	if err := e.db.Create(&tracker).Error; err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	member := gorm.OrganizationMember{Name: code, Code: code, TrackerID: &tracker.ID}
	if err := e.db.Create(&member).Error; err != nil {
		t.Fatalf("Failed to create member: %v", err)
	}
	return tracker
}

func (e *env) fix(t *testing.T, trackerID uint, at time.Time, lon, lat float64, trackerType int) {
	t.Helper()
	_, err := e.trackers.InsertLogs(context.Background(), []gorm.TrackerLog{{
		TrackerID:   trackerID,
		GpsDatetime: at.UTC(),
		TrackerType: trackerType,
		Longitude:   lon,
		Latitude:    lat,
		Source:      constants.SourceGeodynamicsAPI,
	}})
	if err != nil {
		t.Fatalf("Failed to insert fix: %v", err)
	}
}

func (e *env) count(t *testing.T, notificationType constants.NotificationType) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&gorm.Notification{}).Where("notification_type = ?", notificationType).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count notifications: %v", err)
	}
	return n
}

func ago(minutes int) time.Time {
	return now.Add(-time.Duration(minutes) * time.Minute)
}
