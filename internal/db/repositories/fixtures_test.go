package repositories

import (
	"testing"
	"time"

	"linker/internal/constants"
	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

var t0 = time.Date(2023, 4, 29, 10, 0, 0, 0, time.UTC)

func createTracker(t *testing.T, db *gormlib.DB, vendorID string) gorm.Tracker {
	t.Helper()
	tracker := gorm.Tracker{ExternalID: vendorID}
	if err := db.Create(&tracker).Error; err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	return tracker
}

func createTeam(t *testing.T, db *gormlib.DB, number int, trackerID *uint, safeWeide string) gorm.Team {
	t.Helper()
	team := gorm.Team{Direction: constants.DirectionRed, Number: number, TrackerID: trackerID, SafeWeide: safeWeide}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("Failed to create team: %v", err)
	}
	return team
}

func fix(trackerID uint, at time.Time, trackerType int) gorm.TrackerLog {
	return gorm.TrackerLog{
		TrackerID:   trackerID,
		GpsDatetime: at,
		TrackerType: trackerType,
		Longitude:   4.0,
		Latitude:    50.0,
		Source:      constants.SourceGeodynamicsAPI,
	}
}

func timePtr(t time.Time) *time.Time { return &t }
