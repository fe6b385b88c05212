package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"linker/internal/constants"
	"linker/internal/db/dbtest"
	"linker/internal/db/repositories"
	"linker/internal/metrics"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gormlib "gorm.io/gorm"
)

var fetchTime = time.Date(2023, 4, 29, 14, 0, 30, 0, time.UTC)

func newImporter(t *testing.T) (*gormlib.DB, *Importer, *metrics.MetricsRegistry) {
	t.Helper()
	db := dbtest.Open(t)
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	return db, NewImporter(repositories.NewTrackerRepo(db), repositories.NewTeamRepo(db), reg), reg
}

func decodePayload(t *testing.T, body string) *dtos.GeodynamicsPayload {
	t.Helper()
	var payload dtos.GeodynamicsPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	return &payload
}

const snapshot = `{"Data":[
	{"Id":"A1","Name":"Tracker A1","Code":"R1","IsOnline":true,
	 "LastLocation":{"GpsDateTime":"2023-04-29T16:00:00+02:00","Longitude":4.12345678,"Latitude":50.87654321,"Type":1000,"VoltageString":"3.9","Satellites":9}},
	{"Id":"A2","Name":"Tracker A2",
	 "LastLocation":{"GpsDateTime":"not a date","Longitude":4.0,"Latitude":50.0}},
	{"Id":"A3","Name":"Tracker A3","LastLocation":null}
]}`

func TestImporter_Import(t *testing.T) {
	db, importer, reg := newImporter(t)
	ctx := context.Background()

	inserted, err := importer.Import(ctx, decodePayload(t, snapshot), constants.SourceMinisiteAPI, fetchTime)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 fix inserted, got %d", inserted)
	}

	var trackers []gorm.Tracker
	db.Order("tracker_id").Find(&trackers)
	if len(trackers) != 3 {
		t.Fatalf("Expected all 3 trackers registered, got %d", len(trackers))
	}
	if trackers[0].TrackerName == nil || *trackers[0].TrackerName != "Tracker A1" {
		t.Errorf("Expected tracker name to be stored, got %v", trackers[0].TrackerName)
	}

	var log gorm.TrackerLog
	if err := db.Where("tracker_id = ?", trackers[0].ID).First(&log).Error; err != nil {
		t.Fatalf("Expected stored fix, got %v", err)
	}
	if !log.GpsDatetime.Equal(time.Date(2023, 4, 29, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected GPS time 14:00 UTC, got %s", log.GpsDatetime)
	}
	if log.Longitude != 4.123457 || log.Latitude != 50.876543 {
		t.Errorf("Expected coordinates rounded to 6 decimals, got %v,%v", log.Longitude, log.Latitude)
	}
	if log.TrackerType != 1000 || log.Code != "R1" {
		t.Errorf("Expected type 1000 and code R1, got %d and %s", log.TrackerType, log.Code)
	}
	if log.Voltage == nil || *log.Voltage != 3.9 {
		t.Errorf("Expected voltage 3.9, got %v", log.Voltage)
	}
	if log.FetchDatetime == nil || !log.FetchDatetime.Equal(fetchTime) {
		t.Errorf("Expected fetch time %s, got %v", fetchTime, log.FetchDatetime)
	}
	if log.Source != constants.SourceMinisiteAPI {
		t.Errorf("Expected source minisite, got %s", log.Source)
	}

	if got := testutil.ToFloat64(reg.FixesSkippedTotal.WithLabelValues(skipBadTimestamp)); got != 1 {
		t.Errorf("Expected 1 bad timestamp skip, got %v", got)
	}
	if got := testutil.ToFloat64(reg.FixesSkippedTotal.WithLabelValues(skipNoLocation)); got != 1 {
		t.Errorf("Expected 1 missing location skip, got %v", got)
	}

	// The same snapshot again adds nothing.
	inserted, err = importer.Import(ctx, decodePayload(t, snapshot), constants.SourceMinisiteAPI, fetchTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if inserted != 0 {
		t.Errorf("Expected duplicate fix to be ignored, got %d inserted", inserted)
	}
	if got := testutil.ToFloat64(reg.FixesIngestedTotal.WithLabelValues(constants.SourceMinisiteAPI.String())); got != 1 {
		t.Errorf("Expected 1 ingested fix, got %v", got)
	}
}

func TestImporter_SnapshotsSafeState(t *testing.T) {
	db, importer, _ := newImporter(t)
	ctx := context.Background()

	tracker := gorm.Tracker{ExternalID: "A1"}
	db.Create(&tracker)
	db.Create(&gorm.Team{Direction: constants.DirectionRed, Number: 1, TrackerID: &tracker.ID, SafeWeide: "Weide C"})

	if _, err := importer.Import(ctx, decodePayload(t, snapshot), constants.SourceMinisiteAPI, fetchTime); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var log gorm.TrackerLog
	db.Where("tracker_id = ?", tracker.ID).First(&log)
	if !log.TeamIsSafe {
		t.Error("Expected fix of a safe team to be flagged")
	}

	var reloaded gorm.Tracker
	db.First(&reloaded, tracker.ID)
	if reloaded.LastLogID == nil || *reloaded.LastLogID != log.ID {
		t.Errorf("Expected last log %d, got %v", log.ID, reloaded.LastLogID)
	}
}

func TestImporter_AddManual(t *testing.T) {
	db, importer, _ := newImporter(t)
	ctx := context.Background()

	tracker := gorm.Tracker{ExternalID: "A1"}
	db.Create(&tracker)
	at := time.Date(2023, 4, 29, 15, 0, 0, 0, time.UTC)

	log, err := importer.AddManual(ctx, tracker.ID, at, 4.1234567, 50.1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if log.ID == 0 || log.Source != constants.SourceManual {
		t.Errorf("Expected stored manual fix, got %+v", log)
	}
	if log.Longitude != 4.123457 {
		t.Errorf("Expected rounded longitude, got %v", log.Longitude)
	}

	if _, err := importer.AddManual(ctx, tracker.ID, at, 4.0, 50.0); !errors.Is(err, ErrDuplicateFix) {
		t.Errorf("Expected ErrDuplicateFix, got %v", err)
	}
	if _, err := importer.AddManual(ctx, tracker.ID+10, at, 4.0, 50.0); !errors.Is(err, ErrTrackerNotFound) {
		t.Errorf("Expected ErrTrackerNotFound, got %v", err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2023-04-29T14:00:00Z", time.Date(2023, 4, 29, 14, 0, 0, 0, time.UTC), true},
		{"2023-04-29T16:00:00.5+02:00", time.Date(2023, 4, 29, 14, 0, 0, 500000000, time.UTC), true},
		{"2023-04-29T14:00:00", time.Date(2023, 4, 29, 14, 0, 0, 0, time.UTC), true},
		{"2023-04-29 14:00:00", time.Date(2023, 4, 29, 14, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"29/04/2023", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseTime(tt.in)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
