package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linker/internal/constants"
	"linker/internal/ingest"
	"linker/internal/lock"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"
	"linker/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

type mockStats struct {
	ReportFunc func(ctx context.Context) ([]byte, error)
}

func (m *mockStats) Report(ctx context.Context) ([]byte, error) { return m.ReportFunc(ctx) }

type mockCheckpointLogs struct {
	ListFunc func(ctx context.Context, teamID *uint) ([]dtos.CheckpointLogResponse, error)
}

func (m *mockCheckpointLogs) List(ctx context.Context, teamID *uint) ([]dtos.CheckpointLogResponse, error) {
	return m.ListFunc(ctx, teamID)
}

type mockTrackers struct {
	TrackFunc func(ctx context.Context, trackerID uint) ([]byte, error)
}

func (m *mockTrackers) List(context.Context) ([]dtos.TrackerStatusResponse, error) {
	return []dtos.TrackerStatusResponse{{ID: 1, Name: "R1"}}, nil
}

func (m *mockTrackers) Track(ctx context.Context, trackerID uint) ([]byte, error) {
	return m.TrackFunc(ctx, trackerID)
}

type mockManual struct {
	AddManualFunc func(ctx context.Context, trackerID uint, gpsTime time.Time, lon, lat float64) (*gorm.TrackerLog, error)
}

func (m *mockManual) AddManual(ctx context.Context, trackerID uint, gpsTime time.Time, lon, lat float64) (*gorm.TrackerLog, error) {
	return m.AddManualFunc(ctx, trackerID, gpsTime, lon, lat)
}

type mockNotifications struct {
	listUser string
	MarkFunc func(ctx context.Context, userID string, id uint) (bool, error)
}

func (m *mockNotifications) List(_ context.Context, userID string) ([]dtos.NotificationResponse, error) {
	m.listUser = userID
	return []dtos.NotificationResponse{}, nil
}

func (m *mockNotifications) MarkRead(ctx context.Context, userID string, id uint) (bool, error) {
	return m.MarkFunc(ctx, userID, id)
}

type mockIngest struct {
	RunFunc func(ctx context.Context) error
}

func (m *mockIngest) Run(ctx context.Context) error { return m.RunFunc(ctx) }

type mockSimulation struct {
	calls int
}

func (m *mockSimulation) Reset(context.Context) error {
	m.calls++
	return nil
}

func newTestRouter(svc *Services, locker lock.Locker) http.Handler {
	h := NewHandlers(&Dependencies{Services: svc, Locker: locker, UpSince: time.Now()})

	r := chi.NewRouter()
	r.Get("/healthCheck", h.HealthCheck())
	r.Get("/stats", h.GetStats())
	r.Get("/checkpointlogs", h.ListCheckpointLogs())
	r.Get("/trackers", h.ListTrackers())
	r.Get("/trackers/{id}/track", h.GetTrack())
	r.Post("/trackers/{id}/logs", h.AddManualLog())
	r.Get("/notifications", h.ListNotifications())
	r.Post("/notifications/{id}/read", h.MarkNotificationRead())
	r.Post("/admin/jobs/ingest", h.TriggerIngest())
	r.Post("/admin/simulation/reset", h.ResetSimulation())
	return r
}

func do(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("Response is not JSON: %v (%s)", err, rr.Body.String())
	}
	return rr, decoded
}

func TestHealthCheck_NoBackends(t *testing.T) {
	rr, resp := do(t, newTestRouter(&Services{}, nil), http.MethodGet, "/healthCheck", "")

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", resp["status"])
	}
}

func TestGetStats_EmbedsReport(t *testing.T) {
	svc := &Services{Stats: &mockStats{ReportFunc: func(context.Context) ([]byte, error) {
		return []byte(`{"teams":{}}`), nil
	}}}

	rr, resp := do(t, newTestRouter(svc, nil), http.MethodGet, "/stats", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("Expected data object, got %T", resp["data"])
	}
	if _, ok := data["teams"]; !ok {
		t.Errorf("Expected report embedded as JSON, got %v", data)
	}
}

func TestListCheckpointLogs_TeamFilter(t *testing.T) {
	var gotTeam *uint
	svc := &Services{CheckpointLogs: &mockCheckpointLogs{ListFunc: func(_ context.Context, teamID *uint) ([]dtos.CheckpointLogResponse, error) {
		gotTeam = teamID
		return nil, nil
	}}}
	router := newTestRouter(svc, nil)

	rr, _ := do(t, router, http.MethodGet, "/checkpointlogs?team=7", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if gotTeam == nil || *gotTeam != 7 {
		t.Errorf("Expected team filter 7, got %v", gotTeam)
	}

	rr, _ = do(t, router, http.MethodGet, "/checkpointlogs?team=abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad team, got %d", rr.Code)
	}
}

func TestGetTrack_NotFound(t *testing.T) {
	svc := &Services{Trackers: &mockTrackers{TrackFunc: func(context.Context, uint) ([]byte, error) {
		return nil, services.ErrTrackerNotFound
	}}}

	rr, _ := do(t, newTestRouter(svc, nil), http.MethodGet, "/trackers/99/track", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestAddManualLog(t *testing.T) {
	stamp := time.Date(2023, 4, 29, 14, 0, 0, 0, time.UTC)
	manual := &mockManual{AddManualFunc: func(_ context.Context, trackerID uint, gpsTime time.Time, lon, lat float64) (*gorm.TrackerLog, error) {
		switch trackerID {
		case 404:
			return nil, ingest.ErrTrackerNotFound
		case 409:
			return nil, ingest.ErrDuplicateFix
		}
		return &gorm.TrackerLog{ID: 1, TrackerID: trackerID, GpsDatetime: gpsTime, Longitude: lon, Latitude: lat, Source: constants.SourceManual}, nil
	}}
	router := newTestRouter(&Services{Manual: manual}, nil)

	tests := []struct {
		name         string
		target       string
		body         string
		expectedCode int
	}{
		{"stored", "/trackers/3/logs", `{"gps_datetime":"2023-04-29T14:00:00Z","longitude":4.1,"latitude":50.2}`, http.StatusCreated},
		{"latitude out of range", "/trackers/3/logs", `{"longitude":4.1,"latitude":95}`, http.StatusBadRequest},
		{"malformed body", "/trackers/3/logs", `{`, http.StatusBadRequest},
		{"bad id", "/trackers/x/logs", `{"longitude":4.1,"latitude":50.2}`, http.StatusBadRequest},
		{"unknown tracker", "/trackers/404/logs", `{"longitude":4.1,"latitude":50.2}`, http.StatusNotFound},
		{"duplicate", "/trackers/409/logs", `{"longitude":4.1,"latitude":50.2}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := do(t, router, http.MethodPost, tt.target, tt.body)
			if rr.Code != tt.expectedCode {
				t.Fatalf("Expected status %d, got %d (%v)", tt.expectedCode, rr.Code, resp)
			}
			if tt.expectedCode != http.StatusCreated {
				return
			}
			data := resp["data"].(map[string]any)
			if data["source"] != "manual" {
				t.Errorf("Expected source manual, got %v", data["source"])
			}
			if data["gps_datetime"] != stamp.Format(time.RFC3339) {
				t.Errorf("Expected gps_datetime %s, got %v", stamp.Format(time.RFC3339), data["gps_datetime"])
			}
		})
	}
}

func TestNotifications(t *testing.T) {
	notifications := &mockNotifications{MarkFunc: func(_ context.Context, userID string, id uint) (bool, error) {
		return id == 5 && userID == "alice", nil
	}}
	router := newTestRouter(&Services{Notifications: notifications}, nil)

	rr, _ := do(t, router, http.MethodGet, "/notifications", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without user, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set(HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if notifications.listUser != "alice" {
		t.Errorf("Expected user alice, got %q", notifications.listUser)
	}

	rr, _ = do(t, router, http.MethodPost, "/notifications/5/read", `{"user_id":"alice"}`)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	rr, _ = do(t, router, http.MethodPost, "/notifications/6/read", `{"user_id":"alice"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
	rr, _ = do(t, router, http.MethodPost, "/notifications/5/read", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without user_id, got %d", rr.Code)
	}
}

func TestTriggerIngest(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"ok", nil, http.StatusOK},
		{"lock held", lock.ErrLockHeld, http.StatusConflict},
		{"failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &Services{Ingest: &mockIngest{RunFunc: func(context.Context) error { return tt.err }}}
			rr, _ := do(t, newTestRouter(svc, nil), http.MethodPost, "/admin/jobs/ingest", "")
			if rr.Code != tt.expectedCode {
				t.Errorf("Expected status %d, got %d", tt.expectedCode, rr.Code)
			}
		})
	}
}

func TestResetSimulation(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLocker()

	rr, _ := do(t, newTestRouter(&Services{}, locker), http.MethodPost, "/admin/simulation/reset", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without simulation, got %d", rr.Code)
	}

	sim := &mockSimulation{}
	router := newTestRouter(&Services{Simulation: sim}, locker)

	held, err := locker.TryAcquire(ctx, constants.LockIngest, time.Minute)
	if err != nil {
		t.Fatalf("Failed to take lock: %v", err)
	}
	rr, _ = do(t, router, http.MethodPost, "/admin/simulation/reset", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while ingest runs, got %d", rr.Code)
	}
	_ = held.Release(ctx)

	rr, _ = do(t, router, http.MethodPost, "/admin/simulation/reset", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if sim.calls != 1 {
		t.Errorf("Expected one reset, got %d", sim.calls)
	}
}

func TestListTrackers(t *testing.T) {
	rr, resp := do(t, newTestRouter(&Services{Trackers: &mockTrackers{}}, nil), http.MethodGet, "/trackers", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	data, ok := resp["data"].([]any)
	if !ok || len(data) != 1 {
		t.Errorf("Expected one tracker, got %v", resp["data"])
	}
}
