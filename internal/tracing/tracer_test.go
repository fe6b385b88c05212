package tracing

import (
	"context"
	"testing"
	"time"

	"linker/internal/config"
	"linker/internal/constants"
	"linker/internal/db/dbtest"
	"linker/internal/db/repositories"
	"linker/internal/geo"
	"linker/internal/metrics"
	"linker/internal/models/gorm"

	"github.com/prometheus/client_golang/prometheus"
	gormlib "gorm.io/gorm"
)

var t0 = time.Date(2023, 4, 29, 14, 0, 0, 0, time.UTC)

// Two fiches about 716m apart on one tocht, and a point halfway that is near neither.
var (
	atC3    = [2]float64{4.0, 50.0}
	atC4    = [2]float64{4.01, 50.0}
	between = [2]float64{4.005, 50.0}
)

type tracerFixture struct {
	db      *gormlib.DB
	tracer  *Tracer
	logs    *repositories.CheckpointLogRepo
	tracker *repositories.TrackerRepo
	c3, c4  gorm.Fiche
}

func setupTracer(t *testing.T) *tracerFixture {
	t.Helper()
	db := dbtest.Open(t)

	order := 3
	tocht := gorm.Tocht{Identifier: "C", Order: &order, Route: `{"type":"LineString","coordinates":[[4.0,50.0],[4.01,50.0]]}`}
	if err := db.Create(&tocht).Error; err != nil {
		t.Fatalf("Failed to create tocht: %v", err)
	}
	c3 := gorm.Fiche{TochtID: tocht.ID, Order: 3, Longitude: atC3[0], Latitude: atC3[1]}
	c4 := gorm.Fiche{TochtID: tocht.ID, Order: 4, Longitude: atC4[0], Latitude: atC4[1]}
	db.Create(&c3)
	db.Create(&c4)

	ref, err := repositories.NewReferenceRepo(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Failed to load reference: %v", err)
	}
	index, err := geo.NewMemoryIndex(ref)
	if err != nil {
		t.Fatalf("Failed to build index: %v", err)
	}

	logs := repositories.NewCheckpointLogRepo(db)
	trackers := repositories.NewTrackerRepo(db)
	tracer := NewTracer(
		repositories.NewTeamRepo(db),
		trackers,
		logs,
		index,
		config.DefaultTracking(),
		metrics.NewMetricsRegistry(prometheus.NewRegistry()),
	)

	return &tracerFixture{db: db, tracer: tracer, logs: logs, tracker: trackers, c3: c3, c4: c4}
}

func (f *tracerFixture) team(t *testing.T, number int) gorm.Team {
	t.Helper()
	tracker := gorm.Tracker{ExternalID: "GD-" + string(rune('A'+number))}
	if err := f.db.Create(&tracker).Error; err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	team := gorm.Team{Direction: constants.DirectionRed, Number: number, TrackerID: &tracker.ID}
	if err := f.db.Create(&team).Error; err != nil {
		t.Fatalf("Failed to create team: %v", err)
	}
	return team
}

func (f *tracerFixture) fixes(t *testing.T, team gorm.Team, safe bool, points ...fixAt) {
	t.Helper()
	var batch []gorm.TrackerLog
	for _, p := range points {
		batch = append(batch, gorm.TrackerLog{
			TrackerID:   *team.TrackerID,
			GpsDatetime: t0.Add(p.offset),
			Longitude:   p.at[0],
			Latitude:    p.at[1],
			TeamIsSafe:  safe,
			Source:      constants.SourceGeodynamicsAPI,
		})
	}
	if _, err := f.tracker.InsertLogs(context.Background(), batch); err != nil {
		t.Fatalf("Failed to insert fixes: %v", err)
	}
}

type fixAt struct {
	offset time.Duration
	at     [2]float64
}

func minutes(m int) time.Duration { return time.Duration(m) * time.Minute }

func (f *tracerFixture) trace(t *testing.T, team gorm.Team) []gorm.CheckpointLog {
	t.Helper()
	if err := f.tracer.TraceTeam(context.Background(), team); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	logs, err := f.logs.ListByTeam(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("Failed to list logs: %v", err)
	}
	return logs
}

func assertInterval(t *testing.T, log gorm.CheckpointLog, ficheID uint, arrived, left time.Duration) {
	t.Helper()
	if log.FicheID != ficheID {
		t.Errorf("Expected fiche %d, got %d", ficheID, log.FicheID)
	}
	if !log.Arrived.Equal(t0.Add(arrived)) {
		t.Errorf("Expected arrival at t0+%s, got %s", arrived, log.Arrived)
	}
	if log.Left == nil || !log.Left.Equal(t0.Add(left)) {
		t.Errorf("Expected departure at t0+%s, got %v", left, log.Left)
	}
}

func TestTraceTeam_ClosesRunOnGapAndOpensNext(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)
	f.fixes(t, team, false,
		fixAt{minutes(0), atC3}, fixAt{minutes(1), atC3}, fixAt{minutes(2), atC3},
		fixAt{minutes(3), between},
		fixAt{minutes(10), atC4},
	)

	logs := f.trace(t, team)

	if len(logs) != 2 {
		t.Fatalf("Expected 2 intervals, got %d: %+v", len(logs), logs)
	}
	assertInterval(t, logs[0], f.c3.ID, minutes(0), minutes(2))
	assertInterval(t, logs[1], f.c4.ID, minutes(10), minutes(10))
}

func TestTraceTeam_IdempotentRetrace(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)
	f.fixes(t, team, false,
		fixAt{minutes(0), atC3}, fixAt{minutes(1), atC3},
		fixAt{minutes(3), between},
		fixAt{minutes(10), atC4}, fixAt{minutes(11), atC4},
	)

	first := f.trace(t, team)
	second := f.trace(t, team)

	if len(first) != len(second) {
		t.Fatalf("Expected %d intervals after re-trace, got %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || !first[i].Arrived.Equal(second[i].Arrived) || !first[i].Left.Equal(*second[i].Left) {
			t.Errorf("Interval %d changed on re-trace: %+v -> %+v", i, first[i], second[i])
		}
	}
}

func TestTraceTeam_MergesFlapWithinGrace(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)
	f.fixes(t, team, false,
		fixAt{minutes(0), atC3}, fixAt{minutes(1), atC3},
		fixAt{minutes(2), between},
		fixAt{minutes(4), atC3}, fixAt{minutes(5), atC3},
	)

	logs := f.trace(t, team)

	if len(logs) != 1 {
		t.Fatalf("Expected one merged interval, got %d: %+v", len(logs), logs)
	}
	assertInterval(t, logs[0], f.c3.ID, minutes(0), minutes(5))
}

func TestTraceTeam_NoMergeBeyondGrace(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)
	f.fixes(t, team, false,
		fixAt{minutes(0), atC3}, fixAt{minutes(1), atC3},
		fixAt{minutes(2), between},
		fixAt{minutes(7), atC3},
	)

	logs := f.trace(t, team)

	if len(logs) != 2 {
		t.Fatalf("Expected two intervals, got %d: %+v", len(logs), logs)
	}
	assertInterval(t, logs[0], f.c3.ID, minutes(0), minutes(1))
	assertInterval(t, logs[1], f.c3.ID, minutes(7), minutes(7))
}

func TestTraceTeam_NoOverlapWhenReturningAcrossAnotherFiche(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)
	// C3, then C4, then back to C3 within the grace window.
	f.fixes(t, team, false,
		fixAt{minutes(0), atC3},
		fixAt{minutes(1), atC4},
		fixAt{minutes(2), atC3},
	)

	logs := f.trace(t, team)

	if len(logs) != 3 {
		t.Fatalf("Expected three intervals, got %d: %+v", len(logs), logs)
	}
	for i := 1; i < len(logs); i++ {
		prev, cur := logs[i-1], logs[i]
		if !prev.Left.Before(cur.Arrived) {
			t.Errorf("Intervals %d and %d overlap: %+v %+v", i-1, i, prev, cur)
		}
	}
}

func TestTraceTeam_ExtendsOnIncrementalFixes(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)

	f.fixes(t, team, false, fixAt{minutes(0), atC3}, fixAt{minutes(1), atC3})
	f.trace(t, team)

	f.fixes(t, team, false, fixAt{minutes(2), atC3}, fixAt{minutes(3), atC3})
	logs := f.trace(t, team)

	if len(logs) != 1 {
		t.Fatalf("Expected the open run to be extended, got %d intervals", len(logs))
	}
	assertInterval(t, logs[0], f.c3.ID, minutes(0), minutes(3))
}

func TestTraceTeam_IgnoresSafeFixes(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)
	f.fixes(t, team, true, fixAt{minutes(0), atC3}, fixAt{minutes(1), atC3})

	if logs := f.trace(t, team); len(logs) != 0 {
		t.Errorf("Expected no intervals from fixes taken while safe, got %+v", logs)
	}
}

func TestTraceTeam_NoFixesIsNoop(t *testing.T) {
	f := setupTracer(t)
	team := f.team(t, 1)

	if logs := f.trace(t, team); len(logs) != 0 {
		t.Errorf("Expected no intervals, got %+v", logs)
	}

	untracked := gorm.Team{Direction: constants.DirectionBlue, Number: 99}
	f.db.Create(&untracked)
	if err := f.tracer.TraceTeam(context.Background(), untracked); err != nil {
		t.Errorf("Expected team without tracker to be a no-op, got %v", err)
	}
}

func TestTraceAll(t *testing.T) {
	f := setupTracer(t)
	red := f.team(t, 1)
	blue := f.team(t, 2)
	f.fixes(t, red, false, fixAt{minutes(0), atC3})
	f.fixes(t, blue, false, fixAt{minutes(0), atC4})

	if err := f.tracer.TraceAll(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	redLogs, _ := f.logs.ListByTeam(context.Background(), red.ID)
	blueLogs, _ := f.logs.ListByTeam(context.Background(), blue.ID)
	if len(redLogs) != 1 || redLogs[0].FicheID != f.c3.ID {
		t.Errorf("Expected red at C3, got %+v", redLogs)
	}
	if len(blueLogs) != 1 || blueLogs[0].FicheID != f.c4.ID {
		t.Errorf("Expected blue at C4, got %+v", blueLogs)
	}
}
