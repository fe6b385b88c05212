package repositories

import (
	"context"
	"testing"
	"time"

	"linker/internal/db/dbtest"
	"linker/internal/models/gorm"
)

func TestCheckpointLogRepo_FindMergeCandidate(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewCheckpointLogRepo(db)
	ctx := context.Background()
	grace := 5 * time.Minute

	existing := gorm.CheckpointLog{TeamID: 1, FicheID: 10, Arrived: t0, Left: timePtr(t0.Add(2 * time.Minute))}
	if err := repo.Create(ctx, &existing); err != nil {
		t.Fatalf("Failed to create log: %v", err)
	}

	tests := []struct {
		name    string
		ficheID uint
		arrived time.Time
		left    time.Time
		want    bool
	}{
		{"inside grace", 10, t0.Add(6 * time.Minute), t0.Add(8 * time.Minute), true},
		{"exactly at grace bound", 10, t0.Add(7 * time.Minute), t0.Add(8 * time.Minute), true},
		{"beyond grace", 10, t0.Add(7*time.Minute + time.Second), t0.Add(8 * time.Minute), false},
		{"other fiche", 11, t0.Add(3 * time.Minute), t0.Add(4 * time.Minute), false},
		{"run ends before interval", 10, t0.Add(-3 * time.Minute), t0.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindMergeCandidate(ctx, 1, tt.ficheID, tt.arrived, tt.left, grace)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if (got != nil) != tt.want {
				t.Errorf("Expected candidate=%v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCheckpointLogRepo_OpenIntervalIsCandidate(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewCheckpointLogRepo(db)
	ctx := context.Background()

	open := gorm.CheckpointLog{TeamID: 1, FicheID: 10, Arrived: t0}
	repo.Create(ctx, &open)

	got, _ := repo.FindMergeCandidate(ctx, 1, 10, t0.Add(time.Hour), t0.Add(2*time.Hour), 5*time.Minute)
	if got == nil || got.ID != open.ID {
		t.Errorf("Expected open interval as candidate, got %+v", got)
	}
}

func TestCheckpointLogRepo_HasLogBetween(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewCheckpointLogRepo(db)
	ctx := context.Background()

	a := gorm.CheckpointLog{TeamID: 1, FicheID: 10, Arrived: t0, Left: timePtr(t0.Add(time.Minute))}
	b := gorm.CheckpointLog{TeamID: 1, FicheID: 11, Arrived: t0.Add(2 * time.Minute), Left: timePtr(t0.Add(3 * time.Minute))}
	other := gorm.CheckpointLog{TeamID: 2, FicheID: 11, Arrived: t0.Add(90 * time.Second)}
	repo.Create(ctx, &a)
	repo.Create(ctx, &b)
	repo.Create(ctx, &other)

	between, _ := repo.HasLogBetween(ctx, 1, a.ID, t0.Add(time.Minute), t0.Add(4*time.Minute))
	if !between {
		t.Error("Expected interval b between a and t0+4m")
	}
	between, _ = repo.HasLogBetween(ctx, 1, a.ID, t0.Add(time.Minute), t0.Add(2*time.Minute))
	if between {
		t.Error("Expected exclusive upper bound")
	}
	between, _ = repo.HasLogBetween(ctx, 3, 0, t0, t0.Add(time.Hour))
	if between {
		t.Error("Expected no intervals for another team")
	}
}

func TestCheckpointLogRepo_LatestLeftAndDelete(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewCheckpointLogRepo(db)
	ctx := context.Background()

	left, _ := repo.LatestLeft(ctx, 1)
	if left != nil {
		t.Errorf("Expected no resume point, got %v", left)
	}

	repo.Create(ctx, &gorm.CheckpointLog{TeamID: 1, FicheID: 10, Arrived: t0, Left: timePtr(t0.Add(time.Minute))})
	repo.Create(ctx, &gorm.CheckpointLog{TeamID: 1, FicheID: 11, Arrived: t0.Add(time.Hour), Left: timePtr(t0.Add(61 * time.Minute))})

	left, _ = repo.LatestLeft(ctx, 1)
	if left == nil || !left.Equal(t0.Add(61*time.Minute)) {
		t.Errorf("Expected resume at t0+61m, got %v", left)
	}

	deleted, err := repo.DeleteArrivedAfter(ctx, t0.Add(30*time.Minute))
	if err != nil || deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d (err %v)", deleted, err)
	}

	logs, _ := repo.ListByTeam(ctx, 1)
	if len(logs) != 1 || logs[0].FicheID != 10 {
		t.Errorf("Expected only the first interval to remain, got %+v", logs)
	}
}
