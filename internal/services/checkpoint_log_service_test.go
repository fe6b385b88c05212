package services

import (
	"context"
	"testing"

	"linker/internal/db/dbtest"
	"linker/internal/db/repositories"
	"linker/internal/models/gorm"
)

func TestCheckpointLogService_List(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	tocht := gorm.Tocht{Identifier: "C", Route: "{}"}
	db.Create(&tocht)
	fiche := gorm.Fiche{TochtID: tocht.ID, Order: 3, Longitude: 4.0, Latitude: 50.0}
	db.Create(&fiche)

	logs := repositories.NewCheckpointLogRepo(db)
	left := ago(50)
	for _, l := range []gorm.CheckpointLog{
		{TeamID: 1, FicheID: fiche.ID, Arrived: ago(60), Left: &left},
		{TeamID: 2, FicheID: fiche.ID, Arrived: ago(30)},
	} {
		if err := logs.Create(ctx, &l); err != nil {
			t.Fatalf("Failed to create checkpoint log: %v", err)
		}
	}

	svc := NewCheckpointLogService(logs, repositories.NewReferenceRepo(db))

	all, err := svc.List(ctx, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 logs, got %d", len(all))
	}
	if all[0].Fiche != "C3" {
		t.Errorf("Expected label C3, got %s", all[0].Fiche)
	}

	team := uint(2)
	one, err := svc.List(ctx, &team)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(one) != 1 || one[0].TeamID != 2 || one[0].Left != nil {
		t.Errorf("Expected the open interval of team 2, got %+v", one)
	}
}
