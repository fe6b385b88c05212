package repositories

import (
	"context"
	"testing"

	"linker/internal/constants"
	"linker/internal/db/dbtest"
)

func TestSettingsRepo_Switches(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	active, err := repo.SwitchIsActive(ctx, constants.SwitchSimulate)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if active {
		t.Error("Expected a missing switch to be inactive")
	}

	active, _ = repo.SwitchIsActiveOr(ctx, constants.SwitchTraceTeams, true)
	if !active {
		t.Error("Expected missing switch to take the fallback")
	}

	if err := repo.SetSwitch(ctx, constants.SwitchTraceTeams, false); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	active, _ = repo.SwitchIsActiveOr(ctx, constants.SwitchTraceTeams, true)
	if active {
		t.Error("Expected stored switch to win over the fallback")
	}

	repo.SetSwitch(ctx, constants.SwitchTraceTeams, true)
	active, _ = repo.SwitchIsActive(ctx, constants.SwitchTraceTeams)
	if !active {
		t.Error("Expected switch to be updated in place")
	}
}

func TestSettingsRepo_Settings(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	value, err := repo.GetSetting(ctx, constants.SettingSimulationStart)
	if err != nil || value != nil {
		t.Fatalf("Expected unset setting, got %v (err %v)", value, err)
	}

	repo.SetSetting(ctx, constants.SettingSimulationStart, "2023-04-29T12:00:00Z")
	repo.SetSetting(ctx, constants.SettingSimulationStart, "2023-04-29T13:00:00Z")

	value, _ = repo.GetSetting(ctx, constants.SettingSimulationStart)
	if value == nil || *value != "2023-04-29T13:00:00Z" {
		t.Errorf("Expected updated value, got %v", value)
	}
}
