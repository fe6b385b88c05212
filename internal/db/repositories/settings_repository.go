package repositories

import (
	"context"

	"linker/internal/logging"
	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepo reads runtime switches and settings.
type SettingsRepo struct {
	db *gormlib.DB
}

func NewSettingsRepo(db *gormlib.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// SwitchIsActive reports whether a switch is on. A missing switch is off.
func (r *SettingsRepo) SwitchIsActive(ctx context.Context, name string) (bool, error) {
	active, found, err := r.lookupSwitch(ctx, name)
	if err != nil {
		return false, err
	}
	if !found {
		logging.Warn("Switch does not exist", "switch", name)
	}
	return active, nil
}

// SwitchIsActiveOr is SwitchIsActive with a caller-chosen value for a missing switch.
func (r *SettingsRepo) SwitchIsActiveOr(ctx context.Context, name string, missing bool) (bool, error) {
	active, found, err := r.lookupSwitch(ctx, name)
	if err != nil {
		return false, err
	}
	if !found {
		return missing, nil
	}
	return active, nil
}

func (r *SettingsRepo) lookupSwitch(ctx context.Context, name string) (bool, bool, error) {
	var sw gorm.Switch
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&sw).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return false, false, nil
		}
		return false, false, err
	}
	return sw.Active, true, nil
}

// SetSwitch creates or updates a switch.
func (r *SettingsRepo) SetSwitch(ctx context.Context, name string, active bool) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"active"}),
		}).
		Create(&gorm.Switch{Name: name, Active: active}).Error
}

// GetSetting returns the value of a setting, or nil when unset.
func (r *SettingsRepo) GetSetting(ctx context.Context, key string) (*string, error) {
	var setting gorm.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &setting.Value, nil
}

// SetSetting creates or updates a setting.
func (r *SettingsRepo) SetSetting(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&gorm.Setting{Key: key, Value: value}).Error
}
