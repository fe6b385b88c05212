package repositories

import (
	"context"
	"fmt"
	"time"

	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackerRepo handles trackers and their fixes. Fixes are never updated.
type TrackerRepo struct {
	db *gormlib.DB
}

func NewTrackerRepo(db *gormlib.DB) *TrackerRepo {
	return &TrackerRepo{db: db}
}

// GetOrCreate returns the tracker with the given vendor id, registering it when unknown.
func (r *TrackerRepo) GetOrCreate(ctx context.Context, vendorID string, name *string) (*gorm.Tracker, error) {
	tracker := gorm.Tracker{ExternalID: vendorID, TrackerName: name}

	err := r.db.WithContext(ctx).
		Where("tracker_id = ?", vendorID).
		FirstOrCreate(&tracker).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create tracker %s: %w", vendorID, err)
	}
	return &tracker, nil
}

func (r *TrackerRepo) FindByID(ctx context.Context, id uint) (*gorm.Tracker, error) {
	var tracker gorm.Tracker
	err := r.db.WithContext(ctx).Preload("LastLog").First(&tracker, id).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tracker, nil
}

// List returns every tracker with its last fix, ordered by name.
func (r *TrackerRepo) List(ctx context.Context) ([]gorm.Tracker, error) {
	var trackers []gorm.Tracker
	err := r.db.WithContext(ctx).
		Preload("LastLog").
		Order("tracker_name, tracker_id").
		Find(&trackers).Error
	if err != nil {
		return nil, err
	}
	return trackers, nil
}

// InsertLogs stores new fixes and skips any that already exist for the same
// (tracker, gps_datetime, tracker_type). The last_log pointer of every touched
// tracker is refreshed in the same transaction. Returns the number inserted.
func (r *TrackerRepo) InsertLogs(ctx context.Context, logs []gorm.TrackerLog) (int64, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&logs, 500)
		if result.Error != nil {
			return fmt.Errorf("failed to insert tracker logs: %w", result.Error)
		}
		inserted = result.RowsAffected

		touched := make(map[uint]struct{})
		ids := make([]uint, 0)
		for _, l := range logs {
			if _, ok := touched[l.TrackerID]; !ok {
				touched[l.TrackerID] = struct{}{}
				ids = append(ids, l.TrackerID)
			}
		}
		return refreshLastLogs(tx, ids)
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// RefreshLastLogs recomputes last_log for all trackers, e.g. after fixes were deleted.
func (r *TrackerRepo) RefreshLastLogs(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		var ids []uint
		if err := tx.Model(&gorm.Tracker{}).Pluck("id", &ids).Error; err != nil {
			return err
		}
		return refreshLastLogs(tx, ids)
	})
}

func refreshLastLogs(tx *gormlib.DB, trackerIDs []uint) error {
	for _, id := range trackerIDs {
		var latest gorm.TrackerLog
		err := tx.Where("tracker_id = ?", id).
			Order("gps_datetime DESC, id DESC").
			Limit(1).
			Find(&latest).Error
		if err != nil {
			return fmt.Errorf("failed to find last log of tracker %d: %w", id, err)
		}

		var lastLogID *uint
		if latest.ID != 0 {
			lastLogID = &latest.ID
		}
		if err := tx.Model(&gorm.Tracker{}).Where("id = ?", id).Update("last_log_id", lastLogID).Error; err != nil {
			return fmt.Errorf("failed to update last log of tracker %d: %w", id, err)
		}
	}
	return nil
}

// LatestLog returns the most recent fix of a tracker, or nil.
func (r *TrackerRepo) LatestLog(ctx context.Context, trackerID uint) (*gorm.TrackerLog, error) {
	var log gorm.TrackerLog
	err := r.db.WithContext(ctx).
		Where("tracker_id = ?", trackerID).
		Order("gps_datetime DESC, id DESC").
		First(&log).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// LatestLogOfTypes returns the most recent fix whose tracker_type is one of types.
func (r *TrackerRepo) LatestLogOfTypes(ctx context.Context, trackerID uint, types []int) (*gorm.TrackerLog, error) {
	if len(types) == 0 {
		return nil, nil
	}

	var log gorm.TrackerLog
	err := r.db.WithContext(ctx).
		Where("tracker_id = ? AND tracker_type IN ?", trackerID, types).
		Order("gps_datetime DESC, id DESC").
		First(&log).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// HasLogOfTypesSince reports whether a fix with one of types exists at or after since.
func (r *TrackerRepo) HasLogOfTypesSince(ctx context.Context, trackerID uint, types []int, since time.Time) (bool, error) {
	if len(types) == 0 {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&gorm.TrackerLog{}).
		Where("tracker_id = ? AND tracker_type IN ? AND gps_datetime >= ?", trackerID, types, since.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LogsSince returns the fixes of a tracker at or after since, oldest first.
func (r *TrackerRepo) LogsSince(ctx context.Context, trackerID uint, since time.Time) ([]gorm.TrackerLog, error) {
	var logs []gorm.TrackerLog
	err := r.db.WithContext(ctx).
		Where("tracker_id = ? AND gps_datetime >= ?", trackerID, since.UTC()).
		Order("gps_datetime, id").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// TraceableLogs returns the fixes the tracer may use: not taken while the
// team was safe and, when from is set, at or after from. Oldest first.
func (r *TrackerRepo) TraceableLogs(ctx context.Context, trackerID uint, from *time.Time) ([]gorm.TrackerLog, error) {
	query := r.db.WithContext(ctx).
		Where("tracker_id = ? AND team_is_safe = ?", trackerID, false)
	if from != nil {
		query = query.Where("gps_datetime >= ?", from.UTC())
	}

	var logs []gorm.TrackerLog
	if err := query.Order("gps_datetime, id").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// LatestFetchTime returns the newest fetch_datetime over all fixes, or nil.
func (r *TrackerRepo) LatestFetchTime(ctx context.Context) (*time.Time, error) {
	var log gorm.TrackerLog
	err := r.db.WithContext(ctx).
		Where("fetch_datetime IS NOT NULL").
		Order("fetch_datetime DESC").
		First(&log).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return log.FetchDatetime, nil
}

// DeleteFetchedAfter removes fixes fetched after t. Only simulation reset calls this.
func (r *TrackerRepo) DeleteFetchedAfter(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("fetch_datetime > ?", t.UTC()).
		Delete(&gorm.TrackerLog{})
	return result.RowsAffected, result.Error
}
