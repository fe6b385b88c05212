package repositories

import (
	"context"
	"time"

	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// CheckpointLogRepo stores the checkpoint intervals derived by the tracer.
type CheckpointLogRepo struct {
	db *gormlib.DB
}

func NewCheckpointLogRepo(db *gormlib.DB) *CheckpointLogRepo {
	return &CheckpointLogRepo{db: db}
}

// LatestLeft returns the latest left time over the team's intervals, or nil.
func (r *CheckpointLogRepo) LatestLeft(ctx context.Context, teamID uint) (*time.Time, error) {
	var log gorm.CheckpointLog
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND left_at IS NOT NULL", teamID).
		Order("left_at DESC").
		First(&log).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return log.Left, nil
}

// FindMergeCandidate returns the latest interval of the team at the fiche that
// a run [arrived, left] may extend: it started no later than the run ended and
// it is open or ended no earlier than arrived minus grace. Both bounds are inclusive.
func (r *CheckpointLogRepo) FindMergeCandidate(ctx context.Context, teamID, ficheID uint, arrived, left time.Time, grace time.Duration) (*gorm.CheckpointLog, error) {
	var log gorm.CheckpointLog
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND fiche_id = ?", teamID, ficheID).
		Where("arrived <= ?", left.UTC()).
		Where("left_at IS NULL OR left_at >= ?", arrived.Add(-grace).UTC()).
		Order("arrived DESC, id DESC").
		First(&log).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// HasLogBetween reports whether the team has another interval, other than
// excludeID, that arrived strictly inside (after, before).
func (r *CheckpointLogRepo) HasLogBetween(ctx context.Context, teamID, excludeID uint, after, before time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gorm.CheckpointLog{}).
		Where("team_id = ? AND id <> ?", teamID, excludeID).
		Where("arrived > ? AND arrived < ?", after.UTC(), before.UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *CheckpointLogRepo) Create(ctx context.Context, log *gorm.CheckpointLog) error {
	log.Arrived = log.Arrived.UTC()
	if log.Left != nil {
		left := log.Left.UTC()
		log.Left = &left
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *CheckpointLogRepo) UpdateLeft(ctx context.Context, id uint, left time.Time) error {
	return r.db.WithContext(ctx).
		Model(&gorm.CheckpointLog{}).
		Where("id = ?", id).
		Update("left_at", left.UTC()).Error
}

// ListByTeam returns the team's intervals ordered by arrival.
func (r *CheckpointLogRepo) ListByTeam(ctx context.Context, teamID uint) ([]gorm.CheckpointLog, error) {
	var logs []gorm.CheckpointLog
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("arrived, id").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// List returns every interval ordered by team, then arrival.
func (r *CheckpointLogRepo) List(ctx context.Context) ([]gorm.CheckpointLog, error) {
	var logs []gorm.CheckpointLog
	err := r.db.WithContext(ctx).
		Order("team_id, arrived, id").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteArrivedAfter removes intervals that started after t. Only simulation reset calls this.
func (r *CheckpointLogRepo) DeleteArrivedAfter(ctx context.Context, t time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("arrived > ?", t.UTC()).
		Delete(&gorm.CheckpointLog{})
	return result.RowsAffected, result.Error
}
