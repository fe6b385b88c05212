package repositories

import (
	"context"

	"linker/internal/constants"
	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepo stores the currently true notification conditions.
type NotificationRepo struct {
	db *gormlib.DB
}

func NewNotificationRepo(db *gormlib.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// ListByType returns the notifications of one type keyed by tracker.
func (r *NotificationRepo) ListByType(ctx context.Context, notificationType constants.NotificationType) (map[uint]gorm.Notification, error) {
	var notifications []gorm.Notification
	err := r.db.WithContext(ctx).
		Where("notification_type = ?", notificationType).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	byTracker := make(map[uint]gorm.Notification, len(notifications))
	for _, n := range notifications {
		byTracker[n.TrackerID] = n
	}
	return byTracker, nil
}

// Create inserts the notification unless one of the same type already exists
// for the tracker. Returns whether a row was inserted.
func (r *NotificationRepo) Create(ctx context.Context, n *gorm.Notification) (bool, error) {
	n.Sent = n.Sent.UTC()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes notifications and their read markers.
func (r *NotificationRepo) Delete(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		if err := tx.Where("notification_id IN ?", ids).Delete(&gorm.ReadNotification{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&gorm.Notification{}).Error
	})
}

// List returns all notifications with their tracker, most urgent first.
func (r *NotificationRepo) List(ctx context.Context) ([]gorm.Notification, error) {
	var notifications []gorm.Notification
	err := r.db.WithContext(ctx).
		Preload("Tracker").
		Order("severity DESC, sent DESC, id").
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// ReadBy returns the ids of the notifications the user has read.
func (r *NotificationRepo) ReadBy(ctx context.Context, userID string) (map[uint]bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&gorm.ReadNotification{}).
		Where("user_id = ?", userID).
		Pluck("notification_id", &ids).Error
	if err != nil {
		return nil, err
	}

	read := make(map[uint]bool, len(ids))
	for _, id := range ids {
		read[id] = true
	}
	return read, nil
}

// MarkRead records that the user has seen a notification. Returns false when
// the notification no longer exists.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, notificationID uint) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		var count int64
		if err := tx.Model(&gorm.Notification{}).Where("id = ?", notificationID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		found = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&gorm.ReadNotification{UserID: userID, NotificationID: notificationID}).Error
	})
	return found, err
}

// CountByType returns the number of active notifications per type.
func (r *NotificationRepo) CountByType(ctx context.Context) (map[constants.NotificationType]int64, error) {
	var rows []struct {
		NotificationType constants.NotificationType
		Count            int64
	}
	err := r.db.WithContext(ctx).
		Model(&gorm.Notification{}).
		Select("notification_type, COUNT(*) AS count").
		Group("notification_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[constants.NotificationType]int64, len(rows))
	for _, row := range rows {
		counts[row.NotificationType] = row.Count
	}
	return counts, nil
}
