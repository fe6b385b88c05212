package gorm

import (
	"time"

	"linker/internal/constants"
)

// Notification exists exactly as long as its condition holds for the tracker.
type Notification struct {
	ID               uint                       `gorm:"column:id;primaryKey"`
	NotificationType constants.NotificationType `gorm:"column:notification_type;type:varchar(255);not null;uniqueIndex:idx_notification_type_tracker,priority:1"`
	TrackerID        uint                       `gorm:"column:tracker_id;not null;uniqueIndex:idx_notification_type_tracker,priority:2"`
	Severity         int                        `gorm:"column:severity;default:0"`
	Sent             time.Time                  `gorm:"column:sent;not null"`

	Tracker *Tracker `gorm:"foreignKey:TrackerID"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "tracing_notification"
}

// ReadNotification marks a notification as read by one user.
type ReadNotification struct {
	ID             uint   `gorm:"column:id;primaryKey"`
	UserID         string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_user_notification,priority:1"`
	NotificationID uint   `gorm:"column:notification_id;not null;uniqueIndex:idx_user_notification,priority:2"`

	Notification *Notification `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for GORM
func (ReadNotification) TableName() string {
	return "tracing_readnotification"
}
