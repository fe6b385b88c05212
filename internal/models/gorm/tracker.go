package gorm

import (
	"time"

	"linker/internal/constants"
)

// Tracker is a physical GPS device. LastLogID is maintained in the same
// transaction that inserts fixes for the tracker.
type Tracker struct {
	ID          uint    `gorm:"column:id;primaryKey"`
	ExternalID  string  `gorm:"column:tracker_id;type:varchar(50);uniqueIndex;not null"`
	TrackerName *string `gorm:"column:tracker_name;type:varchar(50)"`
	LastLogID   *uint   `gorm:"column:last_log_id"`

	// Relationships
	LastLog *TrackerLog `gorm:"foreignKey:LastLogID"`
}

// TableName specifies the table name for GORM
func (Tracker) TableName() string {
	return "trackers_tracker"
}

func (t Tracker) String() string {
	if t.TrackerName != nil && *t.TrackerName != "" {
		return *t.TrackerName
	}
	return t.ExternalID
}

// TrackerLog is one immutable GPS fix. TrackerType 0 means the vendor sent no type.
type TrackerLog struct {
	ID          uint                       `gorm:"column:id;primaryKey"`
	TrackerID   uint                       `gorm:"column:tracker_id;not null;uniqueIndex:idx_trackerlog_unique,priority:1;index:idx_trackerlog_tracker_type,priority:1"`
	GpsDatetime time.Time                  `gorm:"column:gps_datetime;not null;index;uniqueIndex:idx_trackerlog_unique,priority:2"`
	TrackerType int                        `gorm:"column:tracker_type;not null;default:0;uniqueIndex:idx_trackerlog_unique,priority:3;index:idx_trackerlog_tracker_type,priority:2"`
	Longitude   float64                    `gorm:"column:longitude;not null"`
	Latitude    float64                    `gorm:"column:latitude;not null"`
	TeamIsSafe  bool                       `gorm:"column:team_is_safe;default:false"`
	Source      constants.TrackerLogSource `gorm:"column:source;type:varchar(30);not null"`

	FetchDatetime *time.Time `gorm:"column:fetch_datetime"`
	LocalDatetime *time.Time `gorm:"column:local_datetime"`
	LastSyncDate  *time.Time `gorm:"column:last_sync_date"`
	Satellites    *int       `gorm:"column:satellites"`
	AnalogInput   *float64   `gorm:"column:analog_input"`
	Voltage       *float64   `gorm:"column:voltage"`
	Heading       *int       `gorm:"column:heading"`
	Speed         *int       `gorm:"column:speed"`
	HasGps        *bool      `gorm:"column:has_gps"`
	HasPower      *bool      `gorm:"column:has_power"`
	IsOnline      *bool      `gorm:"column:is_online"`
	Code          string     `gorm:"column:code;type:varchar(20)"`
	Name          string     `gorm:"column:name;type:varchar(50)"`
}

// TableName specifies the table name for GORM
func (TrackerLog) TableName() string {
	return "trackers_trackerlog"
}
