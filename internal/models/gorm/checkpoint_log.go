package gorm

import "time"

// CheckpointLog is an interval during which a team was nearest to a fiche.
// Left is nil while the interval is still open.
type CheckpointLog struct {
	ID      uint       `gorm:"column:id;primaryKey"`
	TeamID  uint       `gorm:"column:team_id;not null;index:idx_checkpointlog_team_fiche,priority:1"`
	FicheID uint       `gorm:"column:fiche_id;not null;index:idx_checkpointlog_team_fiche,priority:2"`
	Arrived time.Time  `gorm:"column:arrived;not null;index"`
	Left    *time.Time `gorm:"column:left_at"`

	// Relationships
	Team  *Team  `gorm:"foreignKey:TeamID"`
	Fiche *Fiche `gorm:"foreignKey:FicheID"`
}

// TableName specifies the table name for GORM
func (CheckpointLog) TableName() string {
	return "tracing_checkpointlog"
}
