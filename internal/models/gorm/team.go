package gorm

import (
	"fmt"
	"time"

	"linker/internal/constants"
)

type Team struct {
	ID                 uint                `gorm:"column:id;primaryKey"`
	Direction          constants.Direction `gorm:"column:direction;type:varchar(1);not null"`
	Number             int                 `gorm:"column:number;uniqueIndex;not null"`
	Name               string              `gorm:"column:name;type:varchar(100)"`
	Chiro              string              `gorm:"column:chiro;type:varchar(100)"`
	TrackerID          *uint               `gorm:"column:tracker_id;uniqueIndex"`
	SafeWeide          string              `gorm:"column:safe_weide;type:varchar(64);default:''"`
	SafeWeideUpdatedAt *time.Time          `gorm:"column:safe_weide_updated_at"`

	// Relationships
	Tracker *Tracker `gorm:"foreignKey:TrackerID"`
}

// TableName specifies the table name for GORM
func (Team) TableName() string {
	return "people_team"
}

// IsSafe reports whether the team was withdrawn to a safe weide.
func (t Team) IsSafe() bool {
	return t.SafeWeide != ""
}

func (t Team) String() string {
	return fmt.Sprintf("%s%02d %s", t.Direction, t.Number, t.Name)
}

// OrganizationMember is a staff member that may carry a tracker.
type OrganizationMember struct {
	ID          uint                 `gorm:"column:id;primaryKey"`
	Name        string               `gorm:"column:name;type:varchar(100)"`
	Code        string               `gorm:"column:code;type:varchar(5)"`
	PhoneNumber string               `gorm:"column:phone_number;type:varchar(13)"`
	MemberType  constants.MemberType `gorm:"column:member_type;type:varchar(13)"`
	TrackerID   *uint                `gorm:"column:tracker_id;uniqueIndex"`
}

// TableName specifies the table name for GORM
func (OrganizationMember) TableName() string {
	return "people_organizationmember"
}
