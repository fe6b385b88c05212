package gorm

// Setting is a runtime key/value pair.
type Setting struct {
	Key         string `gorm:"column:key;primaryKey;type:varchar(50)"`
	Value       string `gorm:"column:value;type:varchar(100)"`
	Description string `gorm:"column:description;type:text"`
}

// TableName specifies the table name for GORM
func (Setting) TableName() string {
	return "config_setting"
}

// Switch toggles a runtime feature.
type Switch struct {
	ID          uint   `gorm:"column:id;primaryKey"`
	Name        string `gorm:"column:name;type:varchar(50);uniqueIndex;not null"`
	Description string `gorm:"column:description;type:text"`
	Active      bool   `gorm:"column:active;default:false"`
}

// TableName specifies the table name for GORM
func (Switch) TableName() string {
	return "config_switch"
}

// AllModels lists every model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Tocht{},
		&Fiche{},
		&Weide{},
		&Basis{},
		&ForbiddenArea{},
		&Tracker{},
		&TrackerLog{},
		&Team{},
		&OrganizationMember{},
		&CheckpointLog{},
		&Notification{},
		&ReadNotification{},
		&Setting{},
		&Switch{},
	}
}
