package gorm

import "fmt"

// Fiche is a checkpoint on a tocht, numbered from 1 within its tocht.
type Fiche struct {
	ID        uint    `gorm:"column:id;primaryKey"`
	Order     int     `gorm:"column:position;not null;uniqueIndex:idx_fiche_tocht_order,priority:2"`
	TochtID   uint    `gorm:"column:tocht_id;not null;uniqueIndex:idx_fiche_tocht_order,priority:1"`
	Longitude float64 `gorm:"column:longitude;not null"`
	Latitude  float64 `gorm:"column:latitude;not null"`

	Tocht *Tocht `gorm:"foreignKey:TochtID"`
}

// TableName specifies the table name for GORM
func (Fiche) TableName() string {
	return "map_fiche"
}

// Label returns the printed name of the fiche, e.g. "C3". The tocht must be loaded.
func (f Fiche) Label() string {
	if f.Tocht == nil {
		return fmt.Sprintf("#%d", f.ID)
	}
	return fmt.Sprintf("%s%d", f.Tocht.Identifier, f.Order)
}
