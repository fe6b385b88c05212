package gorm

// Tocht is one route of the course. Route holds a GeoJSON LineString.
type Tocht struct {
	ID            uint   `gorm:"column:id;primaryKey"`
	Identifier    string `gorm:"column:identifier;type:varchar(2);uniqueIndex;not null"`
	Order         *int   `gorm:"column:position"`
	IsAlternative bool   `gorm:"column:is_alternative;default:false"`
	Route         string `gorm:"column:route;type:text;not null"`

	Fiches []Fiche `gorm:"foreignKey:TochtID"`
}

// TableName specifies the table name for GORM
func (Tocht) TableName() string {
	return "map_tocht"
}
