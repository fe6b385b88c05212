package gorm

// Weide is a meadow polygon (GeoJSON Polygon), optionally tied to a tocht.
type Weide struct {
	ID         uint   `gorm:"column:id;primaryKey"`
	Identifier string `gorm:"column:identifier;type:varchar(1);uniqueIndex;not null"`
	Name       string `gorm:"column:name;type:varchar(20)"`
	TochtID    *uint  `gorm:"column:tocht_id;uniqueIndex"`
	Polygon    string `gorm:"column:polygon;type:text;not null"`
}

// TableName specifies the table name for GORM
func (Weide) TableName() string {
	return "map_weide"
}

// Basis is the central base camp.
type Basis struct {
	ID        uint    `gorm:"column:id;primaryKey"`
	Longitude float64 `gorm:"column:longitude;not null"`
	Latitude  float64 `gorm:"column:latitude;not null"`
}

// TableName specifies the table name for GORM
func (Basis) TableName() string {
	return "map_basis"
}
