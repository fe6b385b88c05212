package gorm

// ForbiddenArea is a GeoJSON MultiPolygon teams should stay out of.
// When RouteAllowed is set, presence only counts once the team is also off-route.
type ForbiddenArea struct {
	ID           uint   `gorm:"column:id;primaryKey"`
	Description  string `gorm:"column:description;type:text"`
	Area         string `gorm:"column:area;type:text;not null"`
	RouteAllowed bool   `gorm:"column:route_allowed;default:false"`
}

// TableName specifies the table name for GORM
func (ForbiddenArea) TableName() string {
	return "map_forbiddenarea"
}
