package geo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

// PostGISIndex runs the spatial queries inside Postgres. Geometry columns are
// stored as coordinates and GeoJSON text, so every query builds the PostGIS
// geometry on the fly and compares on geography for meter distances.
type PostGISIndex struct {
	db *sqlx.DB
}

var _ Index = (*PostGISIndex)(nil)

func NewPostGISIndex(db *sqlx.DB) *PostGISIndex {
	return &PostGISIndex{db: db}
}

const pointSQL = `ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography`

const (
	nearestFicheQuery = `
		SELECT id FROM map_fiche
		WHERE ST_DWithin(ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography, ` + pointSQL + `, $3)
		ORDER BY ST_Distance(ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography, ` + pointSQL + `), id
		LIMIT 1`

	nearestTochtQuery = `
		SELECT id FROM map_tocht
		WHERE ST_DWithin(ST_SetSRID(ST_GeomFromGeoJSON(route), 4326)::geography, ` + pointSQL + `, $3)
		ORDER BY ST_Distance(ST_SetSRID(ST_GeomFromGeoJSON(route), 4326)::geography, ` + pointSQL + `), id
		LIMIT 1`

	nearestWeideQuery = `
		SELECT id FROM map_weide
		WHERE ST_DWithin(ST_SetSRID(ST_GeomFromGeoJSON(polygon), 4326)::geography, ` + pointSQL + `, $3)
		ORDER BY ST_Distance(ST_SetSRID(ST_GeomFromGeoJSON(polygon), 4326)::geography, ` + pointSQL + `), id
		LIMIT 1`

	nearBasisQuery = `
		SELECT EXISTS (
			SELECT 1 FROM map_basis
			WHERE ST_DWithin(ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)::geography, ` + pointSQL + `, $3)
		)`

	forbiddenAreasQuery = `
		SELECT id, route_allowed FROM map_forbiddenarea
		WHERE ST_Contains(ST_SetSRID(ST_GeomFromGeoJSON(area), 4326), ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY id`

	courseCenterQuery = `
		SELECT ST_X(c), ST_Y(c) FROM (
			SELECT ST_Centroid(ST_Collect(ST_SetSRID(ST_GeomFromGeoJSON(route), 4326))) AS c
			FROM map_tocht WHERE NOT is_alternative
		) AS course
		WHERE c IS NOT NULL`
)

func (g *PostGISIndex) nearest(ctx context.Context, query string, p orb.Point, radius float64) (uint, bool, error) {
	var id uint
	err := g.db.GetContext(ctx, &id, query, p[0], p[1], radius)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("spatial query failed: %w", err)
	}
	return id, true, nil
}

func (g *PostGISIndex) NearestFiche(ctx context.Context, p orb.Point, radius float64) (uint, bool, error) {
	return g.nearest(ctx, nearestFicheQuery, p, radius)
}

func (g *PostGISIndex) NearestTocht(ctx context.Context, p orb.Point, radius float64) (uint, bool, error) {
	return g.nearest(ctx, nearestTochtQuery, p, radius)
}

func (g *PostGISIndex) NearestWeide(ctx context.Context, p orb.Point, radius float64) (uint, bool, error) {
	return g.nearest(ctx, nearestWeideQuery, p, radius)
}

func (g *PostGISIndex) NearBasis(ctx context.Context, p orb.Point, radius float64) (bool, error) {
	var near bool
	if err := g.db.GetContext(ctx, &near, nearBasisQuery, p[0], p[1], radius); err != nil {
		return false, fmt.Errorf("spatial query failed: %w", err)
	}
	return near, nil
}

func (g *PostGISIndex) ForbiddenAreasAt(ctx context.Context, p orb.Point) ([]ForbiddenArea, error) {
	var rows []struct {
		ID           uint `db:"id"`
		RouteAllowed bool `db:"route_allowed"`
	}
	if err := g.db.SelectContext(ctx, &rows, forbiddenAreasQuery, p[0], p[1]); err != nil {
		return nil, fmt.Errorf("spatial query failed: %w", err)
	}

	hits := make([]ForbiddenArea, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, ForbiddenArea{ID: r.ID, RouteAllowed: r.RouteAllowed})
	}
	return hits, nil
}

func (g *PostGISIndex) CourseCenter(ctx context.Context) (orb.Point, bool, error) {
	var c struct {
		X float64 `db:"st_x"`
		Y float64 `db:"st_y"`
	}
	err := g.db.GetContext(ctx, &c, courseCenterQuery)
	if errors.Is(err, sql.ErrNoRows) {
		return orb.Point{}, false, nil
	}
	if err != nil {
		return orb.Point{}, false, fmt.Errorf("spatial query failed: %w", err)
	}
	return orb.Point{c.X, c.Y}, true, nil
}
