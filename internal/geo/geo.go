// Package geo answers the spatial questions the tracker asks of the course
// reference data: which fiche, tocht, weide or forbidden area a point is near.
// Points are orb.Point values in [longitude, latitude] order.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrUnsupportedGeometry is returned when stored GeoJSON has an unexpected type.
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// ForbiddenArea is a forbidden area containing a point.
type ForbiddenArea struct {
	ID           uint
	RouteAllowed bool
}

// Index is the spatial query interface of the reference store.
// Radii are in meters. The boolean result is false when nothing is in range.
type Index interface {
	NearestFiche(ctx context.Context, p orb.Point, radius float64) (uint, bool, error)
	NearestTocht(ctx context.Context, p orb.Point, radius float64) (uint, bool, error)
	NearestWeide(ctx context.Context, p orb.Point, radius float64) (uint, bool, error)
	NearBasis(ctx context.Context, p orb.Point, radius float64) (bool, error)
	ForbiddenAreasAt(ctx context.Context, p orb.Point) ([]ForbiddenArea, error)
	// CourseCenter is the centroid of all non-alternative routes.
	CourseCenter(ctx context.Context) (orb.Point, bool, error)
}

// Distance returns the great circle distance between two points in meters.
func Distance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

// Centroid returns the mean position of a set of points.
func Centroid(points []orb.Point) (orb.Point, bool) {
	if len(points) == 0 {
		return orb.Point{}, false
	}
	c, _ := planar.CentroidArea(orb.MultiPoint(points))
	return c, true
}

// project maps p onto a local plane in meters centered on origin.
// Accurate to well under a meter over the few kilometers a course spans.
func project(origin, p orb.Point) orb.Point {
	rad := math.Pi / 180
	x := (p[0] - origin[0]) * rad * math.Cos(origin[1]*rad) * orb.EarthRadius
	y := (p[1] - origin[1]) * rad * orb.EarthRadius
	return orb.Point{x, y}
}

// DistanceToLine returns the distance from p to the nearest segment of line in meters.
func DistanceToLine(p orb.Point, line orb.LineString) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, line[0])
	}

	origin := orb.Point{}
	best := math.Inf(1)
	prev := project(p, line[0])
	for _, vertex := range line[1:] {
		cur := project(p, vertex)
		if d := planar.DistanceFromSegment(prev, cur, origin); d < best {
			best = d
		}
		prev = cur
	}
	return best
}

// DistanceToPolygon returns 0 when p lies inside the polygon, else the distance to its rings.
func DistanceToPolygon(p orb.Point, polygon orb.Polygon) float64 {
	if planar.PolygonContains(polygon, p) {
		return 0
	}
	best := math.Inf(1)
	for _, ring := range polygon {
		if d := DistanceToLine(p, orb.LineString(ring)); d < best {
			best = d
		}
	}
	return best
}

func decode(data string) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}
	if g.Geometry() == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.Type)
	}
	return g.Geometry(), nil
}

// ParseLineString decodes a GeoJSON LineString.
func ParseLineString(data string) (orb.LineString, error) {
	g, err := decode(data)
	if err != nil {
		return nil, err
	}
	line, ok := g.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("%w: expected LineString, got %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
	return line, nil
}

// ParsePolygon decodes a GeoJSON Polygon.
func ParsePolygon(data string) (orb.Polygon, error) {
	g, err := decode(data)
	if err != nil {
		return nil, err
	}
	polygon, ok := g.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("%w: expected Polygon, got %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
	return polygon, nil
}

// ParseMultiPolygon decodes a GeoJSON MultiPolygon. A plain Polygon is accepted too.
func ParseMultiPolygon(data string) (orb.MultiPolygon, error) {
	g, err := decode(data)
	if err != nil {
		return nil, err
	}
	switch v := g.(type) {
	case orb.MultiPolygon:
		return v, nil
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	default:
		return nil, fmt.Errorf("%w: expected MultiPolygon, got %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

// LineStringJSON encodes a track as a GeoJSON LineString.
func LineStringJSON(line orb.LineString) ([]byte, error) {
	return geojson.NewGeometry(line).MarshalJSON()
}
