package geo

import (
	"context"
	"fmt"
	"math"

	gormModels "linker/internal/models/gorm"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Reference is the static course geometry as stored in the database.
type Reference struct {
	Tochten        []gormModels.Tocht
	Fiches         []gormModels.Fiche
	Weides         []gormModels.Weide
	Bases          []gormModels.Basis
	ForbiddenAreas []gormModels.ForbiddenArea
}

type fichePoint struct {
	id    uint
	point orb.Point
}

type route struct {
	id          uint
	alternative bool
	line        orb.LineString
}

type weide struct {
	id      uint
	polygon orb.Polygon
}

type area struct {
	id           uint
	routeAllowed bool
	multi        orb.MultiPolygon
	bound        orb.Bound
}

// MemoryIndex keeps the parsed reference geometry in memory. The course has at
// most a few hundred features, so every query is a linear scan.
type MemoryIndex struct {
	fiches []fichePoint
	routes []route
	weides []weide
	bases  []orb.Point
	areas  []area
	center orb.Point
	hasCtr bool
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex parses the stored GeoJSON of every feature.
func NewMemoryIndex(ref *Reference) (*MemoryIndex, error) {
	idx := &MemoryIndex{}

	for _, f := range ref.Fiches {
		idx.fiches = append(idx.fiches, fichePoint{id: f.ID, point: orb.Point{f.Longitude, f.Latitude}})
	}

	var course orb.MultiLineString
	for _, t := range ref.Tochten {
		line, err := ParseLineString(t.Route)
		if err != nil {
			return nil, fmt.Errorf("tocht %s: %w", t.Identifier, err)
		}
		idx.routes = append(idx.routes, route{id: t.ID, alternative: t.IsAlternative, line: line})
		if !t.IsAlternative {
			course = append(course, line)
		}
	}
	if len(course) > 0 {
		idx.center, _ = planar.CentroidArea(course)
		idx.hasCtr = true
	}

	for _, w := range ref.Weides {
		polygon, err := ParsePolygon(w.Polygon)
		if err != nil {
			return nil, fmt.Errorf("weide %s: %w", w.Identifier, err)
		}
		idx.weides = append(idx.weides, weide{id: w.ID, polygon: polygon})
	}

	for _, b := range ref.Bases {
		idx.bases = append(idx.bases, orb.Point{b.Longitude, b.Latitude})
	}

	for _, a := range ref.ForbiddenAreas {
		multi, err := ParseMultiPolygon(a.Area)
		if err != nil {
			return nil, fmt.Errorf("forbidden area %d: %w", a.ID, err)
		}
		idx.areas = append(idx.areas, area{id: a.ID, routeAllowed: a.RouteAllowed, multi: multi, bound: multi.Bound()})
	}

	return idx, nil
}

// nearest returns the id with the smallest distance within radius. Ties go to the lowest id.
func nearest(n int, radius float64, at func(i int) (uint, float64)) (uint, bool) {
	var bestID uint
	bestDist := math.Inf(1)
	found := false
	for i := 0; i < n; i++ {
		id, d := at(i)
		if d > radius {
			continue
		}
		if !found || d < bestDist || (d == bestDist && id < bestID) {
			bestID, bestDist, found = id, d, true
		}
	}
	return bestID, found
}

func (m *MemoryIndex) NearestFiche(_ context.Context, p orb.Point, radius float64) (uint, bool, error) {
	id, ok := nearest(len(m.fiches), radius, func(i int) (uint, float64) {
		return m.fiches[i].id, Distance(p, m.fiches[i].point)
	})
	return id, ok, nil
}

func (m *MemoryIndex) NearestTocht(_ context.Context, p orb.Point, radius float64) (uint, bool, error) {
	id, ok := nearest(len(m.routes), radius, func(i int) (uint, float64) {
		return m.routes[i].id, DistanceToLine(p, m.routes[i].line)
	})
	return id, ok, nil
}

func (m *MemoryIndex) NearestWeide(_ context.Context, p orb.Point, radius float64) (uint, bool, error) {
	id, ok := nearest(len(m.weides), radius, func(i int) (uint, float64) {
		return m.weides[i].id, DistanceToPolygon(p, m.weides[i].polygon)
	})
	return id, ok, nil
}

func (m *MemoryIndex) NearBasis(_ context.Context, p orb.Point, radius float64) (bool, error) {
	for _, b := range m.bases {
		if Distance(p, b) <= radius {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryIndex) ForbiddenAreasAt(_ context.Context, p orb.Point) ([]ForbiddenArea, error) {
	var hits []ForbiddenArea
	for _, a := range m.areas {
		if !a.bound.Contains(p) {
			continue
		}
		if planar.MultiPolygonContains(a.multi, p) {
			hits = append(hits, ForbiddenArea{ID: a.id, RouteAllowed: a.routeAllowed})
		}
	}
	return hits, nil
}

func (m *MemoryIndex) CourseCenter(context.Context) (orb.Point, bool, error) {
	return m.center, m.hasCtr, nil
}
