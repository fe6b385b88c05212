package repositories

import (
	"context"
	"fmt"

	"linker/internal/geo"
	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ReferenceRepo reads the static course geometry. Nothing in the tracker writes it.
type ReferenceRepo struct {
	db *gormlib.DB
}

func NewReferenceRepo(db *gormlib.DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

// Load returns every reference feature for building a spatial index.
func (r *ReferenceRepo) Load(ctx context.Context) (*geo.Reference, error) {
	ref := &geo.Reference{}
	db := r.db.WithContext(ctx)

	if err := db.Order("id").Find(&ref.Tochten).Error; err != nil {
		return nil, fmt.Errorf("failed to load tochten: %w", err)
	}
	if err := db.Order("id").Find(&ref.Fiches).Error; err != nil {
		return nil, fmt.Errorf("failed to load fiches: %w", err)
	}
	if err := db.Order("id").Find(&ref.Weides).Error; err != nil {
		return nil, fmt.Errorf("failed to load weides: %w", err)
	}
	if err := db.Order("id").Find(&ref.Bases).Error; err != nil {
		return nil, fmt.Errorf("failed to load basis: %w", err)
	}
	if err := db.Order("id").Find(&ref.ForbiddenAreas).Error; err != nil {
		return nil, fmt.Errorf("failed to load forbidden areas: %w", err)
	}
	return ref, nil
}

// SequencedFiches returns the fiches of all non-alternative tochten in
// traversal order: by tocht position, then fiche position. Tocht is preloaded.
func (r *ReferenceRepo) SequencedFiches(ctx context.Context) ([]gorm.Fiche, error) {
	var fiches []gorm.Fiche

	err := r.db.WithContext(ctx).
		Joins("JOIN map_tocht ON map_tocht.id = map_fiche.tocht_id").
		Where("map_tocht.is_alternative = ?", false).
		Order("map_tocht.position, map_fiche.position").
		Preload("Tocht").
		Find(&fiches).Error
	if err != nil {
		return nil, err
	}
	return fiches, nil
}

// FichesByID returns every fiche with its tocht, keyed by id.
func (r *ReferenceRepo) FichesByID(ctx context.Context) (map[uint]gorm.Fiche, error) {
	var fiches []gorm.Fiche
	if err := r.db.WithContext(ctx).Preload("Tocht").Find(&fiches).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]gorm.Fiche, len(fiches))
	for _, f := range fiches {
		byID[f.ID] = f
	}
	return byID, nil
}
