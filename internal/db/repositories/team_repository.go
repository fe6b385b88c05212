package repositories

import (
	"context"
	"time"

	"linker/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// TeamRepo handles teams and the staff members that carry trackers.
type TeamRepo struct {
	db *gormlib.DB
}

func NewTeamRepo(db *gormlib.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// List returns all teams ordered by number.
func (r *TeamRepo) List(ctx context.Context) ([]gorm.Team, error) {
	var teams []gorm.Team
	if err := r.db.WithContext(ctx).Order("number").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// ListTracked returns teams that have a tracker and are not marked safe.
func (r *TeamRepo) ListTracked(ctx context.Context) ([]gorm.Team, error) {
	var teams []gorm.Team
	err := r.db.WithContext(ctx).
		Where("tracker_id IS NOT NULL").
		Where("safe_weide = '' OR safe_weide IS NULL").
		Order("number").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *TeamRepo) FindByID(ctx context.Context, id uint) (*gorm.Team, error) {
	var team gorm.Team
	err := r.db.WithContext(ctx).First(&team, id).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

// FindByNumber returns the team with its coupled tracker, or nil when absent.
func (r *TeamRepo) FindByNumber(ctx context.Context, number int) (*gorm.Team, error) {
	var team gorm.Team
	err := r.db.WithContext(ctx).Preload("Tracker").Where("number = ?", number).First(&team).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

// SetSafeWeide marks a team safe at a meadow, or clears it when weide is empty.
// It reports false when no team has that number.
func (r *TeamRepo) SetSafeWeide(ctx context.Context, number int, weide string, at time.Time) (bool, error) {
	at = at.UTC()
	res := r.db.WithContext(ctx).
		Model(&gorm.Team{}).
		Where("number = ?", number).
		Updates(map[string]interface{}{
			"safe_weide":            weide,
			"safe_weide_updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SafeTrackerIDs returns the trackers carried by teams currently marked safe.
func (r *TeamRepo) SafeTrackerIDs(ctx context.Context) (map[uint]bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&gorm.Team{}).
		Where("tracker_id IS NOT NULL AND safe_weide <> ''").
		Pluck("tracker_id", &ids).Error
	if err != nil {
		return nil, err
	}

	safe := make(map[uint]bool, len(ids))
	for _, id := range ids {
		safe[id] = true
	}
	return safe, nil
}

// TeamsByTracker maps tracker id to team for every team with a tracker.
func (r *TeamRepo) TeamsByTracker(ctx context.Context) (map[uint]gorm.Team, error) {
	var teams []gorm.Team
	if err := r.db.WithContext(ctx).Where("tracker_id IS NOT NULL").Find(&teams).Error; err != nil {
		return nil, err
	}

	byTracker := make(map[uint]gorm.Team, len(teams))
	for _, t := range teams {
		byTracker[*t.TrackerID] = t
	}
	return byTracker, nil
}

// MembersByTracker maps tracker id to staff member.
func (r *TeamRepo) MembersByTracker(ctx context.Context) (map[uint]gorm.OrganizationMember, error) {
	var members []gorm.OrganizationMember
	if err := r.db.WithContext(ctx).Where("tracker_id IS NOT NULL").Find(&members).Error; err != nil {
		return nil, err
	}

	byTracker := make(map[uint]gorm.OrganizationMember, len(members))
	for _, m := range members {
		byTracker[*m.TrackerID] = m
	}
	return byTracker, nil
}

// SetTeamTracker couples a tracker to a team, uncoupling it from any other team first.
func (r *TeamRepo) SetTeamTracker(ctx context.Context, teamID, trackerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		if err := tx.Model(&gorm.Team{}).
			Where("tracker_id = ? AND id <> ?", trackerID, teamID).
			Update("tracker_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&gorm.Team{}).Where("id = ?", teamID).Update("tracker_id", trackerID).Error
	})
}

func (r *TeamRepo) FindMemberByCode(ctx context.Context, code string) (*gorm.OrganizationMember, error) {
	var member gorm.OrganizationMember
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&member).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// SetMemberTracker couples a tracker to a staff member, uncoupling it from any other member first.
func (r *TeamRepo) SetMemberTracker(ctx context.Context, memberID, trackerID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		if err := tx.Model(&gorm.OrganizationMember{}).
			Where("tracker_id = ? AND id <> ?", trackerID, memberID).
			Update("tracker_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&gorm.OrganizationMember{}).Where("id = ?", memberID).Update("tracker_id", trackerID).Error
	})
}
