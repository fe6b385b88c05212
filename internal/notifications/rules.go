package notifications

import (
	"context"
	"fmt"
	"time"

	"linker/internal/config"
	"linker/internal/constants"
	"linker/internal/db/repositories"
	"linker/internal/geo"
	"linker/internal/models/gorm"

	"github.com/paulmach/orb"
)

const (
	severityNormal = 0
	severityUrgent = 1
)

// subject is a tracker with whoever carries it.
type subject struct {
	tracker gorm.Tracker
	team    *gorm.Team
	member  *gorm.OrganizationMember
}

// onTeam reports whether a team that is not safe carries the tracker.
func (s subject) onTeam() bool {
	return s.team != nil && !s.team.IsSafe()
}

// carried is onTeam, or a staff tracker that no team carries.
func (s subject) carried() bool {
	if s.team != nil {
		return !s.team.IsSafe()
	}
	return s.member != nil
}

func (s subject) lastPoint() (orb.Point, bool) {
	if s.tracker.LastLog == nil {
		return orb.Point{}, false
	}
	return orb.Point{s.tracker.LastLog.Longitude, s.tracker.LastLog.Latitude}, true
}

// source loads the trackers together with their team or staff member.
type source struct {
	trackers *repositories.TrackerRepo
	teams    *repositories.TeamRepo
}

func (src source) load(ctx context.Context) ([]subject, error) {
	trackers, err := src.trackers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}
	teams, err := src.teams.TeamsByTracker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	members, err := src.teams.MembersByTracker(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	subjects := make([]subject, 0, len(trackers))
	for _, tr := range trackers {
		s := subject{tracker: tr}
		if team, ok := teams[tr.ID]; ok {
			s.team = &team
		}
		if member, ok := members[tr.ID]; ok {
			s.member = &member
		}
		subjects = append(subjects, s)
	}
	return subjects, nil
}

// Rules returns the standard rule set.
func Rules(trackers *repositories.TrackerRepo, teams *repositories.TeamRepo, index geo.Index, tracking config.Tracking) []Rule {
	src := source{trackers: trackers, teams: teams}
	return []Rule{
		&OfflineRule{source: src, after: tracking.OfflineAfter()},
		&SOSRule{source: src, types: tracking.SOSTypes},
		&BatteryLowRule{source: src, types: tracking.LowBatteryTypes, window: tracking.BatteryLowWindow()},
		&FarFromRouteRule{source: src, index: index, radius: tracking.TochtRadius},
		&NotMovingRule{source: src, window: tracking.NotMovingWindow(), radius: tracking.NotMovingRadius},
		&ForbiddenAreaRule{source: src, index: index, offRouteRadius: tracking.ForbiddenOffRouteRange},
	}
}

// OfflineRule holds when a team tracker sent no fix within the threshold, or never.
type OfflineRule struct {
	source
	after time.Duration
}

func (r *OfflineRule) Type() constants.NotificationType { return constants.NotificationOffline }

func (r *OfflineRule) Evaluate(ctx context.Context, now time.Time) ([]Match, error) {
	subjects, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	threshold := now.Add(-r.after)
	var matches []Match
	for _, s := range subjects {
		if !s.onTeam() {
			continue
		}
		last := s.tracker.LastLog
		if last == nil || last.GpsDatetime.Before(threshold) {
			matches = append(matches, Match{TrackerID: s.tracker.ID, Severity: severityNormal})
		}
	}
	return matches, nil
}

// SOSRule holds for every team or staff tracker that ever sent an SOS fix.
// A newer SOS than the stored notification raises a fresh one.
type SOSRule struct {
	source
	types []int
}

func (r *SOSRule) Type() constants.NotificationType { return constants.NotificationSOS }

func (r *SOSRule) Evaluate(ctx context.Context, _ time.Time) ([]Match, error) {
	subjects, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, s := range subjects {
		if !s.carried() {
			continue
		}
		sos, err := r.trackers.LatestLogOfTypes(ctx, s.tracker.ID, r.types)
		if err != nil {
			return nil, fmt.Errorf("failed to find SOS of tracker %d: %w", s.tracker.ID, err)
		}
		if sos == nil {
			continue
		}
		since := sos.GpsDatetime
		matches = append(matches, Match{TrackerID: s.tracker.ID, Severity: severityUrgent, Since: &since})
	}
	return matches, nil
}

// BatteryLowRule holds when a team or staff tracker reported a low battery recently.
type BatteryLowRule struct {
	source
	types  []int
	window time.Duration
}

func (r *BatteryLowRule) Type() constants.NotificationType { return constants.NotificationBatteryLow }

func (r *BatteryLowRule) Evaluate(ctx context.Context, now time.Time) ([]Match, error) {
	subjects, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	since := now.Add(-r.window)
	var matches []Match
	for _, s := range subjects {
		if !s.carried() {
			continue
		}
		low, err := r.trackers.HasLogOfTypesSince(ctx, s.tracker.ID, r.types, since)
		if err != nil {
			return nil, fmt.Errorf("failed to check battery of tracker %d: %w", s.tracker.ID, err)
		}
		if low {
			matches = append(matches, Match{TrackerID: s.tracker.ID, Severity: severityNormal})
		}
	}
	return matches, nil
}

// FarFromRouteRule holds when a team's last fix is not near any route line.
type FarFromRouteRule struct {
	source
	index  geo.Index
	radius float64
}

func (r *FarFromRouteRule) Type() constants.NotificationType {
	return constants.NotificationFarFromRoute
}

func (r *FarFromRouteRule) Evaluate(ctx context.Context, _ time.Time) ([]Match, error) {
	subjects, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, s := range subjects {
		if !s.onTeam() {
			continue
		}
		p, ok := s.lastPoint()
		if !ok {
			continue
		}
		_, near, err := r.index.NearestTocht(ctx, p, r.radius)
		if err != nil {
			return nil, err
		}
		if !near {
			matches = append(matches, Match{TrackerID: s.tracker.ID, Severity: severityNormal})
		}
	}
	return matches, nil
}

// NotMovingRule holds when a team tracker reported regularly over the window
// but every fix stayed close to their common centroid.
type NotMovingRule struct {
	source
	window time.Duration
	radius float64
}

func (r *NotMovingRule) Type() constants.NotificationType { return constants.NotificationNotMoving }

func (r *NotMovingRule) Evaluate(ctx context.Context, now time.Time) ([]Match, error) {
	subjects, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	minFixes := int(r.window / time.Minute / 5)
	var matches []Match
	for _, s := range subjects {
		if !s.onTeam() {
			continue
		}
		logs, err := r.trackers.LogsSince(ctx, s.tracker.ID, now.Add(-r.window))
		if err != nil {
			return nil, fmt.Errorf("failed to load fixes of tracker %d: %w", s.tracker.ID, err)
		}
		if len(logs) == 0 || len(logs) < minFixes {
			continue
		}
		if stationary(logs, r.radius) {
			matches = append(matches, Match{TrackerID: s.tracker.ID, Severity: severityNormal})
		}
	}
	return matches, nil
}

func stationary(logs []gorm.TrackerLog, radius float64) bool {
	points := make([]orb.Point, len(logs))
	for i, l := range logs {
		points[i] = orb.Point{l.Longitude, l.Latitude}
	}
	center, ok := geo.Centroid(points)
	if !ok {
		return false
	}
	for _, p := range points {
		if geo.Distance(center, p) > radius {
			return false
		}
	}
	return true
}

// ForbiddenAreaRule holds when a team's last fix is inside a forbidden area.
// Areas that allow the route only count once the fix is also off-route.
type ForbiddenAreaRule struct {
	source
	index          geo.Index
	offRouteRadius float64
}

func (r *ForbiddenAreaRule) Type() constants.NotificationType {
	return constants.NotificationInForbiddenArea
}

func (r *ForbiddenAreaRule) Evaluate(ctx context.Context, _ time.Time) ([]Match, error) {
	subjects, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, s := range subjects {
		if !s.onTeam() {
			continue
		}
		p, ok := s.lastPoint()
		if !ok {
			continue
		}
		in, err := InForbiddenArea(ctx, r.index, p, r.offRouteRadius)
		if err != nil {
			return nil, err
		}
		if in != nil {
			matches = append(matches, Match{TrackerID: s.tracker.ID, Severity: severityUrgent})
		}
	}
	return matches, nil
}

// InForbiddenArea returns the forbidden area p counts as being in, or nil.
func InForbiddenArea(ctx context.Context, index geo.Index, p orb.Point, offRouteRadius float64) (*geo.ForbiddenArea, error) {
	areas, err := index.ForbiddenAreasAt(ctx, p)
	if err != nil {
		return nil, err
	}

	onRouteChecked, onRoute := false, false
	for _, area := range areas {
		if !area.RouteAllowed {
			return &area, nil
		}
		if !onRouteChecked {
			_, onRoute, err = index.NearestTocht(ctx, p, offRouteRadius)
			if err != nil {
				return nil, err
			}
			onRouteChecked = true
		}
		if !onRoute {
			return &area, nil
		}
	}
	return nil, nil
}
