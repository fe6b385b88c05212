package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"linker/internal/db/repositories"
	"linker/internal/logging"
	"linker/internal/models/gorm"
)

// Coupler links trackers to teams and staff members by the code the vendor
// reports on each fix: "R12" or "B12" is team 12, a bare "12" is team 12 when
// that team has no tracker yet, and any other code may match a member code.
// Codes starting with "RK" belong to the Red Cross and never match a team.
type Coupler struct {
	trackers *repositories.TrackerRepo
	teams    *repositories.TeamRepo
}

func NewCoupler(trackers *repositories.TrackerRepo, teams *repositories.TeamRepo) *Coupler {
	return &Coupler{trackers: trackers, teams: teams}
}

// CoupleResult counts the links made by one run.
type CoupleResult struct {
	Teams   int
	Members int
}

// teamNumber parses a direction-prefixed code such as "R12".
func teamNumber(code string) (int, bool) {
	if len(code) < 2 || strings.HasPrefix(code, "RK") {
		return 0, false
	}
	if code[0] != 'R' && code[0] != 'B' {
		return 0, false
	}
	n, err := strconv.Atoi(code[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *Coupler) CoupleAll(ctx context.Context) (CoupleResult, error) {
	var res CoupleResult

	trackers, err := c.trackers.List(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list trackers: %w", err)
	}

	coupled, err := c.teams.TeamsByTracker(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list teams: %w", err)
	}

	couple := func(tr gorm.Tracker, number int, onlyFree bool) error {
		team, err := c.teams.FindByNumber(ctx, number)
		if err != nil {
			return err
		}
		if team == nil {
			logging.Warn("[Coupler] No team for tracker code", "tracker", tr.String(), "team_number", number)
			return nil
		}
		if onlyFree && team.TrackerID != nil {
			return nil
		}
		if err := c.teams.SetTeamTracker(ctx, team.ID, tr.ID); err != nil {
			return fmt.Errorf("failed to couple tracker %s: %w", tr.String(), err)
		}
		coupled[tr.ID] = *team
		res.Teams++
		return nil
	}

	// Direction-prefixed codes first, so they win over bare numbers.
	for _, tr := range trackers {
		if _, ok := coupled[tr.ID]; ok || tr.LastLog == nil {
			continue
		}
		if n, ok := teamNumber(tr.LastLog.Code); ok {
			if err := couple(tr, n, false); err != nil {
				return res, err
			}
		}
	}

	for _, tr := range trackers {
		if _, ok := coupled[tr.ID]; ok || tr.LastLog == nil {
			continue
		}
		n, err := strconv.Atoi(tr.LastLog.Code)
		if err != nil {
			continue
		}
		if err := couple(tr, n, true); err != nil {
			return res, err
		}
	}

	for _, tr := range trackers {
		if tr.LastLog == nil || tr.LastLog.Code == "" {
			continue
		}
		member, err := c.teams.FindMemberByCode(ctx, tr.LastLog.Code)
		if err != nil {
			return res, err
		}
		if member == nil {
			continue
		}
		if err := c.teams.SetMemberTracker(ctx, member.ID, tr.ID); err != nil {
			return res, fmt.Errorf("failed to couple tracker %s to %s: %w", tr.String(), member.Name, err)
		}
		res.Members++
	}

	logging.Info("[Coupler] Coupled trackers", "teams", res.Teams, "members", res.Members)
	return res, nil
}
