package stats

import (
	"math"

	"linker/internal/constants"
	"linker/internal/models/gorm"
)

// Bucket is the cohort average for one fiche or tocht in one direction.
// Average is nil when no team contributed a duration.
type Bucket struct {
	Average *int64 `json:"average"`
	NbTeams int    `json:"nb_teams"`
}

// TeamStats holds one team's leg durations in seconds and its signed
// deviations from the cohort (negative is faster than average).
type TeamStats struct {
	Fiches                   map[uint]float64 `json:"fiches"`
	FullTochten              map[uint]float64 `json:"fullTochten"`
	PartialTochten           map[uint]float64 `json:"partialTochten"`
	AvgFicheDeviation        *int64           `json:"avgFicheDeviation"`
	AvgFullTochtDeviation    *int64           `json:"avgFullTochtDeviation"`
	AvgPartialTochtDeviation *int64           `json:"avgPartialTochtDeviation"`
}

type Buckets map[uint]map[constants.Direction]Bucket

// Report is the full stats output.
type Report struct {
	Fiches         Buckets            `json:"fiches"`
	FullTochten    Buckets            `json:"fullTochten"`
	PartialTochten Buckets            `json:"partialTochten"`
	Teams          map[uint]TeamStats `json:"teams"`
}

// TeamLogs is the checkpoint history of one team, ordered by arrival.
type TeamLogs struct {
	TeamID    uint
	Direction constants.Direction
	Logs      []gorm.CheckpointLog
}

// Calculate is a pure function of the sequence and the teams' histories.
func Calculate(seq *Sequence, teams []TeamLogs) *Report {
	type teamDurations struct {
		direction      constants.Direction
		fiches         map[uint]float64
		fullTochten    map[uint]float64
		partialTochten map[uint]float64
	}

	perTeam := make(map[uint]*teamDurations, len(teams))
	for _, team := range teams {
		perTeam[team.TeamID] = &teamDurations{
			direction:      team.Direction,
			fiches:         walk(seq.fiche, team),
			fullTochten:    walk(seq.full, team),
			partialTochten: walk(seq.partial, team),
		}
	}

	collect := func(keys []uint, pick func(*teamDurations) map[uint]float64) Buckets {
		samples := make(map[uint]map[constants.Direction][]float64, len(keys))
		for _, k := range keys {
			samples[k] = map[constants.Direction][]float64{}
		}
		for _, td := range perTeam {
			for k, d := range pick(td) {
				if samples[k] == nil {
					samples[k] = map[constants.Direction][]float64{}
				}
				samples[k][td.direction] = append(samples[k][td.direction], d)
			}
		}
		return aggregate(samples)
	}

	report := &Report{
		Fiches:         collect(seq.ficheIDs, func(td *teamDurations) map[uint]float64 { return td.fiches }),
		FullTochten:    collect(seq.tochtIDs, func(td *teamDurations) map[uint]float64 { return td.fullTochten }),
		PartialTochten: collect(seq.tochtIDs, func(td *teamDurations) map[uint]float64 { return td.partialTochten }),
		Teams:          make(map[uint]TeamStats, len(perTeam)),
	}

	for id, td := range perTeam {
		report.Teams[id] = TeamStats{
			Fiches:                   td.fiches,
			FullTochten:              td.fullTochten,
			PartialTochten:           td.partialTochten,
			AvgFicheDeviation:        deviation(td.fiches, report.Fiches, td.direction),
			AvgFullTochtDeviation:    deviation(td.fullTochten, report.FullTochten, td.direction),
			AvgPartialTochtDeviation: deviation(td.partialTochten, report.PartialTochten, td.direction),
		}
	}

	return report
}

// walk measures, for each fiche the team visited, the time from leaving it
// to arriving at the expected next fiche of tbl. Each fiche counts once, at
// its first visit; a revisit does not start a second leg.
func walk(tbl table, team TeamLogs) map[uint]float64 {
	legs := tbl[team.Direction]
	durations := make(map[uint]float64)
	done := make(map[uint]bool)

	for i, current := range team.Logs {
		if done[current.FicheID] {
			continue
		}
		done[current.FicheID] = true

		l, ok := legs[current.FicheID]
		if !ok || current.Left == nil {
			continue
		}
		for _, next := range team.Logs[i+1:] {
			if next.FicheID == l.target {
				durations[l.key] = next.Arrived.Sub(*current.Left).Seconds()
				break
			}
		}
	}
	return durations
}

func aggregate(samples map[uint]map[constants.Direction][]float64) Buckets {
	out := make(Buckets, len(samples))
	for key, byDirection := range samples {
		out[key] = make(map[constants.Direction]Bucket, len(constants.Directions))
		for _, d := range constants.Directions {
			durations := byDirection[d]
			out[key][d] = Bucket{Average: mean(durations), NbTeams: len(durations)}
		}
	}
	return out
}

// deviation is the rounded mean of (team duration - cohort average) over the
// buckets the team contributed to, or nil when it contributed none.
func deviation(durations map[uint]float64, buckets Buckets, direction constants.Direction) *int64 {
	if len(durations) == 0 {
		return nil
	}
	diffs := make([]float64, 0, len(durations))
	for key, d := range durations {
		avg := buckets[key][direction].Average
		if avg == nil {
			continue
		}
		diffs = append(diffs, d-float64(*avg))
	}
	return mean(diffs)
}

func mean(values []float64) *int64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	rounded := int64(math.RoundToEven(sum / float64(len(values))))
	return &rounded
}
