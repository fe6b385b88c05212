// Package stats computes expected and actual leg durations between fiches and
// tochten, and how far each team deviates from the cohort average.
package stats

import (
	"linker/internal/constants"
	"linker/internal/models/gorm"
)

// leg is the fiche a team is expected to reach next and the fiche or tocht
// the measured duration is attributed to.
type leg struct {
	target uint
	key    uint
}

// table maps a starting fiche to the leg that starts there, per direction.
type table map[constants.Direction]map[uint]leg

func newTable() table {
	t := make(table, len(constants.Directions))
	for _, d := range constants.Directions {
		t[d] = make(map[uint]leg)
	}
	return t
}

// Sequence holds the three directional lookup tables, built once from the
// ordered fiche list of all non-alternative tochten.
type Sequence struct {
	fiche   table
	partial table
	full    table

	ficheIDs []uint
	tochtIDs []uint
}

// NewSequence builds the tables. fiches must be in traversal order: by tocht
// position, then fiche position.
func NewSequence(fiches []gorm.Fiche) *Sequence {
	s := &Sequence{fiche: newTable(), partial: newTable(), full: newTable()}
	if len(fiches) == 0 {
		return s
	}

	// RED walks the circular sequence forward, BLUE backward. A RED leg is
	// attributed to its start fiche and a BLUE leg to its end fiche, so both
	// directions report the same physical leg under the same key.
	n := len(fiches)
	for i, f := range fiches {
		s.ficheIDs = append(s.ficheIDs, f.ID)
		next := fiches[(i+1)%n].ID
		if next == f.ID {
			continue
		}
		s.fiche[constants.DirectionRed][f.ID] = leg{target: next, key: f.ID}
		s.fiche[constants.DirectionBlue][next] = leg{target: f.ID, key: f.ID}
	}

	var perTocht [][]uint
	for i, f := range fiches {
		if i == 0 || f.TochtID != fiches[i-1].TochtID {
			s.tochtIDs = append(s.tochtIDs, f.TochtID)
			perTocht = append(perTocht, nil)
		}
		perTocht[len(perTocht)-1] = append(perTocht[len(perTocht)-1], f.ID)
	}

	for k, ids := range perTocht {
		tocht := s.tochtIDs[k]

		// Partial: from the second fiche to the last one of the same tocht.
		// The first fiche is shared with the previous tocht's boundary.
		if len(ids) >= 3 {
			second, last := ids[1], ids[len(ids)-1]
			s.partial[constants.DirectionRed][second] = leg{target: last, key: tocht}
			s.partial[constants.DirectionBlue][last] = leg{target: second, key: tocht}
		}

		// Full: from the first fiche of this tocht to the first of the next.
		nextIDs := perTocht[(k+1)%len(perTocht)]
		if len(perTocht) > 1 {
			first, nextFirst := ids[0], nextIDs[0]
			s.full[constants.DirectionRed][first] = leg{target: nextFirst, key: tocht}
			s.full[constants.DirectionBlue][nextFirst] = leg{target: first, key: tocht}
		}
	}

	return s
}
