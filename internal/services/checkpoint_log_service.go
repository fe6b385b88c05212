package services

import (
	"context"
	"fmt"

	"linker/internal/db/repositories"
	"linker/internal/models/dtos"
	"linker/internal/models/gorm"
)

type CheckpointLogService struct {
	logs      *repositories.CheckpointLogRepo
	reference *repositories.ReferenceRepo
}

func NewCheckpointLogService(logs *repositories.CheckpointLogRepo, reference *repositories.ReferenceRepo) *CheckpointLogService {
	return &CheckpointLogService{logs: logs, reference: reference}
}

// List returns the checkpoint intervals of one team, or of all teams when teamID is nil.
func (s *CheckpointLogService) List(ctx context.Context, teamID *uint) ([]dtos.CheckpointLogResponse, error) {
	var (
		logs []gorm.CheckpointLog
		err  error
	)
	if teamID != nil {
		logs, err = s.logs.ListByTeam(ctx, *teamID)
	} else {
		logs, err = s.logs.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoint logs: %w", err)
	}

	fiches, err := s.reference.FichesByID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fiches: %w", err)
	}

	out := make([]dtos.CheckpointLogResponse, 0, len(logs))
	for _, l := range logs {
		resp := dtos.CheckpointLogResponse{
			ID:      l.ID,
			TeamID:  l.TeamID,
			FicheID: l.FicheID,
			Arrived: l.Arrived,
			Left:    l.Left,
		}
		if f, ok := fiches[l.FicheID]; ok {
			resp.Fiche = f.Label()
		}
		out = append(out, resp)
	}
	return out, nil
}
