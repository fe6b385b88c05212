package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"linker/internal/common"

	"github.com/goccy/go-json"
)

var errInvalidTeam = errors.New("team must be a positive integer")

// GetStats handles GET /api/v1/stats
func (h *Handlers) GetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		report, err := h.deps.Services.Stats.Report(r.Context())
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to compute stats")
			return
		}

		common.RespondSuccess(w, initTime, "Stats fetched successfully", json.RawMessage(report))
	}
}

// ListCheckpointLogs handles GET /api/v1/checkpointlogs[?team=ID]
func (h *Handlers) ListCheckpointLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var teamID *uint
		if raw := r.URL.Query().Get("team"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				common.RespondError(w, initTime, errInvalidTeam, "Invalid team", http.StatusBadRequest)
				return
			}
			v := uint(id)
			teamID = &v
		}

		logs, err := h.deps.Services.CheckpointLogs.List(r.Context(), teamID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to list checkpoint logs")
			return
		}

		common.RespondSuccess(w, initTime, "Checkpoint logs fetched successfully", logs)
	}
}
