package api

import (
	"errors"
	"net/http"
	"time"

	"linker/internal/common"
	"linker/internal/constants"
	"linker/internal/lock"
	"linker/internal/logging"
	"linker/internal/models/dtos"
)

var (
	errIngestRunning         = errors.New("an ingest cycle is already running")
	errSimulationUnavailable = errors.New("simulation is not configured")
)

// resetLockTTL bounds how long a simulation reset may keep ingest paused.
const resetLockTTL = time.Minute

// TriggerIngest handles POST /api/v1/admin/jobs/ingest
func (h *Handlers) TriggerIngest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		logging.Info("[JobsHandler] Ingest manually triggered")

		err := h.deps.Services.Ingest.Run(r.Context())
		if errors.Is(err, lock.ErrLockHeld) {
			common.RespondError(w, initTime, errIngestRunning, "Ingest already running", http.StatusConflict)
			return
		}
		if err != nil {
			common.RespondError(w, initTime, err, "Ingest failed")
			return
		}

		common.RespondSuccess(w, initTime, "Ingest completed", dtos.JobTriggerResponse{
			Job:      "ingest",
			Duration: common.GetResponseTime(initTime),
		})
	}
}

// ResetSimulation handles POST /api/v1/admin/simulation/reset. It holds the
// ingest lock so no cycle imports dumps while rows are being removed.
func (h *Handlers) ResetSimulation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if h.deps.Services.Simulation == nil {
			common.RespondError(w, initTime, errSimulationUnavailable, "Simulation unavailable", http.StatusNotFound)
			return
		}

		l, err := h.deps.Locker.TryAcquire(r.Context(), constants.LockIngest, resetLockTTL)
		if errors.Is(err, lock.ErrLockHeld) {
			common.RespondError(w, initTime, errIngestRunning, "Ingest running, try again", http.StatusConflict)
			return
		}
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to acquire ingest lock")
			return
		}
		defer func() { _ = l.Release(r.Context()) }()

		if err := h.deps.Services.Simulation.Reset(r.Context()); err != nil {
			common.RespondError(w, initTime, err, "Simulation reset failed")
			return
		}

		logging.Info("[JobsHandler] Simulation reset")
		common.RespondSuccess(w, initTime, "Simulation reset", nil)
	}
}
