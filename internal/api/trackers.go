package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"linker/internal/common"
	"linker/internal/ingest"
	"linker/internal/models/dtos"
	"linker/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	errInvalidID = errors.New("id must be a positive integer")
	validate     = validator.New()
)

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// ListTrackers handles GET /api/v1/trackers
func (h *Handlers) ListTrackers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		trackers, err := h.deps.Services.Trackers.List(r.Context())
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to list trackers")
			return
		}

		common.RespondSuccess(w, initTime, "Trackers fetched successfully", trackers)
	}
}

// GetTrack handles GET /api/v1/trackers/{id}/track and returns a GeoJSON LineString.
func (h *Handlers) GetTrack() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id, err := pathID(r)
		if err != nil {
			common.RespondError(w, initTime, err, "Invalid tracker id", http.StatusBadRequest)
			return
		}

		track, err := h.deps.Services.Trackers.Track(r.Context(), id)
		if err != nil {
			if errors.Is(err, services.ErrTrackerNotFound) {
				common.RespondError(w, initTime, err, "Tracker not found", http.StatusNotFound)
				return
			}
			common.RespondError(w, initTime, err, "Failed to build track")
			return
		}

		common.RespondSuccess(w, initTime, "Track fetched successfully", json.RawMessage(track))
	}
}

// AddManualLog handles POST /api/v1/trackers/{id}/logs
func (h *Handlers) AddManualLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id, err := pathID(r)
		if err != nil {
			common.RespondError(w, initTime, err, "Invalid tracker id", http.StatusBadRequest)
			return
		}

		var req dtos.ManualLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, nil, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		gpsTime := initTime
		if req.GpsDatetime != nil {
			gpsTime = *req.GpsDatetime
		}

		fix, err := h.deps.Services.Manual.AddManual(r.Context(), id, gpsTime, req.Longitude, req.Latitude)
		switch {
		case errors.Is(err, ingest.ErrTrackerNotFound):
			common.RespondError(w, initTime, err, "Tracker not found", http.StatusNotFound)
			return
		case errors.Is(err, ingest.ErrDuplicateFix):
			common.RespondError(w, initTime, err, "Fix already exists", http.StatusConflict)
			return
		case err != nil:
			common.RespondError(w, initTime, err, "Failed to store fix")
			return
		}

		resp := dtos.TrackerLogResponse{
			ID:          fix.ID,
			GpsDatetime: fix.GpsDatetime,
			Longitude:   fix.Longitude,
			Latitude:    fix.Latitude,
			TrackerType: fix.TrackerType,
			Source:      fix.Source.String(),
		}
		common.RespondSuccess(w, initTime, "Fix stored", resp, http.StatusCreated)
	}
}
