package api

import (
	"errors"
	"net/http"
	"time"

	"linker/internal/common"
	"linker/internal/models/dtos"

	"github.com/goccy/go-json"
)

// HeaderUserID identifies the reader of notifications. There is no
// authentication; the front end sends the name the user picked.
const HeaderUserID = "X-User-Id"

var (
	errMissingUser          = errors.New("user is required")
	errNotificationNotFound = errors.New("notification not found")
)

// ListNotifications handles GET /api/v1/notifications
func (h *Handlers) ListNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			userID = r.URL.Query().Get("user")
		}
		if userID == "" {
			common.RespondError(w, initTime, errMissingUser, "Missing user", http.StatusBadRequest)
			return
		}

		notifications, err := h.deps.Services.Notifications.List(r.Context(), userID)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to list notifications")
			return
		}

		common.RespondSuccess(w, initTime, "Notifications fetched successfully", notifications)
	}
}

// MarkNotificationRead handles POST /api/v1/notifications/{id}/read
func (h *Handlers) MarkNotificationRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		id, err := pathID(r)
		if err != nil {
			common.RespondError(w, initTime, err, "Invalid notification id", http.StatusBadRequest)
			return
		}

		var req dtos.MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.RespondError(w, initTime, nil, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			common.RespondError(w, initTime, err, "Invalid request body", http.StatusBadRequest)
			return
		}

		found, err := h.deps.Services.Notifications.MarkRead(r.Context(), req.UserID, id)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to mark notification as read")
			return
		}
		if !found {
			common.RespondError(w, initTime, errNotificationNotFound, "Notification not found", http.StatusNotFound)
			return
		}

		common.RespondSuccess(w, initTime, "Notification marked as read", nil)
	}
}
