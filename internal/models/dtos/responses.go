package dtos

import "time"

type APIResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ResponseTime string `json:"response_time"`
	Data         any    `json:"data,omitempty"`
}

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceStatus `json:"services"`
	UpSince  time.Time                `json:"up_since"`
	Uptime   string                   `json:"uptime"`
}

// ---- CHECKPOINT LOGS ----
type CheckpointLogResponse struct {
	ID      uint       `json:"id"`
	TeamID  uint       `json:"team"`
	FicheID uint       `json:"fiche"`
	Fiche   string     `json:"fiche_label,omitempty"`
	Arrived time.Time  `json:"arrived"`
	Left    *time.Time `json:"left"`
}

// ---- NOTIFICATIONS ----
type NotificationResponse struct {
	ID               uint      `json:"id"`
	NotificationType string    `json:"notification_type"`
	TrackerID        uint      `json:"tracker"`
	TrackerName      string    `json:"tracker_name"`
	Severity         int       `json:"severity"`
	Sent             time.Time `json:"sent"`
	Read             bool      `json:"read"`
}

// ---- TRACKERS ----
type TrackerLogResponse struct {
	ID          uint      `json:"id"`
	GpsDatetime time.Time `json:"gps_datetime"`
	Longitude   float64   `json:"longitude"`
	Latitude    float64   `json:"latitude"`
	TrackerType int       `json:"tracker_type"`
	Source      string    `json:"source"`
}

// TrackerStatusResponse is the live state of one tracker as shown on the map.
type TrackerStatusResponse struct {
	ID                uint                `json:"id"`
	TrackerID         string              `json:"tracker_id"`
	Name              string              `json:"name"`
	TeamID            *uint               `json:"team"`
	MemberID          *uint               `json:"member"`
	LastLog           *TrackerLogResponse `json:"last_log"`
	FicheID           *uint               `json:"fiche"`
	TochtID           *uint               `json:"tocht"`
	WeideID           *uint               `json:"weide"`
	Basis             bool                `json:"basis"`
	ForbiddenAreaID   *uint               `json:"forbidden_area"`
	IsOnline          bool                `json:"is_online"`
	BatteryLow        bool                `json:"battery_low"`
	SOSSent           *time.Time          `json:"sos_sent"`
	BatteryPercentage *int                `json:"battery_percentage"`
}

// ---- JOBS ----
type JobTriggerResponse struct {
	Job      string `json:"job"`
	Duration string `json:"duration"`
}
