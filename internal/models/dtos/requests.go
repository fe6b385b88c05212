package dtos

import "time"

// ManualLogRequest places a tracker by hand, e.g. after a phone call.
type ManualLogRequest struct {
	GpsDatetime *time.Time `json:"gps_datetime"`
	Longitude   float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Latitude    float64    `json:"latitude" validate:"gte=-90,lte=90"`
}

type MarkReadRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}
