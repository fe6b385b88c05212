package config

import "time"

// Tracking holds the tunable constants of the tracer, notification rules and
// stats engine. Distances are meters unless the name says otherwise.
type Tracking struct {
	FicheRadius      float64 `yaml:"fiche_radius" validate:"gt=0"`
	TochtRadius      float64 `yaml:"tocht_radius" validate:"gt=0"`
	WeideRadius      float64 `yaml:"weide_radius" validate:"gt=0"`
	BasisRadius      float64 `yaml:"basis_radius" validate:"gt=0"`
	GebiedMaxDistKM  float64 `yaml:"gebied_max_distance_km" validate:"gt=0"`
	MergeGraceSecond int     `yaml:"merge_grace_seconds" validate:"gte=0"`

	OfflineMinutes         int     `yaml:"offline_minutes" validate:"gt=0"`
	BatteryLowMinutes      int     `yaml:"battery_low_minutes" validate:"gt=0"`
	SOSTypes               []int   `yaml:"sos_types" validate:"dive,gt=0"`
	LowBatteryTypes        []int   `yaml:"low_battery_types" validate:"dive,gt=0"`
	NotMovingMinutes       int     `yaml:"not_moving_minutes" validate:"gte=5"`
	NotMovingRadius        float64 `yaml:"not_moving_radius" validate:"gt=0"`
	ForbiddenOffRouteRange float64 `yaml:"forbidden_area_off_route_radius" validate:"gt=0"`

	VoltageMin float64 `yaml:"voltage_min" validate:"gt=0"`
	VoltageMax float64 `yaml:"voltage_max" validate:"gtfield=VoltageMin"`

	StatsCacheSeconds int `yaml:"stats_cache_seconds" validate:"gt=0"`
	TracerConcurrency int `yaml:"tracer_concurrency" validate:"gt=0"`
}

// DefaultTracking returns the values used during the event.
func DefaultTracking() Tracking {
	return Tracking{
		FicheRadius:      100,
		TochtRadius:      60,
		WeideRadius:      100,
		BasisRadius:      100,
		GebiedMaxDistKM:  50,
		MergeGraceSecond: 300,

		OfflineMinutes:         12,
		BatteryLowMinutes:      180,
		SOSTypes:               []int{17006},
		LowBatteryTypes:        []int{1000, 1001, 1002},
		NotMovingMinutes:       30,
		NotMovingRadius:        50,
		ForbiddenOffRouteRange: 60,

		VoltageMin: 3.4,
		VoltageMax: 4.2,

		StatsCacheSeconds: 30,
		TracerConcurrency: 4,
	}
}

func (t Tracking) MergeGrace() time.Duration {
	return time.Duration(t.MergeGraceSecond) * time.Second
}

func (t Tracking) OfflineAfter() time.Duration {
	return time.Duration(t.OfflineMinutes) * time.Minute
}

func (t Tracking) BatteryLowWindow() time.Duration {
	return time.Duration(t.BatteryLowMinutes) * time.Minute
}

func (t Tracking) NotMovingWindow() time.Duration {
	return time.Duration(t.NotMovingMinutes) * time.Minute
}

func (t Tracking) StatsCacheTTL() time.Duration {
	return time.Duration(t.StatsCacheSeconds) * time.Second
}
