package constants

// TrackerLogSource tells where a fix came from.
type TrackerLogSource string

const (
	SourceMinisiteAPI    TrackerLogSource = "minisite_api"
	SourceGeodynamicsAPI TrackerLogSource = "geodynamics_api"
	SourceManual         TrackerLogSource = "manual"
)

func (s TrackerLogSource) String() string { return string(s) }

// NotificationType identifies the rule that raised a notification.
type NotificationType string

const (
	NotificationOffline         NotificationType = "tracker_offline"
	NotificationSOS             NotificationType = "sos"
	NotificationBatteryLow      NotificationType = "battery_low"
	NotificationFarFromRoute    NotificationType = "far_from_tocht"
	NotificationNotMoving       NotificationType = "tracker_not_moving"
	NotificationInForbiddenArea NotificationType = "in_forbidden_area"
)

func (t NotificationType) String() string { return string(t) }

// MemberType is the staff role of an organization member.
type MemberType string

const (
	MemberAgenda       MemberType = "Agenda"
	MemberCoordinatie  MemberType = "Coordinatie"
	MemberRodeKruis    MemberType = "Rode Kruis"
	MemberHandigeHarry MemberType = "Handige Harry"
	MemberWeide        MemberType = "Weide"
)

// Switch names. A missing switch row counts as inactive unless stated otherwise.
const (
	SwitchSimulate              = "simulate"
	SwitchFetchTrackersMinisite = "fetch_trackers_minisite"
	SwitchFetchTrackersAPI      = "fetch_trackers_api"
	SwitchTraceTeams            = "trace_teams"
	SwitchExcludeBasisFromTrack = "exclude_basis_from_track"
)

// Setting keys.
const (
	SettingSimulationStart = "simulation_start"
)
