package dtos

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ---- GEODYNAMICS FEED ----

// GeodynamicsPayload is one snapshot of the vendor feed: the last known
// location of every tracker on the account.
type GeodynamicsPayload struct {
	Data []GeodynamicsTracker `json:"Data"`
}

type GeodynamicsTracker struct {
	ID           VendorID             `json:"Id"`
	Name         string               `json:"Name"`
	Code         string               `json:"Code"`
	IsOnline     *bool                `json:"IsOnline"`
	HasGps       *bool                `json:"HasGps"`
	HasPower     *bool                `json:"HasPower"`
	LastLocation *GeodynamicsLocation `json:"LastLocation"`
}

type GeodynamicsLocation struct {
	GpsDateTime   string   `json:"GpsDateTime"`
	LocalDateTime string   `json:"LocalDateTime"`
	LastSyncDate  string   `json:"LastSyncDate"`
	Longitude     float64  `json:"Longitude"`
	Latitude      float64  `json:"Latitude"`
	Type          *int     `json:"Type"`
	Heading       *int     `json:"Heading"`
	Speed         *int     `json:"Speed"`
	Satellites    *int     `json:"Satellites"`
	AnalogInput1  *float64 `json:"AnalogInput1"`
	VoltageString string   `json:"VoltageString"`
}

// Voltage parses VoltageString, e.g. "4.05" or "4,05".
func (l GeodynamicsLocation) Voltage() *float64 {
	if l.VoltageString == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(l.VoltageString, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// VendorID is the tracker id of the feed. Older exports send it as a number.
type VendorID string

func (id *VendorID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = VendorID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = VendorID(n.String())
	return nil
}
