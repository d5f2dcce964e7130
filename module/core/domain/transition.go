package domain

import "time"

type TransitionType string

const (
	TransitionEnter TransitionType = "enter"
	TransitionExit  TransitionType = "exit"
)

// GeoLocation is the optional position attached to a transition event.
// Address is the reverse-geocoded street address reported by the device,
// empty when geocoding failed or was skipped.
type GeoLocation struct {
	Lat     float64 `json:"latitude"`
	Lon     float64 `json:"longitude"`
	Address string  `json:"address,omitempty"`
}

// TransitionEvent is one observed boundary crossing, recorded by the
// tracked device. Immutable once created; the dispatcher only reads it.
type TransitionEvent struct {
	EventID    string
	SubjectID  string
	FamilyID   string
	RegionID   string
	RegionName string
	Transition TransitionType
	OccurredAt time.Time
	Location   *GeoLocation
}
