package service

import (
	"encoding/json"
	"time"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

const (
	fallbackSubjectName = "Your family member"
	fallbackRegionName  = "a safe zone"
	fallbackAddress     = "Unknown location"
)

// Compose builds the push payload for a transition event. Pure: the same
// event and subject name always produce an identical notification.
//
// The provider only accepts flat string values in data, so the location
// is carried as a JSON-encoded string and the timestamp as RFC3339.
func Compose(ev *domain.TransitionEvent, subjectName string) *domain.Notification {
	if subjectName == "" {
		subjectName = fallbackSubjectName
	}
	regionName := ev.RegionName
	if regionName == "" {
		regionName = fallbackRegionName
	}

	verb := "entered"
	if ev.Transition == domain.TransitionExit {
		verb = "left"
	}

	body := "Location: " + fallbackAddress
	if ev.Location != nil && ev.Location.Address != "" {
		body = "Location: " + ev.Location.Address
	}

	data := map[string]string{
		"type":           "geofence_event",
		"subjectId":      ev.SubjectID,
		"subjectName":    subjectName,
		"regionId":       ev.RegionID,
		"regionName":     regionName,
		"transitionType": string(ev.Transition),
		"occurredAt":     ev.OccurredAt.UTC().Format(time.RFC3339),
	}
	if ev.Location != nil {
		if loc, err := json.Marshal(ev.Location); err == nil {
			data["location"] = string(loc)
		}
	}

	return &domain.Notification{
		Title: subjectName + " " + verb + " " + regionName,
		Body:  body,
		Data:  data,
	}
}
