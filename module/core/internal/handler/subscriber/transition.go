package subscriber

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/chadley78/located-dispatch/logging"
	"github.com/chadley78/located-dispatch/metrics"
	"github.com/chadley78/located-dispatch/module/core/domain"
)

const topicPattern = "family/+/transitions"

type dispatchService interface {
	Process(ctx context.Context, ev *domain.TransitionEvent) (*domain.DispatchOutcome, error)
}

type transitionMessage struct {
	EventID    string           `json:"event_id"`
	SubjectID  string           `json:"subject_id"`
	FamilyID   string           `json:"family_id"`
	RegionID   string           `json:"region_id"`
	RegionName string           `json:"region_name"`
	Transition string           `json:"transition"`
	Timestamp  int64            `json:"timestamp"`
	Location   *locationPayload `json:"location,omitempty"`
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// TransitionSubscriber consumes transition events from the broker at
// QoS 1 with manual acknowledgement: terminal outcomes (dispatched,
// no-op, malformed) ack the message, transport failures leave it unacked
// so the broker redelivers. Duplicate deliveries are tolerated; the
// pipeline is idempotent apart from the duplicate notification itself.
type TransitionSubscriber struct {
	client   mqtt.Client
	dispatch dispatchService
	log      zerolog.Logger
}

func NewTransitionSubscriber(client mqtt.Client, dispatch dispatchService) *TransitionSubscriber {
	return &TransitionSubscriber{
		client:   client,
		dispatch: dispatch,
		log:      logging.WithComponent("ingest"),
	}
}

func (s *TransitionSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *TransitionSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw transitionMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.log.Error().Err(err).Str("topic", msg.Topic()).Msg("undecodable transition event")
		metrics.EventsProcessed.WithLabelValues("invalid").Inc()
		msg.Ack()
		return
	}

	if err := validateTransitionMessage(&raw); err != nil {
		// malformed data will not become valid on retry
		s.log.Error().
			Err(err).
			Str("event_id", raw.EventID).
			Str("family_id", raw.FamilyID).
			Msg("invalid transition event")
		metrics.EventsProcessed.WithLabelValues("invalid").Inc()
		msg.Ack()
		return
	}

	ev := &domain.TransitionEvent{
		EventID:    raw.EventID,
		SubjectID:  raw.SubjectID,
		FamilyID:   raw.FamilyID,
		RegionID:   raw.RegionID,
		RegionName: raw.RegionName,
		Transition: domain.TransitionType(raw.Transition),
		OccurredAt: time.Unix(raw.Timestamp, 0),
	}
	if raw.Location != nil {
		ev.Location = &domain.GeoLocation{
			Lat:     raw.Location.Latitude,
			Lon:     raw.Location.Longitude,
			Address: raw.Location.Address,
		}
	}

	if _, err := s.dispatch.Process(context.Background(), ev); err != nil {
		s.log.Error().
			Err(err).
			Str("event_id", ev.EventID).
			Msg("pipeline failed, leaving event for redelivery")
		return
	}

	msg.Ack()
}

func validateTransitionMessage(msg *transitionMessage) error {
	if msg.SubjectID == "" {
		return &domain.ValidationError{Field: "subject_id", Reason: "required"}
	}
	if msg.FamilyID == "" {
		return &domain.ValidationError{Field: "family_id", Reason: "required"}
	}
	if msg.Transition != string(domain.TransitionEnter) && msg.Transition != string(domain.TransitionExit) {
		return &domain.ValidationError{Field: "transition", Reason: "must be enter or exit"}
	}
	if msg.Timestamp <= 0 {
		return &domain.ValidationError{Field: "timestamp", Reason: "must be positive"}
	}
	if msg.Location != nil {
		if msg.Location.Latitude < -90 || msg.Location.Latitude > 90 {
			return &domain.ValidationError{Field: "location.latitude", Reason: "must be between -90 and 90"}
		}
		if msg.Location.Longitude < -180 || msg.Location.Longitude > 180 {
			return &domain.ValidationError{Field: "location.longitude", Reason: "must be between -180 and 180"}
		}
	}
	return nil
}
