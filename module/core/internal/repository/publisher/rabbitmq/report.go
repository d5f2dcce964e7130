package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/publisher"
)

var _ publisher.ReportPublisher = (*ReportPublisher)(nil)

const (
	exchangeName = "family.events"
	queueName    = "delivery_reports"
)

type ReportPublisher struct {
	ch *amqp.Channel
}

func NewReportPublisher(conn *amqp.Connection) (*ReportPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &ReportPublisher{ch: ch}, nil
}

type reportMessage struct {
	Event        string `json:"event"`
	EventID      string `json:"event_id"`
	FamilyID     string `json:"family_id"`
	SubjectID    string `json:"subject_id"`
	RegionName   string `json:"region_name"`
	Transition   string `json:"transition"`
	Status       string `json:"status"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	PrunedTokens int    `json:"pruned_tokens"`
	OccurredAt   int64  `json:"occurred_at"`
}

func (p *ReportPublisher) PublishReport(ctx context.Context, report *domain.DeliveryReport) error {
	msg := reportMessage{
		Event:        "notification_dispatched",
		EventID:      report.EventID,
		FamilyID:     report.FamilyID,
		SubjectID:    report.SubjectID,
		RegionName:   report.RegionName,
		Transition:   string(report.Transition),
		Status:       report.Status,
		SuccessCount: report.SuccessCount,
		FailureCount: report.FailureCount,
		PrunedTokens: report.PrunedTokens,
		OccurredAt:   report.OccurredAt,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
