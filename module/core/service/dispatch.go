package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/chadley78/located-dispatch/logging"
	"github.com/chadley78/located-dispatch/metrics"
	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/publisher"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/push"
)

type recipientResolver interface {
	ResolveGuardians(ctx context.Context, familyID string) (*domain.Family, []string, error)
}

type tokenAccessor interface {
	CollectTokens(ctx context.Context, userIDs []string) ([]domain.UserToken, error)
	PruneInvalid(ctx context.Context, invalid []domain.UserToken) (int, error)
}

// DispatchService runs the full pipeline for one transition event:
// resolve guardians, collect tokens, compose, multicast, reconcile dead
// tokens, publish a delivery report.
//
// Process returns an error only for transport-level failures, which the
// caller is expected to retry through the broker's redelivery. Terminal
// conditions (missing family, empty audience) complete cleanly as no-ops.
type DispatchService struct {
	recipients recipientResolver
	tokens     tokenAccessor
	sender     push.Sender
	reports    publisher.ReportPublisher
	log        zerolog.Logger
}

func NewDispatchService(recipients recipientResolver, tokens tokenAccessor, sender push.Sender, reports publisher.ReportPublisher) *DispatchService {
	return &DispatchService{
		recipients: recipients,
		tokens:     tokens,
		sender:     sender,
		reports:    reports,
		log:        logging.WithComponent("dispatch"),
	}
}

func (s *DispatchService) Process(ctx context.Context, ev *domain.TransitionEvent) (*domain.DispatchOutcome, error) {
	started := time.Now()

	family, guardianIDs, err := s.recipients.ResolveGuardians(ctx, ev.FamilyID)
	if errors.Is(err, domain.ErrFamilyNotFound) {
		// Expected race: the family was deleted after the event was
		// recorded. Terminal, never retried.
		s.log.Warn().
			Str("event_id", ev.EventID).
			Str("family_id", ev.FamilyID).
			Msg("family not found, skipping event")
		return s.finish(ctx, ev, &domain.DispatchOutcome{Status: domain.OutcomeNoFamily}, started), nil
	}
	if err != nil {
		return nil, err
	}

	if len(guardianIDs) == 0 {
		s.log.Info().
			Str("event_id", ev.EventID).
			Str("family_id", ev.FamilyID).
			Msg("family has no guardians, nothing to notify")
		return s.finish(ctx, ev, &domain.DispatchOutcome{Status: domain.OutcomeNoGuardians}, started), nil
	}

	pairs, err := s.tokens.CollectTokens(ctx, guardianIDs)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		s.log.Info().
			Str("event_id", ev.EventID).
			Str("family_id", ev.FamilyID).
			Int("guardians", len(guardianIDs)).
			Msg("no registered push tokens, nothing to notify")
		return s.finish(ctx, ev, &domain.DispatchOutcome{Status: domain.OutcomeNoTokens}, started), nil
	}

	notification := Compose(ev, family.MemberName(ev.SubjectID))

	tokenList := make([]string, len(pairs))
	for i, p := range pairs {
		tokenList[i] = p.Token
	}

	result, err := s.sender.SendMulticast(ctx, notification, tokenList)
	if err != nil {
		return nil, err
	}

	metrics.NotificationsSent.Add(float64(result.SuccessCount))
	metrics.NotificationsFailed.Add(float64(result.FailureCount))

	pruned := s.reconcile(ctx, ev, pairs, result)

	s.log.Info().
		Str("event_id", ev.EventID).
		Str("family_id", ev.FamilyID).
		Int("sent", result.SuccessCount).
		Int("failed", result.FailureCount).
		Int("pruned", pruned).
		Msg("notification dispatched")

	outcome := &domain.DispatchOutcome{
		Status:       domain.OutcomeDelivered,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailureCount,
		PrunedTokens: pruned,
	}
	return s.finish(ctx, ev, outcome, started), nil
}

// reconcile removes tokens the provider flagged as permanently dead.
// Failures here are logged, never fatal: a token removed late only costs
// one extra failed delivery on a later event.
func (s *DispatchService) reconcile(ctx context.Context, ev *domain.TransitionEvent, pairs []domain.UserToken, result *domain.DispatchResult) int {
	var invalid []domain.UserToken
	for i, r := range result.Results {
		if r.PermanentFailure() {
			invalid = append(invalid, pairs[i])
		}
	}
	if len(invalid) == 0 {
		return 0
	}

	pruned, err := s.tokens.PruneInvalid(ctx, invalid)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("event_id", ev.EventID).
			Int("pruned", pruned).
			Int("remaining", len(invalid)-pruned).
			Msg("token reconciliation incomplete")
	}
	metrics.TokensPruned.Add(float64(pruned))
	return pruned
}

func (s *DispatchService) finish(ctx context.Context, ev *domain.TransitionEvent, outcome *domain.DispatchOutcome, started time.Time) *domain.DispatchOutcome {
	if s.reports != nil {
		report := &domain.DeliveryReport{
			EventID:      ev.EventID,
			FamilyID:     ev.FamilyID,
			SubjectID:    ev.SubjectID,
			RegionName:   ev.RegionName,
			Transition:   ev.Transition,
			Status:       outcome.Status,
			SuccessCount: outcome.SuccessCount,
			FailureCount: outcome.FailureCount,
			PrunedTokens: outcome.PrunedTokens,
			OccurredAt:   ev.OccurredAt.Unix(),
		}
		if err := s.reports.PublishReport(ctx, report); err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.EventID).Msg("delivery report publish failed")
		}
	}

	metrics.EventsProcessed.WithLabelValues(outcome.Status).Inc()
	metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	return outcome
}
