package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, familyID string) (*domain.Family, []string, error)
}

func (m *mockResolver) ResolveGuardians(ctx context.Context, familyID string) (*domain.Family, []string, error) {
	return m.resolveFn(ctx, familyID)
}

type mockTokens struct {
	collectFn  func(ctx context.Context, userIDs []string) ([]domain.UserToken, error)
	pruneFn    func(ctx context.Context, invalid []domain.UserToken) (int, error)
	pruneCalls [][]domain.UserToken
}

func (m *mockTokens) CollectTokens(ctx context.Context, userIDs []string) ([]domain.UserToken, error) {
	return m.collectFn(ctx, userIDs)
}

func (m *mockTokens) PruneInvalid(ctx context.Context, invalid []domain.UserToken) (int, error) {
	m.pruneCalls = append(m.pruneCalls, invalid)
	if m.pruneFn != nil {
		return m.pruneFn(ctx, invalid)
	}
	return len(invalid), nil
}

type mockSender struct {
	sendFn func(ctx context.Context, n *domain.Notification, tokens []string) (*domain.DispatchResult, error)
	calls  int
}

func (m *mockSender) SendMulticast(ctx context.Context, n *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
	m.calls++
	return m.sendFn(ctx, n, tokens)
}

type mockReports struct {
	publishFn func(ctx context.Context, report *domain.DeliveryReport) error
	reports   []*domain.DeliveryReport
}

func (m *mockReports) PublishReport(ctx context.Context, report *domain.DeliveryReport) error {
	m.reports = append(m.reports, report)
	if m.publishFn != nil {
		return m.publishFn(ctx, report)
	}
	return nil
}

func happyResolver() *mockResolver {
	return &mockResolver{
		resolveFn: func(_ context.Context, _ string) (*domain.Family, []string, error) {
			return testFamily(), []string{"p1", "p2"}, nil
		},
	}
}

func happyTokens() *mockTokens {
	return &mockTokens{
		collectFn: func(_ context.Context, userIDs []string) ([]domain.UserToken, error) {
			if !reflect.DeepEqual(userIDs, []string{"p1", "p2"}) {
				return nil, errors.New("unexpected user ids")
			}
			// p2 has no registered devices
			return []domain.UserToken{
				{UserID: "p1", Token: "tA"},
				{UserID: "p1", Token: "tB"},
			}, nil
		},
	}
}

func allOKSender() *mockSender {
	return &mockSender{
		sendFn: func(_ context.Context, _ *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
			results := make([]domain.SendResult, len(tokens))
			for i, tok := range tokens {
				results[i] = domain.SendResult{Token: tok, Success: true}
			}
			return &domain.DispatchResult{SuccessCount: len(tokens), Results: results}, nil
		},
	}
}

func TestProcess_Delivered(t *testing.T) {
	var sentNotification *domain.Notification
	var sentTokens []string

	sender := &mockSender{
		sendFn: func(_ context.Context, n *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
			sentNotification = n
			sentTokens = tokens
			results := make([]domain.SendResult, len(tokens))
			for i, tok := range tokens {
				results[i] = domain.SendResult{Token: tok, Success: true}
			}
			return &domain.DispatchResult{SuccessCount: len(tokens), Results: results}, nil
		},
	}
	reports := &mockReports{}

	svc := NewDispatchService(happyResolver(), happyTokens(), sender, reports)
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(sentTokens, []string{"tA", "tB"}) {
		t.Errorf("expected [tA tB], got %v", sentTokens)
	}
	if sentNotification.Title != "Alfie entered School" {
		t.Errorf("unexpected title: %q", sentNotification.Title)
	}
	if sentNotification.Body != "Location: 1 Main St" {
		t.Errorf("unexpected body: %q", sentNotification.Body)
	}

	if outcome.Status != domain.OutcomeDelivered {
		t.Errorf("expected delivered, got %s", outcome.Status)
	}
	if outcome.SuccessCount != 2 || outcome.FailureCount != 0 {
		t.Errorf("unexpected counts: %+v", outcome)
	}

	if len(reports.reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports.reports))
	}
	if reports.reports[0].Status != domain.OutcomeDelivered {
		t.Errorf("unexpected report status: %s", reports.reports[0].Status)
	}
}

func TestProcess_NoGuardians_SkipsDispatch(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(_ context.Context, _ string) (*domain.Family, []string, error) {
			return &domain.Family{FamilyID: "f1"}, nil, nil
		},
	}
	tokens := &mockTokens{
		collectFn: func(_ context.Context, _ []string) ([]domain.UserToken, error) {
			t.Fatal("CollectTokens should not be called")
			return nil, nil
		},
	}
	sender := allOKSender()

	svc := NewDispatchService(resolver, tokens, sender, &mockReports{})
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != domain.OutcomeNoGuardians {
		t.Errorf("expected no_guardians, got %s", outcome.Status)
	}
	if sender.calls != 0 {
		t.Errorf("dispatcher must not be invoked, got %d calls", sender.calls)
	}
}

func TestProcess_NoTokens_SkipsDispatch(t *testing.T) {
	tokens := &mockTokens{
		collectFn: func(_ context.Context, _ []string) ([]domain.UserToken, error) {
			return nil, nil
		},
	}
	sender := allOKSender()

	svc := NewDispatchService(happyResolver(), tokens, sender, &mockReports{})
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != domain.OutcomeNoTokens {
		t.Errorf("expected no_tokens, got %s", outcome.Status)
	}
	if sender.calls != 0 {
		t.Errorf("dispatcher must not be invoked, got %d calls", sender.calls)
	}
}

func TestProcess_FamilyNotFound_CleanNoOp(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(_ context.Context, _ string) (*domain.Family, []string, error) {
			return nil, nil, domain.ErrFamilyNotFound
		},
	}
	sender := allOKSender()

	svc := NewDispatchService(resolver, happyTokens(), sender, &mockReports{})
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("expected clean no-op, got error: %v", err)
	}
	if outcome.Status != domain.OutcomeNoFamily {
		t.Errorf("expected family_not_found, got %s", outcome.Status)
	}
	if sender.calls != 0 {
		t.Errorf("dispatcher must not be invoked, got %d calls", sender.calls)
	}
}

func TestProcess_ResolverTransportError_Propagates(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(_ context.Context, _ string) (*domain.Family, []string, error) {
			return nil, nil, errors.New("store unreachable")
		},
	}

	svc := NewDispatchService(resolver, happyTokens(), allOKSender(), &mockReports{})
	_, err := svc.Process(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestProcess_SenderTransportError_Propagates(t *testing.T) {
	tokens := happyTokens()
	sender := &mockSender{
		sendFn: func(_ context.Context, _ *domain.Notification, _ []string) (*domain.DispatchResult, error) {
			return nil, errors.New("provider unreachable")
		},
	}

	svc := NewDispatchService(happyResolver(), tokens, sender, &mockReports{})
	_, err := svc.Process(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(tokens.pruneCalls) != 0 {
		t.Error("reconciler must not run after a transport failure")
	}
}

func TestProcess_PartialFailure_ReconcilesInvalidOnly(t *testing.T) {
	tokens := happyTokens()
	sender := &mockSender{
		sendFn: func(_ context.Context, _ *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
			return &domain.DispatchResult{
				SuccessCount: 1,
				FailureCount: 1,
				Results: []domain.SendResult{
					{Token: tokens[0], Success: true},
					{Token: tokens[1], Success: false, ErrorCode: "registration-token-not-registered"},
				},
			}, nil
		},
	}

	svc := NewDispatchService(happyResolver(), tokens, sender, &mockReports{})
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}
	if outcome.Status != domain.OutcomeDelivered {
		t.Errorf("expected delivered, got %s", outcome.Status)
	}
	if outcome.PrunedTokens != 1 {
		t.Errorf("expected 1 pruned, got %d", outcome.PrunedTokens)
	}

	if len(tokens.pruneCalls) != 1 {
		t.Fatalf("expected 1 prune call, got %d", len(tokens.pruneCalls))
	}
	want := []domain.UserToken{{UserID: "p1", Token: "tB"}}
	if !reflect.DeepEqual(tokens.pruneCalls[0], want) {
		t.Errorf("expected %v, got %v", want, tokens.pruneCalls[0])
	}
}

func TestProcess_TransientFailure_NotReconciled(t *testing.T) {
	tokens := happyTokens()
	sender := &mockSender{
		sendFn: func(_ context.Context, _ *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
			return &domain.DispatchResult{
				SuccessCount: 1,
				FailureCount: 1,
				Results: []domain.SendResult{
					{Token: tokens[0], Success: true},
					{Token: tokens[1], Success: false, ErrorCode: "internal-error"},
				},
			}, nil
		},
	}

	svc := NewDispatchService(happyResolver(), tokens, sender, &mockReports{})
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens.pruneCalls) != 0 {
		t.Errorf("transient failures must not be pruned, got %v", tokens.pruneCalls)
	}
	if outcome.PrunedTokens != 0 {
		t.Errorf("expected 0 pruned, got %d", outcome.PrunedTokens)
	}
}

func TestProcess_ReconcilerError_NotFatal(t *testing.T) {
	tokens := happyTokens()
	tokens.pruneFn = func(_ context.Context, _ []domain.UserToken) (int, error) {
		return 0, errors.New("write failed")
	}
	sender := &mockSender{
		sendFn: func(_ context.Context, _ *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
			return &domain.DispatchResult{
				FailureCount: 2,
				Results: []domain.SendResult{
					{Token: tokens[0], Success: false, ErrorCode: "registration-token-not-registered"},
					{Token: tokens[1], Success: false, ErrorCode: "registration-token-not-registered"},
				},
			}, nil
		},
	}

	svc := NewDispatchService(happyResolver(), tokens, sender, &mockReports{})
	outcome, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("reconciler failure must not fail the run: %v", err)
	}
	if outcome.Status != domain.OutcomeDelivered {
		t.Errorf("expected delivered, got %s", outcome.Status)
	}
}

func TestProcess_ReportPublishError_NotFatal(t *testing.T) {
	reports := &mockReports{
		publishFn: func(_ context.Context, _ *domain.DeliveryReport) error {
			return errors.New("rabbitmq down")
		},
	}

	svc := NewDispatchService(happyResolver(), happyTokens(), allOKSender(), reports)
	_, err := svc.Process(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("report publish failure must not fail the run: %v", err)
	}
}

func TestProcess_DuplicateEvent_Safe(t *testing.T) {
	tokens := happyTokens()
	sender := allOKSender()

	svc := NewDispatchService(happyResolver(), tokens, sender, &mockReports{})
	ev := sampleEvent()

	for i := 0; i < 2; i++ {
		outcome, err := svc.Process(context.Background(), ev)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if outcome.Status != domain.OutcomeDelivered {
			t.Errorf("run %d: expected delivered, got %s", i, outcome.Status)
		}
	}
	// at-least-once delivery means the duplicate notification goes out;
	// the store is untouched either way
	if sender.calls != 2 {
		t.Errorf("expected 2 dispatch calls, got %d", sender.calls)
	}
	if len(tokens.pruneCalls) != 0 {
		t.Errorf("expected no prunes, got %d", len(tokens.pruneCalls))
	}
}
