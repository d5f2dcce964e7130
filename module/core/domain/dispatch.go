package domain

// Notification is the composed push payload: a human-readable title/body
// plus a flat string data map for client-side deep linking. The push
// provider only accepts string values in data, so the location is carried
// as a JSON-encoded string.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Error codes the push provider reports for tokens that will never work
// again. Anything else is treated as transient and left alone.
var permanentTokenErrors = map[string]bool{
	"registration-token-not-registered": true,
	"invalid-registration-token":        true,
	"invalid-argument":                  true,
}

// SendResult is the outcome for a single token within a multicast call.
type SendResult struct {
	Token        string
	Success      bool
	ErrorCode    string
	ErrorMessage string
}

// PermanentFailure reports whether the token is dead and should be
// removed from its owner's token set.
func (r SendResult) PermanentFailure() bool {
	return !r.Success && permanentTokenErrors[r.ErrorCode]
}

// DispatchResult is the per-token outcome of one multicast call,
// positionally aligned with the submitted token list.
type DispatchResult struct {
	SuccessCount int
	FailureCount int
	Results      []SendResult
}

// Pipeline outcome statuses.
const (
	OutcomeDelivered   = "delivered"
	OutcomeNoFamily    = "family_not_found"
	OutcomeNoGuardians = "no_guardians"
	OutcomeNoTokens    = "no_tokens"
)

// DispatchOutcome summarizes one pipeline run.
type DispatchOutcome struct {
	Status       string `json:"status"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	PrunedTokens int    `json:"pruned_tokens"`
}

// DeliveryReport is published after each processed event for ops and
// audit consumers.
type DeliveryReport struct {
	EventID      string         `json:"event_id"`
	FamilyID     string         `json:"family_id"`
	SubjectID    string         `json:"subject_id"`
	RegionName   string         `json:"region_name"`
	Transition   TransitionType `json:"transition"`
	Status       string         `json:"status"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	PrunedTokens int            `json:"pruned_tokens"`
	OccurredAt   int64          `json:"occurred_at"`
}
