package push

import (
	"context"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

// Sender delivers one notification to many tokens in a single batched
// provider call. An error means the call itself failed (transport level);
// per-token failures are reported inside the DispatchResult.
type Sender interface {
	SendMulticast(ctx context.Context, n *domain.Notification, tokens []string) (*domain.DispatchResult, error)
}
