package publisher

import (
	"context"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.DeliveryReport) error
}
