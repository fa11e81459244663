package services

import (
	"context"

	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
)

// publishChange forwards ev when a publisher is configured. Delivery
// failures are logged only: the write they describe already happened.
func publishChange(ctx context.Context, publisher gateway.ChangePublisher, logger *applog.Logger, ev gateway.ChangeEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishChange(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish change event",
			applog.FieldCollection, string(ev.Collection),
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
	}
}
