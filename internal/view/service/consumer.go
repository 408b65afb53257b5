package service

import (
	"context"

	"labslot/pkg/kafka"
	"labslot/pkg/logger"
)

// CatalogChangeHandler returns the message handler wired to the catalog
// change topic. Every event triggers a full reconcile; the payload only
// tells us that the catalog moved, not where to.
func CatalogChangeHandler(view ViewService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		log.Debug("Catalog change received",
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"key", msg.Key,
		)

		if err := view.ReconcileAll(ctx); err != nil {
			log.Error("Failed to reconcile facet state",
				"event_id", msg.GetEventID(),
				"error", err,
			)
			return err
		}
		return nil
	}
}
