package events

import (
	"context"

	"labslot/pkg/kafka"
)

// Publisher is the narrow producer surface services depend on. Satisfied by
// *kafka.Producer; nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// PublishCatalogChanged emits one catalog change event keyed by resource id.
// A nil publisher is a no-op so deployments without a broker keep working.
func PublishCatalogChanged(ctx context.Context, pub Publisher, eventType string, payload CatalogChanged) error {
	if pub == nil {
		return nil
	}

	msg := kafka.NewMessage().
		WithKey(payload.ResourceID).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("catalog").
		Build()

	return pub.Publish(ctx, msg)
}

// PublishReservationChanged emits one reservation change event keyed by
// resource id, so all events touching one resource stay ordered.
func PublishReservationChanged(ctx context.Context, pub Publisher, eventType string, payload ReservationChanged) error {
	if pub == nil {
		return nil
	}

	msg := kafka.NewMessage().
		WithKey(payload.ResourceID).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("reservations").
		Build()

	return pub.Publish(ctx, msg)
}
