// Package events defines the change topics the catalog and reservation
// services publish and the view layer consumes.
package events

// Topic names. Each topic has a paired dead letter queue.
const (
	TopicCatalogChanged     = "catalog.changed"
	TopicCatalogChangedDLQ  = "catalog.changed.dlq"
	TopicReservationChanged = "reservation.changed"
	TopicReservationDLQ     = "reservation.changed.dlq"
)

// Event types carried in the event-type header.
const (
	EventResourceCreated = "resource.created"
	EventResourceUpdated = "resource.updated"
	EventResourceDeleted = "resource.deleted"

	EventReservationCreated = "reservation.created"
	EventReservationUpdated = "reservation.updated"
	EventReservationDeleted = "reservation.deleted"
)

// CatalogChanged is published whenever a resource is created, updated, or
// deleted. The view layer reconciles facet state from the catalog on receipt,
// so the payload only needs to identify the resource; consumers re-read the
// catalog rather than trusting a possibly stale snapshot.
type CatalogChanged struct {
	ResourceID string `json:"resource_id"`
	Name       string `json:"name,omitempty"`
	Type       string `json:"type,omitempty"`
	Generation string `json:"generation,omitempty"`
}

// ReservationChanged is published on every reservation mutation.
type ReservationChanged struct {
	ReservationID string `json:"reservation_id"`
	ResourceID    string `json:"resource_id"`
	Start         int64  `json:"start,omitempty"`
	End           int64  `json:"end,omitempty"`
}
