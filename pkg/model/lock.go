package model

import "time"

// SlotLock is an advisory lock row claiming a (resource, start) slot while a
// reservation write is in flight. A unique _id plus a TTL index on expires_at
// make acquisition atomic and self-cleaning.
type SlotLock struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
