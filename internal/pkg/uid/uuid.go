package uid

import "github.com/google/uuid"

// UUID implements StringID with random (v4) UUIDs.
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate implements StringID.
func (u *UUID) Generate() string {
	return uuid.NewString()
}
