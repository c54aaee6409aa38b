package pipeline

import "github.com/google/uuid"

// NewID returns a UUIDv7. Ids sort by creation time, and ids made in the
// same process are strictly increasing.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
