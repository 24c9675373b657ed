package id

import "github.com/google/uuid"

// New returns an opaque, collision-free job identifier.
func New() string {
	return uuid.NewString()
}
