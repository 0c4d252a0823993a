package utils

import "github.com/google/uuid"

// NewID returns a random connection identifier. Ids are never reused.
func NewID() string {
	return uuid.NewString()
}
