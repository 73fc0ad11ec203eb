package util

import "github.com/google/uuid"

// NewID returns a random UUID string used for entity and request ids.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed entity id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
