package utils

import "github.com/google/uuid"

// GenerateUUID returns a random v4 UUID.
func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateOrderedID returns a v7 UUID, which sorts by creation time.
func GenerateOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
