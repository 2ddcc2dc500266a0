package constants

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a randomly generated UUIDv4 string.
func GenerateUUID() string {
	return uuid.NewString()
}

// ParseUUID validates the supplied UUID string and returns its lowercase representation.
func ParseUUID(value string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid uuid: %w", err)
	}
	return strings.ToLower(id.String()), nil
}
