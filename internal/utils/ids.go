package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewInvestigationID generates a URL-safe investigation identifier.
func NewInvestigationID() (string, error) {
	return gonanoid.New()
}
