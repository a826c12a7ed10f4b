package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates an occupant message body.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateLeaseID validates a lease ID.
func ValidateLeaseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid lease ID format")
	}
	return nil
}

// ValidateOfferID validates an offer ID.
func ValidateOfferID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid offer ID format")
	}
	return nil
}
