package service

import (
	"errors"
	"strings"
)

// ValidationError carries a client-facing message for a rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError and
// returns its message.
func IsValidation(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}

// ImageRemover deletes a previously stored image by its public path.
type ImageRemover interface {
	Remove(path string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// parseBool accepts the spellings HTML forms send for checkboxes.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "si", "sí", "yes":
		return true, true
	case "false", "0", "off", "no":
		return false, true
	}
	return false, false
}
