package engine

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error taxonomy surfaced by engine operations. Callers branch with
// errors.Is; controllers translate these into HTTP status codes.
var (
	// ErrValidation marks malformed input (bad type, missing activity type,
	// inverted date range). Never retryable.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateCheckIn is returned when a check-in of the same type
	// already exists for the user on the current calendar day.
	ErrDuplicateCheckIn = errors.New("already checked in today")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition that lost a race or is no longer
	// legal (double-accept, settling an active challenge).
	ErrConflict = errors.New("conflict")
	// ErrExternalService marks a store or network failure. Retryable.
	ErrExternalService = errors.New("external service failure")
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func storef(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrExternalService)
}

// isDuplicateKey detects unique constraint violations across drivers. GORM's
// error translation covers MySQL and sqlite; the string checks remain as a
// fallback for drivers configured without TranslateError.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
