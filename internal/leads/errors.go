package leads

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidName is returned when the name is missing or too short
	ErrInvalidName = errors.New("name must be at least 2 characters")

	// ErrInvalidEmail is returned when the email is not a valid address
	ErrInvalidEmail = errors.New("email format is invalid")

	// ErrInvalidPhone is returned when the phone is too short
	ErrInvalidPhone = errors.New("phone must be at least 10 characters")

	// ErrInvalidMessage is returned when the message is too short
	ErrInvalidMessage = errors.New("initial_message must be at least 10 characters")

	// ErrInvalidStatus is returned on an update with an unknown status
	ErrInvalidStatus = errors.New("unknown lead status")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)

// IsValidationError reports whether err is one of the input-shape errors
// surfaced to the caller as 422.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrInvalidMessage),
		errors.Is(err, ErrInvalidStatus):
		return true
	}
	return false
}

// FraudRejectionError is the expected business outcome for a flagged
// submission: no record is created and the signals explain why.
type FraudRejectionError struct {
	Signals []string
}

func (e *FraudRejectionError) Error() string {
	return "Submission flagged: " + strings.Join(e.Signals, ", ")
}
