package replay

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a non-Init segment targets a session
// the directory has never seen.
var ErrSessionNotFound = errors.New("session not found")

// RejectReason classifies deterministic, caller-caused append rejections.
type RejectReason string

const (
	ReasonNotOwner         RejectReason = "not_owner"
	ReasonMalformedSegment RejectReason = "malformed_segment"
	ReasonDuplicateInit    RejectReason = "duplicate_init"
	ReasonOutOfOrder       RejectReason = "out_of_order"
	ReasonSessionOver      RejectReason = "session_over"
	ReasonPrematureOver    RejectReason = "premature_game_over"
	ReasonIllegalAction    RejectReason = "illegal_action"
)

// ValidationError is a deterministic rejection of an append. It is never
// worth retrying: the same call will fail the same way. Storage failures are
// returned as plain errors instead, and leave the append outcome unknown.
type ValidationError struct {
	Reason RejectReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return string(e.Reason) + ": " + e.Detail
}

func reject(reason RejectReason, format string, args ...any) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a deterministic append rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
