package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the scheduling engine. Callers branch on these with
// errors.Is; none of them is used for control flow inside the engine.
var (
	// ErrNoCombinationAvailable means no candidate combination is free for
	// the entire desired interval. Recoverable: the caller picks another
	// slot.
	ErrNoCombinationAvailable = errors.New("no resource combination available for this time")
	// ErrSchedulingConflict means the commit-time re-validation failed
	// because another writer claimed the window first. The triggering
	// transaction is rolled back entirely.
	ErrSchedulingConflict = errors.New("scheduling conflict")
	// ErrForbidden means an overdue booking was modified by an actor
	// without manager privilege.
	ErrForbidden = errors.New("booking exceeded its modification deadline")
)

// ConflictError lists the bookings that failed commit-time re-validation.
// It unwraps to ErrSchedulingConflict.
type ConflictError struct {
	BookingIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: bookings do not fit in their type or resource calendars, or all resources are busy: %s",
		ErrSchedulingConflict, strings.Join(e.BookingIDs, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrSchedulingConflict
}
