package bookingRepo

import (
	"context"
	"time"

	"slotwise/models"
)

// CheckFunc re-validates a set of bookings against the engine's scheduling
// invariant. ScheduleTransactionally runs it inside the same transaction as
// the write it validates; a non-nil return aborts the whole transaction.
type CheckFunc func(ctx context.Context, bookings []models.Booking) error

// BookingRepository stores bookings and meetings. Meetings double as the
// generic calendar-event source used for busy-interval detection.
type BookingRepository interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	SaveBooking(ctx context.Context, booking *models.Booking) error

	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	SaveMeeting(ctx context.Context, meeting *models.Meeting) error
	DeleteMeeting(ctx context.Context, id string) error

	// ListMeetings returns every meeting (booking-owned or generic)
	// overlapping [from, to).
	ListMeetings(ctx context.Context, from, to time.Time) ([]models.Meeting, error)

	// ListScheduledForResources returns active scheduled bookings whose
	// combination uses any of the given resources and which end after the
	// given instant. Used to re-validate after calendar or combination
	// writes.
	ListScheduledForResources(ctx context.Context, resourceIDs []string, after time.Time) ([]models.Booking, error)

	// ListScheduledForCombination returns active scheduled bookings assigned
	// to the combination which end after the given instant. Membership edits
	// can replace every resource the existing meetings reference, so
	// re-validation needs this direct lookup on top of the resource one.
	ListScheduledForCombination(ctx context.Context, combinationID string, after time.Time) ([]models.Booking, error)

	// ScheduleTransactionally persists the booking and its meeting as one
	// atomically-isolated unit and runs check against the post-write state
	// before the transaction commits. On check failure everything written
	// is rolled back and the check's error is returned unchanged.
	ScheduleTransactionally(ctx context.Context, booking *models.Booking, meeting *models.Meeting, check CheckFunc) error
}
