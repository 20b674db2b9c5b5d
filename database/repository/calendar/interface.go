package calendarRepo

import (
	"context"
	"time"

	"slotwise/models"
)

// CalendarRepository is the read/write model for calendars and leaves.
// The scheduling engine only ever reads; writes come from administrative
// surfaces and must invalidate caches and re-validate affected bookings.
type CalendarRepository interface {
	GetCalendar(ctx context.Context, id string) (*models.Calendar, error)
	// ListLeaves returns every leave of the calendar overlapping [from, to),
	// both global ones and resource-scoped ones.
	ListLeaves(ctx context.Context, calendarID string, from, to time.Time) ([]models.Leave, error)

	UpsertCalendar(ctx context.Context, calendar *models.Calendar) error
	AddLeave(ctx context.Context, leave *models.Leave) error
	RemoveLeave(ctx context.Context, leaveID string) error
}
