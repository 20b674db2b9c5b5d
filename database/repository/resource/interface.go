package resourceRepo

import (
	"context"

	"slotwise/models"
)

// ResourceRepository is the read model for bookable resources, their
// combinations and booking types. All of it is shared reference data: the
// engine reads, administrative surfaces write.
type ResourceRepository interface {
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context, ids []string) ([]models.Resource, error)
	GetCombination(ctx context.Context, id string) (*models.Combination, error)
	GetBookingType(ctx context.Context, id string) (*models.BookingType, error)

	// ListResourcesByCalendar and ListCombinationsByForcedCalendar find
	// what depends on a calendar, so its writes can trigger re-validation
	// of affected bookings.
	ListResourcesByCalendar(ctx context.Context, calendarID string) ([]models.Resource, error)
	ListCombinationsByForcedCalendar(ctx context.Context, calendarID string) ([]models.Combination, error)

	UpsertResource(ctx context.Context, resource *models.Resource) error
	UpsertCombination(ctx context.Context, combination *models.Combination) error
	UpsertBookingType(ctx context.Context, bookingType *models.BookingType) error
}
