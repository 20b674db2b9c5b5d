package booking

import (
	"context"
	"time"

	bookingRepo "slotwise/database/repository/booking"
	resourceRepo "slotwise/database/repository/resource"
	"slotwise/models"
	"slotwise/services/calendar"
)

// Engine is the availability and combination-selection core. All of its
// computations are read-only over the repositories, so concurrent callers
// are safe; the only mutable state lives behind the booking repository's
// transactional writes.
type Engine struct {
	Calendars *calendar.Service
	Directory resourceRepo.ResourceRepository
	Repo      bookingRepo.BookingRepository

	// LookaheadDays bounds the forward search for the next valid slot
	// boundary. Zero falls back to two weeks.
	LookaheadDays int

	// Now is the clock; nil means time.Now. Injected by tests.
	Now func() time.Time
}

const defaultLookaheadDays = 14

func (e *Engine) clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) lookahead() time.Duration {
	days := e.LookaheadDays
	if days <= 0 {
		days = defaultLookaheadDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// BusyIntervals aggregates the given meetings into one resource's busy set,
// skipping the meeting owned by excludeBookingID so a booking never
// conflicts with itself while being re-checked.
//
// A meeting makes the resource busy when its owning booking's combination
// includes the resource; that rule is absolute for material resources. A
// human resource is additionally busy during any event its linked identity
// owns and shows as "busy", and during any event it is invited to and has
// not declined. A person therefore escapes a conflict by declining or by
// marking the event free; a machine never does.
func BusyIntervals(resource models.Resource, meetings []models.Meeting, excludeBookingID string) models.IntervalSet {
	var busy []models.TimeInterval
	userID := ""
	if resource.Kind == models.ResourceKindHuman {
		userID = resource.UserID
	}
	for _, m := range meetings {
		if !m.Start.Before(m.Stop) {
			continue
		}
		if m.BookingID != "" && m.BookingID == excludeBookingID {
			continue
		}
		occupied := m.BooksResource(resource.ID)
		if !occupied && userID != "" {
			if m.OwnerID == userID && m.ShowAs == models.ShowAsBusy {
				occupied = true
			} else if status, invited := m.AttendeeStatus(userID); invited && status != models.AttendeeDeclined {
				occupied = true
			}
		}
		if occupied {
			busy = append(busy, m.Interval())
		}
	}
	set, _ := models.NewIntervalSet(busy...)
	return set
}

// CombinationAvailability intersects the availability of every member of
// the combination over [start, end): each resource contributes its work
// intervals (from the forced calendar, if any, otherwise its own) minus its
// busy intervals. The moment one member contributes nothing the whole
// combination is unavailable and no further members are evaluated.
func (e *Engine) CombinationAvailability(ctx context.Context, comb *models.Combination, start, end time.Time, excludeBookingID string) (models.IntervalSet, error) {
	full, err := models.NewIntervalSet(models.TimeInterval{Start: start, End: end})
	if err != nil {
		return models.IntervalSet{}, err
	}
	resources, err := e.Directory.ListResources(ctx, comb.ResourceIDs)
	if err != nil {
		return models.IntervalSet{}, err
	}
	if len(resources) == 0 {
		return models.IntervalSet{}, nil
	}
	meetings, err := e.Repo.ListMeetings(ctx, start, end)
	if err != nil {
		return models.IntervalSet{}, err
	}

	result := full
	for _, res := range resources {
		calendarID := comb.ForcedCalendarID
		if calendarID == "" {
			calendarID = res.CalendarID
		}
		work, err := e.Calendars.WorkIntervals(ctx, calendarID, start, end, res.ID)
		if err != nil {
			return models.IntervalSet{}, err
		}
		busy := BusyIntervals(res, meetings, excludeBookingID)
		result = result.Intersect(work.Subtract(busy))
		if result.IsEmpty() {
			break
		}
	}
	return result, nil
}

// Availability computes the intervals in which the booking could take
// place: the booking type's own calendar restricted to the chosen
// combination, or to the union of the type's candidates when none is
// chosen. The booking's current meeting is excluded from busy detection.
func (e *Engine) Availability(ctx context.Context, b *models.Booking, start, end time.Time, comb *models.Combination) (models.IntervalSet, error) {
	bt, err := e.Directory.GetBookingType(ctx, b.TypeID)
	if err != nil {
		return models.IntervalSet{}, err
	}
	typeWork, err := e.Calendars.WorkIntervals(ctx, bt.CalendarID, start, end, "")
	if err != nil {
		return models.IntervalSet{}, err
	}

	candidates, err := e.candidateCombinations(ctx, b, bt, comb)
	if err != nil {
		return models.IntervalSet{}, err
	}
	combined := models.IntervalSet{}
	for _, candidate := range candidates {
		avail, err := e.CombinationAvailability(ctx, candidate, start, end, b.ID)
		if err != nil {
			return models.IntervalSet{}, err
		}
		combined = combined.Union(avail)
	}
	return typeWork.Intersect(combined), nil
}

// candidateCombinations resolves which combinations constrain the booking:
// an explicitly passed one, else the booking's assigned one, else every
// combination configured on the type.
func (e *Engine) candidateCombinations(ctx context.Context, b *models.Booking, bt *models.BookingType, comb *models.Combination) ([]*models.Combination, error) {
	if comb != nil {
		return []*models.Combination{comb}, nil
	}
	if b.CombinationID != "" {
		assigned, err := e.Directory.GetCombination(ctx, b.CombinationID)
		if err != nil {
			return nil, err
		}
		return []*models.Combination{assigned}, nil
	}
	candidates := make([]*models.Combination, 0, len(bt.Combinations))
	for _, ref := range bt.Combinations {
		candidate, err := e.Directory.GetCombination(ctx, ref.CombinationID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
