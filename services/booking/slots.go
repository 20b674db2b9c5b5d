package booking

import (
	"context"
	"time"

	"slotwise/models"
)

// AvailableSlots walks [rangeStart, rangeEnd) at the booking type's slot
// granularity and returns, per calendar date (formatted in the type
// calendar's zone), the ordered start times at which some combination can
// satisfy the full booking duration. Starts inside the modification
// deadline window are never offered. The computation reads a snapshot and
// has no side effects, so regenerating it with unchanged data yields
// identical output.
func (e *Engine) AvailableSlots(ctx context.Context, b *models.Booking, rangeStart, rangeEnd time.Time) (map[string][]time.Time, error) {
	bt, err := e.Directory.GetBookingType(ctx, b.TypeID)
	if err != nil {
		return nil, err
	}
	cal, err := e.Calendars.Repo.GetCalendar(ctx, bt.CalendarID)
	if err != nil {
		return nil, err
	}
	loc := cal.Location()
	duration := bt.Duration()
	granularity := bt.SlotGranularity()

	current := rangeStart
	if earliest := e.clock().Add(bt.ModificationDeadline()); earliest.After(current) {
		current = earliest
	}
	result := make(map[string][]time.Time)
	if !current.Before(rangeEnd) {
		return result, nil
	}

	// One availability snapshot for the whole range; each candidate slot
	// is then a containment check against it.
	available, err := e.Availability(ctx, b, current, rangeEnd, nil)
	if err != nil {
		return nil, err
	}

	for current.Before(rangeEnd) {
		aligned, ok, err := e.AlignToSlotBoundary(ctx, bt, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !aligned.Equal(current) {
			current = aligned
			continue
		}
		slot := models.TimeInterval{Start: current, End: current.Add(duration)}
		if available.Covers(slot) {
			day := current.In(loc).Format("2006-01-02")
			result[day] = append(result[day], current)
		}
		current = current.Add(granularity)
	}
	return result, nil
}
