package booking

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"slotwise/models"
	"slotwise/utils"
)

// SelectCombination picks the combination that will serve the booking over
// the desired interval. The booking's current combination is always tried
// first; after it come the type's candidates in their configured order
// ("sorted") or shuffled ("random"). The first candidate whose availability
// covers the desired interval exactly, with no gap or partial overlap, wins.
// Returns ErrNoCombinationAvailable when none qualifies.
func (e *Engine) SelectCombination(ctx context.Context, b *models.Booking, bt *models.BookingType, desired models.TimeInterval) (*models.Combination, error) {
	candidates, err := e.prioritizedCombinations(ctx, b, bt)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		avail, err := e.Availability(ctx, b, desired.Start, desired.End, candidate)
		if err != nil {
			return nil, err
		}
		if avail.IsExactly(desired) {
			utils.GetLogger().Debug("combination selected",
				zap.String("bookingID", b.ID),
				zap.String("combinationID", candidate.ID))
			return candidate, nil
		}
	}
	return nil, ErrNoCombinationAvailable
}

// prioritizedCombinations builds the candidate order for auto-assignment.
func (e *Engine) prioritizedCombinations(ctx context.Context, b *models.Booking, bt *models.BookingType) ([]*models.Combination, error) {
	refs := make([]models.CombinationRef, len(bt.Combinations))
	copy(refs, bt.Combinations)
	switch bt.Assignment {
	case models.AssignRandom:
		rand.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	default:
		sort.SliceStable(refs, func(i, j int) bool { return refs[i].Sequence < refs[j].Sequence })
	}

	var candidates []*models.Combination
	if b.CombinationID != "" {
		current, err := e.Directory.GetCombination(ctx, b.CombinationID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, current)
	}
	for _, ref := range refs {
		if ref.CombinationID == b.CombinationID {
			continue
		}
		candidate, err := e.Directory.GetCombination(ctx, ref.CombinationID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// AlignToSlotBoundary returns the earliest instant at or after from that
// starts a valid slot in the type's own calendar: it must sit on a
// granularity boundary counted from the start of a work period, and the
// full booking duration must fit inside that period. The search stops at
// the configured look-ahead horizon (two weeks by default); beyond it the
// second return is false.
func (e *Engine) AlignToSlotBoundary(ctx context.Context, bt *models.BookingType, from time.Time) (time.Time, bool, error) {
	duration := bt.Duration()
	granularity := bt.SlotGranularity()
	horizon := from.Add(e.lookahead())

	// Query one day back so the work period containing from is not clipped
	// at the query boundary, which would shift its slot grid.
	work, err := e.Calendars.WorkIntervals(ctx, bt.CalendarID, from.Add(-24*time.Hour), horizon, "")
	if err != nil {
		return time.Time{}, false, err
	}
	for _, iv := range work.Intervals() {
		slot := iv.Start
		if slot.Before(from) {
			offset := from.Sub(iv.Start)
			steps := (offset + granularity - 1) / granularity
			slot = iv.Start.Add(steps * granularity)
		}
		if !slot.Add(duration).After(iv.End) && !slot.Before(from) {
			return slot, true, nil
		}
	}
	return time.Time{}, false, nil
}
