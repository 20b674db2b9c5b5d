package booking

import (
	"context"

	"go.uber.org/zap"

	"slotwise/models"
	"slotwise/utils"
)

// CheckScheduling re-validates the scheduling invariant for every booking
// that currently holds a meeting: its combination must have at least one
// resource, and recomputing availability (excluding the booking itself)
// must still cover its [start, stop) exactly. Bookings that already ended
// are left alone.
//
// The storage layer runs this inside the same transaction as the write
// being validated, so a failure rolls the whole write back. It is the sole
// defense against two requesters racing for one slot.
func (e *Engine) CheckScheduling(ctx context.Context, bookings []models.Booking) error {
	now := e.clock()
	var conflicting []string
	for i := range bookings {
		b := &bookings[i]
		if !b.Active || !b.IsScheduled() {
			continue
		}
		if b.Stop.Before(now) {
			continue
		}
		if b.CombinationID == "" {
			conflicting = append(conflicting, b.ID)
			continue
		}
		comb, err := e.Directory.GetCombination(ctx, b.CombinationID)
		if err != nil {
			return err
		}
		if len(comb.ResourceIDs) == 0 {
			conflicting = append(conflicting, b.ID)
			continue
		}
		avail, err := e.Availability(ctx, b, b.Start, b.Stop, comb)
		if err != nil {
			return err
		}
		if !avail.IsExactly(b.Interval()) {
			conflicting = append(conflicting, b.ID)
		}
	}
	if len(conflicting) > 0 {
		utils.GetLogger().Info("scheduling check failed",
			zap.Strings("bookingIDs", conflicting))
		return &ConflictError{BookingIDs: conflicting}
	}
	return nil
}
