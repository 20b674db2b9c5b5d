package bookingRepo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotwise/models"
)

// ScheduleTransactionally writes the booking and its meeting inside a Mongo
// session transaction, then re-runs the scheduling check against the
// post-write state. If another writer claimed the window first, the check
// fails and the abort rolls back both documents; the caller surfaces the
// conflict, it never retries silently.
func (r *MongoBookingRepo) ScheduleTransactionally(
	ctx context.Context,
	booking *models.Booking,
	meeting *models.Meeting,
	check CheckFunc,
) error {
	client := r.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	replaceOpts := options.Replace().SetUpsert(true)
	txnFn := func(sc mongo.SessionContext) error {
		if _, err := r.bookingColl.ReplaceOne(sc, bson.M{"id": booking.ID}, booking, replaceOpts); err != nil {
			return fmt.Errorf("failed to write booking: %w", err)
		}
		if meeting != nil {
			if _, err := r.meetingColl.ReplaceOne(sc, bson.M{"id": meeting.ID}, meeting, replaceOpts); err != nil {
				return fmt.Errorf("failed to write meeting: %w", err)
			}
		}
		if check != nil {
			// The check reads through sc, so it observes this
			// transaction's own writes plus every committed one.
			if err := check(sc, []models.Booking{*booking}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return err
	}

	return nil
}
