package calendarRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotwise/database"
	"slotwise/models"
	"slotwise/utils"
)

// MongoCalendarRepo is the MongoDB-backed CalendarRepository.
type MongoCalendarRepo struct {
	calendarColl *mongo.Collection
	leaveColl    *mongo.Collection

	// Recheck re-validates scheduled bookings depending on a calendar. It
	// runs inside the same transaction as the write that triggered it, so
	// a write that would break an existing booking is rolled back whole.
	Recheck func(ctx context.Context, calendarID string) error
}

// NewMongoCalendarRepo builds the repo over the shared database handle.
func NewMongoCalendarRepo() *MongoCalendarRepo {
	db := database.DB()
	return &MongoCalendarRepo{
		calendarColl: db.Collection("calendars"),
		leaveColl:    db.Collection("leaves"),
	}
}

func (r *MongoCalendarRepo) GetCalendar(ctx context.Context, id string) (*models.Calendar, error) {
	var cal models.Calendar
	if err := r.calendarColl.FindOne(ctx, bson.M{"id": id}).Decode(&cal); err != nil {
		return nil, fmt.Errorf("calendar %s not found: %w", id, err)
	}
	return &cal, nil
}

func (r *MongoCalendarRepo) ListLeaves(ctx context.Context, calendarID string, from, to time.Time) ([]models.Leave, error) {
	filter := bson.M{
		"calendar_id": calendarID,
		"from":        bson.M{"$lt": to},
		"to":          bson.M{"$gt": from},
	}
	cur, err := r.leaveColl.Find(ctx, filter, options.Find().SetSort(bson.M{"from": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list leaves for calendar %s: %w", calendarID, err)
	}
	defer cur.Close(ctx)
	var leaves []models.Leave
	if err := cur.All(ctx, &leaves); err != nil {
		return nil, fmt.Errorf("failed to decode leaves: %w", err)
	}
	return leaves, nil
}

func (r *MongoCalendarRepo) UpsertCalendar(ctx context.Context, calendar *models.Calendar) error {
	opts := options.Replace().SetUpsert(true)
	return r.writeAndRecheck(ctx, calendar.ID, func(sc mongo.SessionContext) error {
		if _, err := r.calendarColl.ReplaceOne(sc, bson.M{"id": calendar.ID}, calendar, opts); err != nil {
			return fmt.Errorf("failed to upsert calendar %s: %w", calendar.ID, err)
		}
		return nil
	})
}

func (r *MongoCalendarRepo) AddLeave(ctx context.Context, leave *models.Leave) error {
	return r.writeAndRecheck(ctx, leave.CalendarID, func(sc mongo.SessionContext) error {
		if _, err := r.leaveColl.InsertOne(sc, leave); err != nil {
			return fmt.Errorf("failed to insert leave: %w", err)
		}
		return nil
	})
}

func (r *MongoCalendarRepo) RemoveLeave(ctx context.Context, leaveID string) error {
	var leave models.Leave
	if err := r.leaveColl.FindOne(ctx, bson.M{"id": leaveID}).Decode(&leave); err != nil {
		return fmt.Errorf("leave %s not found: %w", leaveID, err)
	}
	return r.writeAndRecheck(ctx, leave.CalendarID, func(sc mongo.SessionContext) error {
		if _, err := r.leaveColl.DeleteOne(sc, bson.M{"id": leaveID}); err != nil {
			return fmt.Errorf("failed to remove leave %s: %w", leaveID, err)
		}
		return nil
	})
}

// writeAndRecheck commits the write and the scheduling re-check as one
// transaction. The cache version is bumped up front so the re-check reads
// fresh expansions; a version bump for an aborted write only costs a cache
// miss.
func (r *MongoCalendarRepo) writeAndRecheck(ctx context.Context, calendarID string, write func(sc mongo.SessionContext) error) error {
	utils.BumpCalendarCacheVersion(ctx, utils.GetCacheClient(), calendarID)

	client := r.calendarColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := write(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		if r.Recheck != nil {
			if err := r.Recheck(sc, calendarID); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
		}
		return sc.CommitTransaction(sc)
	})
}
