package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotwise/database"
	"slotwise/models"
)

// MongoBookingRepo is the MongoDB-backed BookingRepository.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	meetingColl *mongo.Collection
}

// NewMongoBookingRepo builds the repo over the shared database handle.
func NewMongoBookingRepo() *MongoBookingRepo {
	db := database.DB()
	return &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		meetingColl: db.Collection("meetings"),
	}
}

func (r *MongoBookingRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		return nil, fmt.Errorf("booking %s not found: %w", id, err)
	}
	return &b, nil
}

func (r *MongoBookingRepo) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if _, err := r.bookingColl.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) SaveBooking(ctx context.Context, booking *models.Booking) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.bookingColl.ReplaceOne(ctx, bson.M{"id": booking.ID}, booking, opts); err != nil {
		return fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}
	return nil
}

func (r *MongoBookingRepo) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	var m models.Meeting
	if err := r.meetingColl.FindOne(ctx, bson.M{"id": id}).Decode(&m); err != nil {
		return nil, fmt.Errorf("meeting %s not found: %w", id, err)
	}
	return &m, nil
}

func (r *MongoBookingRepo) SaveMeeting(ctx context.Context, meeting *models.Meeting) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.meetingColl.ReplaceOne(ctx, bson.M{"id": meeting.ID}, meeting, opts); err != nil {
		return fmt.Errorf("failed to save meeting %s: %w", meeting.ID, err)
	}
	return nil
}

func (r *MongoBookingRepo) DeleteMeeting(ctx context.Context, id string) error {
	if _, err := r.meetingColl.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete meeting %s: %w", id, err)
	}
	return nil
}

// ListMeetings fetches all potentially conflicting meetings in one query;
// the busy-interval aggregation then filters in memory per resource.
func (r *MongoBookingRepo) ListMeetings(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	filter := bson.M{
		"start": bson.M{"$lt": to},
		"stop":  bson.M{"$gt": from},
	}
	cur, err := r.meetingColl.Find(ctx, filter, options.Find().SetSort(bson.M{"start": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer cur.Close(ctx)
	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("failed to decode meetings: %w", err)
	}
	return meetings, nil
}

func (r *MongoBookingRepo) ListScheduledForResources(ctx context.Context, resourceIDs []string, after time.Time) ([]models.Booking, error) {
	meetingFilter := bson.M{
		"resource_ids": bson.M{"$in": resourceIDs},
		"stop":         bson.M{"$gt": after},
		"booking_id":   bson.M{"$ne": ""},
	}
	cur, err := r.meetingColl.Find(ctx, meetingFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings for resources: %w", err)
	}
	defer cur.Close(ctx)
	var meetings []models.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("failed to decode meetings: %w", err)
	}
	ids := make([]string, 0, len(meetings))
	for _, m := range meetings {
		ids = append(ids, m.BookingID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	bcur, err := r.bookingColl.Find(ctx, bson.M{"id": bson.M{"$in": ids}, "active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer bcur.Close(ctx)
	var bookings []models.Booking
	if err := bcur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *MongoBookingRepo) ListScheduledForCombination(ctx context.Context, combinationID string, after time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"combination_id": combinationID,
		"active":         true,
		"meeting_id":     bson.M{"$ne": ""},
		"stop":           bson.M{"$gt": after},
	}
	cur, err := r.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for combination %s: %w", combinationID, err)
	}
	defer cur.Close(ctx)
	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}
