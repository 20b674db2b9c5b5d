package resourceRepo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotwise/database"
	"slotwise/models"
)

// MongoResourceRepo is the MongoDB-backed ResourceRepository.
type MongoResourceRepo struct {
	resourceColl    *mongo.Collection
	combinationColl *mongo.Collection
	typeColl        *mongo.Collection

	// Recheck re-validates scheduled bookings using a combination. It runs
	// inside the same transaction as the combination write, so a
	// membership change that would break an existing booking rolls back.
	Recheck func(ctx context.Context, combinationID string) error

	// RecheckResource does the same for a resource write, which matters
	// when the resource moves to another calendar.
	RecheckResource func(ctx context.Context, resourceID string) error
}

// NewMongoResourceRepo builds the repo over the shared database handle.
func NewMongoResourceRepo() *MongoResourceRepo {
	db := database.DB()
	return &MongoResourceRepo{
		resourceColl:    db.Collection("resources"),
		combinationColl: db.Collection("combinations"),
		typeColl:        db.Collection("booking_types"),
	}
}

func (r *MongoResourceRepo) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	var res models.Resource
	if err := r.resourceColl.FindOne(ctx, bson.M{"id": id}).Decode(&res); err != nil {
		return nil, fmt.Errorf("resource %s not found: %w", id, err)
	}
	return &res, nil
}

func (r *MongoResourceRepo) ListResources(ctx context.Context, ids []string) ([]models.Resource, error) {
	cur, err := r.resourceColl.Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer cur.Close(ctx)
	var resources []models.Resource
	if err := cur.All(ctx, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	// Preserve the requested order; combination membership order is part of
	// how results get reported.
	byID := make(map[string]models.Resource, len(resources))
	for _, res := range resources {
		byID[res.ID] = res
	}
	ordered := make([]models.Resource, 0, len(ids))
	for _, id := range ids {
		if res, ok := byID[id]; ok {
			ordered = append(ordered, res)
		}
	}
	return ordered, nil
}

func (r *MongoResourceRepo) GetCombination(ctx context.Context, id string) (*models.Combination, error) {
	var comb models.Combination
	if err := r.combinationColl.FindOne(ctx, bson.M{"id": id}).Decode(&comb); err != nil {
		return nil, fmt.Errorf("combination %s not found: %w", id, err)
	}
	return &comb, nil
}

func (r *MongoResourceRepo) GetBookingType(ctx context.Context, id string) (*models.BookingType, error) {
	var bt models.BookingType
	if err := r.typeColl.FindOne(ctx, bson.M{"id": id}).Decode(&bt); err != nil {
		return nil, fmt.Errorf("booking type %s not found: %w", id, err)
	}
	return &bt, nil
}

func (r *MongoResourceRepo) ListResourcesByCalendar(ctx context.Context, calendarID string) ([]models.Resource, error) {
	cur, err := r.resourceColl.Find(ctx, bson.M{"calendar_id": calendarID})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources by calendar: %w", err)
	}
	defer cur.Close(ctx)
	var resources []models.Resource
	if err := cur.All(ctx, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	return resources, nil
}

func (r *MongoResourceRepo) ListCombinationsByForcedCalendar(ctx context.Context, calendarID string) ([]models.Combination, error) {
	cur, err := r.combinationColl.Find(ctx, bson.M{"forced_calendar_id": calendarID})
	if err != nil {
		return nil, fmt.Errorf("failed to list combinations by forced calendar: %w", err)
	}
	defer cur.Close(ctx)
	var combinations []models.Combination
	if err := cur.All(ctx, &combinations); err != nil {
		return nil, fmt.Errorf("failed to decode combinations: %w", err)
	}
	return combinations, nil
}

func (r *MongoResourceRepo) UpsertResource(ctx context.Context, resource *models.Resource) error {
	opts := options.Replace().SetUpsert(true)
	sess, err := r.resourceColl.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if _, err := r.resourceColl.ReplaceOne(sc, bson.M{"id": resource.ID}, resource, opts); err != nil {
			_ = sc.AbortTransaction(sc)
			return fmt.Errorf("failed to upsert resource %s: %w", resource.ID, err)
		}
		if r.RecheckResource != nil {
			if err := r.RecheckResource(sc, resource.ID); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
		}
		return sc.CommitTransaction(sc)
	})
}

func (r *MongoResourceRepo) UpsertCombination(ctx context.Context, combination *models.Combination) error {
	opts := options.Replace().SetUpsert(true)
	sess, err := r.combinationColl.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if _, err := r.combinationColl.ReplaceOne(sc, bson.M{"id": combination.ID}, combination, opts); err != nil {
			_ = sc.AbortTransaction(sc)
			return fmt.Errorf("failed to upsert combination %s: %w", combination.ID, err)
		}
		if r.Recheck != nil {
			if err := r.Recheck(sc, combination.ID); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
		}
		return sc.CommitTransaction(sc)
	})
}

func (r *MongoResourceRepo) UpsertBookingType(ctx context.Context, bookingType *models.BookingType) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.typeColl.ReplaceOne(ctx, bson.M{"id": bookingType.ID}, bookingType, opts); err != nil {
		return fmt.Errorf("failed to upsert booking type %s: %w", bookingType.ID, err)
	}
	return nil
}
