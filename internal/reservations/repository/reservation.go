package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reservationserrors "labslot/internal/reservations/errors"
	"labslot/pkg/config"
	mongotx "labslot/pkg/db/mongo"
	"labslot/pkg/model"
	"labslot/pkg/timeutil"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Reservations"
)

// reservationDoc is the persisted shape. Start and end are stored as UTC
// "YYYY-MM-DD HH:MM:SS" strings; the fixed-width layout makes lexicographic
// order equal chronological order, so range filters compare strings directly.
type reservationDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ResourceID   string             `bson:"resource_id"`
	Start        string             `bson:"start"`
	End          string             `bson:"end"`
	PurposeOfUse string             `bson:"purpose_of_use"`
	Color        string             `bson:"color,omitempty"`
	UserID       string             `bson:"user_id,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d *reservationDoc) toModel() (*model.Reservation, error) {
	start, err := timeutil.ParseTimestamp(d.Start)
	if err != nil {
		return nil, fmt.Errorf("reservation %s: bad start: %w", d.ID.Hex(), err)
	}
	end, err := timeutil.ParseTimestamp(d.End)
	if err != nil {
		return nil, fmt.Errorf("reservation %s: bad end: %w", d.ID.Hex(), err)
	}

	return &model.Reservation{
		ID:           d.ID.Hex(),
		ResourceID:   d.ResourceID,
		Start:        start,
		End:          end,
		PurposeOfUse: d.PurposeOfUse,
		Color:        d.Color,
		UserID:       d.UserID,
		CreatedAt:    d.CreatedAt,
	}, nil
}

func fromModel(r *model.Reservation) *reservationDoc {
	return &reservationDoc{
		ResourceID:   r.ResourceID,
		Start:        timeutil.FormatTimestamp(r.Start),
		End:          timeutil.FormatTimestamp(r.End),
		PurposeOfUse: r.PurposeOfUse,
		Color:        r.Color,
		UserID:       r.UserID,
		CreatedAt:    r.CreatedAt,
	}
}

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error)
	Update(ctx context.Context, id string, reservation *model.Reservation) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id string) error
	FindByResource(ctx context.Context, resourceID string, start, end *int64, limit int, offset int64) ([]*model.Reservation, error)
	FindWindow(ctx context.Context, from, to *int64) ([]*model.Reservation, error)
	CountByResource(ctx context.Context, resourceID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	reservation.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := fromModel(reservation)

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var doc reservationDoc
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return doc.toModel()
}

func (r *mongoReservationRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// Newest first, matching the admin listing.
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodeAll(ctx, cursor)
}

func (r *mongoReservationRepository) Update(ctx context.Context, id string, reservation *model.Reservation) (*mongo.UpdateResult, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"resource_id":    reservation.ResourceID,
			"start":          timeutil.FormatTimestamp(reservation.Start),
			"end":            timeutil.FormatTimestamp(reservation.End),
			"purpose_of_use": reservation.PurposeOfUse,
			"color":          reservation.Color,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, reservationserrors.ErrNotFound
	}

	return result, nil
}

func (r *mongoReservationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	if result.DeletedCount == 0 {
		return reservationserrors.ErrNotFound
	}

	return nil
}

func (r *mongoReservationRepository) FindByResource(
	ctx context.Context,
	resourceID string,
	start, end *int64,
	limit int, offset int64,
) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := r.buildSearchFilter(resourceID, start, end)

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "start", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodeAll(ctx, cursor)
}

// FindWindow returns reservations intersecting [from, to): anything that has
// not ended before from and starts before to. Either bound may be nil.
func (r *mongoReservationRepository) FindWindow(ctx context.Context, from, to *int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if from != nil {
		filter["end"] = bson.M{"$gte": timeutil.FormatTimestamp(*from)}
	}
	if to != nil {
		filter["start"] = bson.M{"$lt": timeutil.FormatTimestamp(*to)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation window: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodeAll(ctx, cursor)
}

func (r *mongoReservationRepository) CountByResource(ctx context.Context, resourceID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"resource_id": resourceID})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations by resource: %w", err)
	}
	return count, nil
}

func (r *mongoReservationRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

// buildSearchFilter narrows to one resource and, when both bounds are given,
// to documents overlapping the half-open interval [start, end).
func (r *mongoReservationRepository) buildSearchFilter(resourceID string, start, end *int64) bson.M {
	filter := bson.M{
		"resource_id": resourceID,
	}

	if start != nil || end != nil {
		timeFilters := bson.M{}
		if start != nil && end != nil {
			timeFilters = bson.M{
				"start": bson.M{"$lt": timeutil.FormatTimestamp(*end)},
				"end":   bson.M{"$gt": timeutil.FormatTimestamp(*start)},
			}
		} else if start != nil {
			timeFilters = bson.M{
				"end": bson.M{"$gt": timeutil.FormatTimestamp(*start)},
			}
		} else if end != nil {
			timeFilters = bson.M{
				"start": bson.M{"$lt": timeutil.FormatTimestamp(*end)},
			}
		}

		filter["$and"] = []bson.M{timeFilters}
	}

	return filter
}

func (r *mongoReservationRepository) decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*model.Reservation, error) {
	var docs []*reservationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	reservations := make([]*model.Reservation, 0, len(docs))
	for _, doc := range docs {
		reservation, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
