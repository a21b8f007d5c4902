package mongostore

import (
	"context"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MinutesRepository is the one-document-per-meeting AI minutes store.
type MinutesRepository struct {
	coll *mongo.Collection
}

func NewMinutesRepository(db *mongo.Database) *MinutesRepository {
	return &MinutesRepository{coll: db.Collection(CollMinutes)}
}

func (r *MinutesRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "attendees.email", Value: 1}},
	})
	return err
}

// Create inserts a processing-status placeholder; a second call for the same
// meetingID is a Conflict per spec §4.I's idempotence requirement.
func (r *MinutesRepository) Create(ctx context.Context, m *domain.MeetingMinutes) error {
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.New(apperr.Conflict, "minutes already generated for this meeting")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create minutes", err)
	}
	return nil
}

func (r *MinutesRepository) FindByMeetingID(ctx context.Context, meetingID string) (*domain.MeetingMinutes, error) {
	var m domain.MeetingMinutes
	err := r.coll.FindOne(ctx, bson.M{"_id": meetingID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "minutes not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find minutes", err)
	}
	return &m, nil
}

func (r *MinutesRepository) Replace(ctx context.Context, m *domain.MeetingMinutes) error {
	m.UpdatedAt = time.Now()
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": m.MeetingID}, m)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "replace minutes", err)
	}
	return nil
}

func (r *MinutesRepository) ListForUser(ctx context.Context, attendeeEmail string, page, limit int) ([]*domain.MeetingMinutes, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter := bson.M{"attendees.email": attendeeEmail}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "count minutes", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "list minutes", err)
	}
	defer cur.Close(ctx)

	var out []*domain.MeetingMinutes
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "decode minutes", err)
	}
	return out, total, nil
}

// UpdateRecipientStatus flips one recipient's delivery status in place,
// used by the email dispatcher after each SMTP submission attempt.
func (r *MinutesRepository) UpdateRecipientStatus(ctx context.Context, meetingID, email string, status domain.RecipientStatus, sendErr string) error {
	now := time.Now()
	update := bson.M{
		"emailDelivery.recipients.$.status": status,
	}
	if status == domain.RecipientSent {
		update["emailDelivery.recipients.$.sentAt"] = now
	}
	if sendErr != "" {
		update["emailDelivery.recipients.$.error"] = sendErr
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": meetingID, "emailDelivery.recipients.email": email},
		bson.M{"$set": update},
	)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update recipient status", err)
	}
	return nil
}
