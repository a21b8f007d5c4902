package mongostore

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mutator is applied to a meeting document under MeetingRepository.UpdateAtomic.
// Returning an error aborts the write; the meeting is left unmodified.
type Mutator func(m *domain.Meeting) error

// MeetingRepository implements spec §4.D. Concurrent updates to the same
// meeting are serialized through a per-meetingID in-process mutex, with the
// document's Version field used as an optimistic-concurrency fence against
// writers on other processes.
type MeetingRepository struct {
	coll *mongo.Collection

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMeetingRepository(db *mongo.Database) *MeetingRepository {
	return &MeetingRepository{
		coll:  db.Collection(CollMeetings),
		locks: make(map[string]*sync.Mutex),
	}
}

// EnsureIndexes creates the unique meetingId index and the listForUser
// support index. Call once at startup.
func (r *MeetingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "meetingId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "hostUserId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "participants.userId", Value: 1}},
		},
	})
	return err
}

func (r *MeetingRepository) lockFor(meetingID string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[meetingID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[meetingID] = l
	}
	return l
}

func (r *MeetingRepository) FindByPublicID(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	var m domain.Meeting
	err := r.coll.FindOne(ctx, bson.M{"meetingId": meetingID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "meeting not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find meeting", err)
	}
	return &m, nil
}

func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*domain.Meeting, error) {
	var m domain.Meeting
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "meeting not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find meeting", err)
	}
	return &m, nil
}

func (r *MeetingRepository) Insert(ctx context.Context, m *domain.Meeting) error {
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	m.Version = 1
	_, err := r.coll.InsertOne(ctx, m)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.New(apperr.Conflict, "meeting id already exists")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "insert meeting", err)
	}
	return nil
}

// UpdateAtomic serializes concurrent mutators for the same meetingID through
// an in-process lock, then does a read-modify-write guarded by the document's
// version field so a writer on another process cannot silently clobber this
// one's change (it would see a version mismatch and this call retries).
func (r *MeetingRepository) UpdateAtomic(ctx context.Context, meetingID string, mutate func(m *domain.Meeting) error) (*domain.Meeting, error) {
	lock := r.lockFor(meetingID)
	lock.Lock()
	defer lock.Unlock()

	const maxRetries = 5
	for attempt := 0; attempt < maxRetries; attempt++ {
		current, err := r.FindByPublicID(ctx, meetingID)
		if err != nil {
			return nil, err
		}
		startVersion := current.Version
		if err := mutate(current); err != nil {
			return nil, err
		}
		current.UpdatedAt = time.Now()
		current.Version = startVersion + 1

		res, err := r.coll.ReplaceOne(ctx,
			bson.M{"meetingId": meetingID, "version": startVersion},
			current,
		)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "update meeting", err)
		}
		if res.MatchedCount == 1 {
			return current, nil
		}
		// version fence missed a concurrent writer elsewhere; retry.
	}
	return nil, apperr.New(apperr.Conflict, "meeting update contended, retries exhausted")
}

func (r *MeetingRepository) ListForUser(ctx context.Context, userID domain.UserID, status domain.MeetingStatus, page, limit int) ([]*domain.Meeting, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter := bson.M{
		"$or": []bson.M{
			{"hostUserId": userID},
			{"participants.userId": userID},
		},
	}
	if status != "" {
		filter["status"] = status
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "count meetings", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "list meetings", err)
	}
	defer cur.Close(ctx)

	var meetings []*domain.Meeting
	if err := cur.All(ctx, &meetings); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "decode meetings", err)
	}
	return meetings, total, nil
}

// PushChat appends a message and bumps statistics.chatMessages in a single
// atomic update, bypassing UpdateAtomic's read-modify-write since $push and
// $inc are natively atomic and need no version fence.
func (r *MeetingRepository) PushChat(ctx context.Context, meetingID string, msg domain.ChatMessage) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"meetingId": meetingID},
		bson.M{
			"$push": bson.M{"chat": msg},
			"$inc":  bson.M{"statistics.chatMessages": 1},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "push chat", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "meeting not found")
	}
	return nil
}
