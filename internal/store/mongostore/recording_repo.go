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

// RecordingRepository backs the recordings metadata lifecycle (SPEC_FULL
// supplemented feature 4), grounded on the same collection conventions as
// MeetingRepository but with no version fence: each record has exactly one
// writer transition at a time (start, then stop, then upload), so plain
// UpdateOne calls are enough.
type RecordingRepository struct {
	coll *mongo.Collection
}

func NewRecordingRepository(db *mongo.Database) *RecordingRepository {
	return &RecordingRepository{coll: db.Collection(CollRecordings)}
}

func (r *RecordingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "meetingId", Value: 1}}},
		{Keys: bson.D{{Key: "startedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *RecordingRepository) Insert(ctx context.Context, rec *domain.RecordingRecord) error {
	now := time.Now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "insert recording", err)
	}
	return nil
}

func (r *RecordingRepository) FindByID(ctx context.Context, id string) (*domain.RecordingRecord, error) {
	var rec domain.RecordingRecord
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "recording not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find recording", err)
	}
	return &rec, nil
}

// FindActiveForMeeting returns the in-progress recording for a meeting, if
// any, so /recordings/stop knows which record to close out.
func (r *RecordingRepository) FindActiveForMeeting(ctx context.Context, meetingID string) (*domain.RecordingRecord, error) {
	var rec domain.RecordingRecord
	err := r.coll.FindOne(ctx, bson.M{
		"meetingId": meetingID,
		"status":    domain.RecordingInProgress,
	}, options.FindOne().SetSort(bson.D{{Key: "startedAt", Value: -1}})).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "no active recording for meeting")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find active recording", err)
	}
	return &rec, nil
}

// FindLatestForMeeting returns the most recently started recording for a
// meeting regardless of status, used by the upload step which may run after
// stop has already advanced the record past "recording".
func (r *RecordingRepository) FindLatestForMeeting(ctx context.Context, meetingID string) (*domain.RecordingRecord, error) {
	var rec domain.RecordingRecord
	err := r.coll.FindOne(ctx, bson.M{"meetingId": meetingID},
		options.FindOne().SetSort(bson.D{{Key: "startedAt", Value: -1}})).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "no recording found for meeting")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "find latest recording", err)
	}
	return &rec, nil
}

func (r *RecordingRepository) UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus, stoppedAt *time.Time, errMsg string) error {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if stoppedAt != nil {
		set["stoppedAt"] = *stoppedAt
	}
	if errMsg != "" {
		set["error"] = errMsg
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update recording status", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "recording not found")
	}
	return nil
}

func (r *RecordingRepository) AttachFile(ctx context.Context, id, fileURL string, size int64, mimeType string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"fileUrl":   fileURL,
		"fileSize":  size,
		"mimeType":  mimeType,
		"status":    domain.RecordingCompleted,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "attach recording file", err)
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "recording not found")
	}
	return nil
}

func (r *RecordingRepository) ListForUser(ctx context.Context, userID domain.UserID, page, limit int) ([]*domain.RecordingRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter := bson.M{"startedBy": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "count recordings", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "list recordings", err)
	}
	defer cur.Close(ctx)

	var recs []*domain.RecordingRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, "decode recordings", err)
	}
	return recs, total, nil
}
