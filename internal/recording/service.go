// Package recording implements the recording metadata lifecycle (SPEC_FULL
// supplemented feature 4): start/stop flip the lightweight recording
// sub-document on the meeting itself, while a dedicated recordings
// collection tracks per-file metadata across the upload step, grounded on
// randeeprajputr-webinar_backend's recording → processing → completed |
// failed status enum.
package recording

import (
	"context"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/google/uuid"
)

// Repository is the subset of mongostore.RecordingRepository this service
// needs, kept narrow so it doesn't leak the concrete Mongo type upward.
type Repository interface {
	Insert(ctx context.Context, rec *domain.RecordingRecord) error
	FindByID(ctx context.Context, id string) (*domain.RecordingRecord, error)
	FindActiveForMeeting(ctx context.Context, meetingID string) (*domain.RecordingRecord, error)
	FindLatestForMeeting(ctx context.Context, meetingID string) (*domain.RecordingRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecordingStatus, stoppedAt *time.Time, errMsg string) error
	AttachFile(ctx context.Context, id, fileURL string, size int64, mimeType string) error
	ListForUser(ctx context.Context, userID domain.UserID, page, limit int) ([]*domain.RecordingRecord, int64, error)
}

type Service struct {
	repo     Repository
	meetings *meeting.Service
}

func NewService(repo Repository, meetings *meeting.Service) *Service {
	return &Service{repo: repo, meetings: meetings}
}

// Start requires canRecord (checked by the caller via meeting.DerivePermissions,
// spec §4.E) and flips both the meeting's inline flag and a fresh record row.
func (s *Service) Start(ctx context.Context, meetingID string, callerID domain.UserID) (*domain.RecordingRecord, error) {
	m, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Recording.IsRecording {
		return nil, apperr.New(apperr.FailedPrecondition, "recording already in progress")
	}

	rec := &domain.RecordingRecord{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		StartedBy: callerID,
		Status:    domain.RecordingInProgress,
		StartedAt: time.Now(),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}

	if _, err := s.meetings.SetRecordingState(ctx, meetingID, true, domain.RecordingInProgress, &rec.StartedAt, nil); err != nil {
		return nil, err
	}
	return rec, nil
}

// Stop transitions the active recording to processing, mirroring the
// randeeprajputr status enum: a finalize-recording job (queue.QueueRecording)
// is expected to move it on to completed or failed once transcoding lands,
// but that finalize step is out of scope here — see domain.JobTypeRecordingFinish.
func (s *Service) Stop(ctx context.Context, meetingID string, callerID domain.UserID) (*domain.RecordingRecord, error) {
	rec, err := s.repo.FindActiveForMeeting(ctx, meetingID)
	if err != nil {
		return nil, apperr.New(apperr.FailedPrecondition, "no recording in progress for this meeting")
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, rec.ID, domain.RecordingProcessing, &now, ""); err != nil {
		return nil, err
	}
	rec.Status = domain.RecordingProcessing
	rec.StoppedAt = &now

	if _, err := s.meetings.SetRecordingState(ctx, meetingID, false, domain.RecordingProcessing, nil, &now); err != nil {
		return nil, err
	}
	return rec, nil
}

// AttachUpload records the finished file's metadata against the most recent
// recording row for the meeting, called after filestore.Save succeeds.
func (s *Service) AttachUpload(ctx context.Context, meetingID, fileURL string, size int64, mimeType string) (*domain.RecordingRecord, error) {
	rec, err := s.repo.FindLatestForMeeting(ctx, meetingID)
	if err != nil {
		return nil, apperr.New(apperr.FailedPrecondition, "no recording awaiting upload for this meeting")
	}
	if err := s.repo.AttachFile(ctx, rec.ID, fileURL, size, mimeType); err != nil {
		return nil, err
	}
	rec.FileURL, rec.FileSize, rec.MimeType, rec.Status = fileURL, size, mimeType, domain.RecordingCompleted
	return rec, nil
}

func (s *Service) ListForUser(ctx context.Context, userID domain.UserID, page, limit int) ([]*domain.RecordingRecord, int64, error) {
	return s.repo.ListForUser(ctx, userID, page, limit)
}
