package domain

import "time"

// RecordingRecord is one row of the dedicated recordings collection,
// tracking a single upload's metadata independently of the meeting
// document's lightweight `recording` sub-document (SPEC_FULL supplemented
// feature 4, grounded on randeeprajputr-webinar_backend's Recording model).
type RecordingRecord struct {
	ID          string          `json:"id" bson:"_id"`
	MeetingID   string          `json:"meetingId" bson:"meetingId"`
	StartedBy   UserID          `json:"startedBy" bson:"startedBy"`
	Status      RecordingStatus `json:"status" bson:"status"`
	StartedAt   time.Time       `json:"startedAt" bson:"startedAt"`
	StoppedAt   *time.Time      `json:"stoppedAt,omitempty" bson:"stoppedAt,omitempty"`
	FileURL     string          `json:"fileUrl,omitempty" bson:"fileUrl,omitempty"`
	FileSize    int64           `json:"fileSize,omitempty" bson:"fileSize,omitempty"`
	MimeType    string          `json:"mimeType,omitempty" bson:"mimeType,omitempty"`
	DurationSec int             `json:"durationSeconds,omitempty" bson:"durationSeconds,omitempty"`
	Error       string          `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt"`
}
