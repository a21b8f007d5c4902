package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/confcore/internal/domain"
	"github.com/google/uuid"
)

// Enqueuer wraps a Queue with typed helpers for the job kinds the meeting
// state machine, minutes pipeline, and reminder worker submit, so those
// packages depend on a narrow interface rather than domain.Job directly.
type Enqueuer struct {
	q Queue
}

func NewEnqueuer(q Queue) *Enqueuer {
	return &Enqueuer{q: q}
}

// EnqueueMinutesEmail satisfies minutes.EmailEnqueuer.
func (e *Enqueuer) EnqueueMinutesEmail(ctx context.Context, meetingID, toEmail, toName string) error {
	payload, err := json.Marshal(domain.EmailMinutesPayload{MeetingID: meetingID, ToEmail: toEmail, ToName: toName})
	if err != nil {
		return fmt.Errorf("marshal minutes email payload: %w", err)
	}
	return e.q.Enqueue(ctx, domain.Job{
		ID:                fmt.Sprintf("minutes-email-%s-%s", meetingID, toEmail),
		Queue:             domain.QueueEmail,
		Type:              domain.JobTypeEmailMinutes,
		Payload:           payload,
		AttemptsRemaining: DefaultAttempts(domain.QueueEmail),
		BackoffBase:       BaseDelay(domain.QueueEmail),
		NotBefore:         time.Now(),
		CreatedAt:         time.Now(),
	})
}

// EnqueueReminderEmail submits the actual "email"/"meeting-reminder" job
// once the reminder worker has confirmed the meeting is still live.
func (e *Enqueuer) EnqueueReminderEmail(ctx context.Context, payload domain.EmailReminderPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reminder email payload: %w", err)
	}
	return e.q.Enqueue(ctx, domain.Job{
		ID:                fmt.Sprintf("reminder-email-%s-%s", payload.MeetingID, payload.TimeLabel),
		Queue:             domain.QueueEmail,
		Type:              domain.JobTypeEmailReminder,
		Payload:           body,
		AttemptsRemaining: DefaultAttempts(domain.QueueEmail),
		BackoffBase:       BaseDelay(domain.QueueEmail),
		NotBefore:         time.Now(),
		CreatedAt:         time.Now(),
	})
}

// EnqueueMoMGeneration submits an asynchronous minutes-generation job for
// callers that don't take the synchronous "end meeting" path (spec §4.I).
func (e *Enqueuer) EnqueueMoMGeneration(ctx context.Context, meetingID string, requestedBy domain.UserID) error {
	payload, err := json.Marshal(domain.MoMGeneratePayload{MeetingID: meetingID, RequestedBy: string(requestedBy)})
	if err != nil {
		return fmt.Errorf("marshal mom payload: %w", err)
	}
	return e.q.Enqueue(ctx, domain.Job{
		ID:                uuid.NewString(),
		Queue:             domain.QueueMoMGen,
		Type:              domain.JobTypeMoMGenerate,
		Payload:           payload,
		AttemptsRemaining: DefaultAttempts(domain.QueueMoMGen),
		BackoffBase:       BaseDelay(domain.QueueMoMGen),
		NotBefore:         time.Now(),
		CreatedAt:         time.Now(),
	})
}
