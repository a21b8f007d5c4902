package meeting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/confcore/internal/domain"
)

// ReminderEmailEnqueuer decouples the reminder worker from the queue
// package's concrete Enqueuer.
type ReminderEmailEnqueuer interface {
	EnqueueReminderEmail(ctx context.Context, payload domain.EmailReminderPayload) error
}

// ReminderWorker implements spec §4.H's reminder worker: re-load the
// meeting at fire time, no-op if it is gone or cancelled, otherwise enqueue
// the actual email job with a fresh snapshot of meeting details.
type ReminderWorker struct {
	meetings *Service
	users    UserStore
	emails   ReminderEmailEnqueuer
}

func NewReminderWorker(meetings *Service, users UserStore, emails ReminderEmailEnqueuer) *ReminderWorker {
	return &ReminderWorker{meetings: meetings, users: users, emails: emails}
}

// HandleJob is the queue.Handler for the "reminder" queue.
func (w *ReminderWorker) HandleJob(ctx context.Context, job domain.Job) error {
	if job.Type != domain.JobTypeReminderCheck {
		return fmt.Errorf("reminder worker: unexpected job type %q", job.Type)
	}
	var p domain.ReminderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}

	m, err := w.meetings.GetMeeting(ctx, p.MeetingID)
	if err != nil {
		return nil // meeting gone: no-op per spec §4.H
	}
	if m.Status == domain.StatusCancelled || m.Status == domain.StatusEnded {
		return nil
	}

	host, err := w.users.FindByID(ctx, domain.UserID(p.UserID))
	if err != nil {
		return nil
	}

	return w.emails.EnqueueReminderEmail(ctx, domain.EmailReminderPayload{
		MeetingID:    m.ID,
		MeetingTitle: m.Title,
		MeetingCode:  m.MeetingID,
		ScheduledFor: m.ScheduledFor,
		TimeLabel:    p.TimeLabel,
		ToEmail:      host.Email,
		ToName:       host.Profile.DisplayName,
	})
}
