package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/confcore/internal/domain"
)

// Scheduler manages the reminder ladder (spec §4.C: 60/30/15/5 minutes
// before a meeting's scheduledFor) on top of a Queue, using deterministic
// job IDs so re-scheduling and cancellation are idempotent.
type Scheduler struct {
	q Queue
}

func NewScheduler(q Queue) *Scheduler {
	return &Scheduler{q: q}
}

func reminderJobID(meetingID string, minutesBefore int) string {
	return fmt.Sprintf("reminder-%s-%d", meetingID, minutesBefore)
}

// ScheduleReminders enqueues one reminder-check job per rung of
// domain.ReminderLadder whose fire time (scheduledFor minus the rung) is
// still in the future. Each job carries only {meetingId, userId, timeLabel}; the
// reminder worker re-loads the meeting at fire time and decides whether an
// email is still warranted (spec §4.H), rather than baking a snapshot of
// meeting details into the schedule up front.
func (s *Scheduler) ScheduleReminders(ctx context.Context, meetingID string, scheduledFor time.Time, hostUserID string) error {
	for _, minutesBefore := range domain.ReminderLadder {
		fireAt := scheduledFor.Add(-time.Duration(minutesBefore) * time.Minute)
		if fireAt.Before(time.Now()) {
			continue
		}
		payload, err := json.Marshal(domain.ReminderPayload{
			MeetingID: meetingID,
			UserID:    hostUserID,
			TimeLabel: reminderLabel(minutesBefore),
		})
		if err != nil {
			return fmt.Errorf("marshal reminder payload: %w", err)
		}
		job := domain.Job{
			ID:                reminderJobID(meetingID, minutesBefore),
			Queue:             domain.QueueReminder,
			Type:              domain.JobTypeReminderCheck,
			Payload:           payload,
			AttemptsRemaining: DefaultAttempts(domain.QueueReminder),
			BackoffBase:       BaseDelay(domain.QueueReminder),
			NotBefore:         fireAt,
			CreatedAt:         time.Now(),
		}
		if err := s.q.Enqueue(ctx, job); err != nil {
			return fmt.Errorf("enqueue reminder %s: %w", job.ID, err)
		}
	}
	return nil
}

func reminderLabel(minutesBefore int) string {
	if minutesBefore == 60 {
		return "1 hour"
	}
	return fmt.Sprintf("%d minutes", minutesBefore)
}

// CancelReminders clears every rung's pending job, called when a meeting is
// cancelled.
func (s *Scheduler) CancelReminders(ctx context.Context, meetingID string) error {
	for _, minutesBefore := range domain.ReminderLadder {
		if err := s.q.Cancel(ctx, reminderJobID(meetingID, minutesBefore)); err != nil {
			return err
		}
	}
	return nil
}
