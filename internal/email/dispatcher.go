package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/textproto"

	"github.com/dkeye/confcore/internal/domain"
)

// MinutesRepository is the subset of the minutes store the dispatcher needs
// to record per-recipient delivery status.
type MinutesRepository interface {
	FindByMeetingID(ctx context.Context, meetingID string) (*domain.MeetingMinutes, error)
	UpdateRecipientStatus(ctx context.Context, meetingID, email string, status domain.RecipientStatus, sendErr string) error
}

// Dispatcher is the queue.Handler-shaped entry point for the "email" queue's
// two job types (spec §4.J).
type Dispatcher struct {
	sender  *Sender
	minutes MinutesRepository
}

func NewDispatcher(sender *Sender, minutes MinutesRepository) *Dispatcher {
	return &Dispatcher{sender: sender, minutes: minutes}
}

// HandleJob dispatches on job.Type; the queue worker calls this directly as
// its Handler. A 4xx/5xx reply from the SMTP server is a permanent failure:
// it is acked (nil) so the queue does not retry it; every other error is
// returned and retried.
func (d *Dispatcher) HandleJob(ctx context.Context, job domain.Job) error {
	var err error
	switch job.Type {
	case domain.JobTypeEmailReminder:
		err = d.handleReminder(ctx, job)
	case domain.JobTypeEmailMinutes:
		err = d.handleMinutes(ctx, job)
	default:
		return fmt.Errorf("email dispatcher: unknown job type %q", job.Type)
	}
	var smtpErr *textproto.Error
	if errors.As(err, &smtpErr) && smtpErr.Code >= 400 {
		return nil
	}
	return err
}

func (d *Dispatcher) handleReminder(ctx context.Context, job domain.Job) error {
	var p domain.EmailReminderPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}
	body, err := RenderReminder(ReminderData{
		ToName:       p.ToName,
		MeetingTitle: p.MeetingTitle,
		MeetingCode:  p.MeetingCode,
		ScheduledFor: p.ScheduledFor.Format("Mon Jan 2, 15:04 MST"),
		TimeLabel:    p.TimeLabel,
	})
	if err != nil {
		return fmt.Errorf("render reminder: %w", err)
	}
	return d.sender.Send(p.ToEmail, fmt.Sprintf("Reminder: %s starts soon", p.MeetingTitle), body)
}

func (d *Dispatcher) handleMinutes(ctx context.Context, job domain.Job) error {
	var p domain.EmailMinutesPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode minutes payload: %w", err)
	}

	rec, err := d.minutes.FindByMeetingID(ctx, p.MeetingID)
	if err != nil {
		return fmt.Errorf("load minutes: %w", err)
	}

	items := make([]MinutesActionItem, 0, len(rec.ActionItems))
	for _, a := range rec.ActionItems {
		items = append(items, MinutesActionItem{Description: a.Description, Owner: a.Owner, Priority: string(a.Priority)})
	}
	body, err := RenderMinutes(MinutesData{
		ToName:      p.ToName,
		Title:       rec.Title,
		Summary:     rec.Summary,
		ActionItems: items,
	})
	if err != nil {
		return fmt.Errorf("render minutes: %w", err)
	}

	sendErr := d.sender.Send(p.ToEmail, fmt.Sprintf("Meeting minutes: %s", rec.Title), body)
	status := domain.RecipientSent
	errMsg := ""
	if sendErr != nil {
		status = domain.RecipientFailed
		errMsg = sendErr.Error()
	}
	if err := d.minutes.UpdateRecipientStatus(ctx, p.MeetingID, p.ToEmail, status, errMsg); err != nil {
		return fmt.Errorf("record recipient status: %w", err)
	}
	return sendErr
}
