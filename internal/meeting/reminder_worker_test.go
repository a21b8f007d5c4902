package meeting

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/confcore/internal/domain"
)

type fakeReminderEmailEnqueuer struct {
	calls []domain.EmailReminderPayload
}

func (f *fakeReminderEmailEnqueuer) EnqueueReminderEmail(_ context.Context, payload domain.EmailReminderPayload) error {
	f.calls = append(f.calls, payload)
	return nil
}

func reminderJob(t *testing.T, meetingID, userID, label string) domain.Job {
	t.Helper()
	payload, err := json.Marshal(domain.ReminderPayload{MeetingID: meetingID, UserID: userID, TimeLabel: label})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return domain.Job{Type: domain.JobTypeReminderCheck, Payload: payload}
}

func TestReminderWorker_EnqueuesEmailForALiveMeeting(t *testing.T) {
	svc, _, users, _ := newTestService()
	m, err := svc.ScheduleMeeting(context.Background(), ScheduleInput{
		CreateInput:  CreateInput{HostUserID: hostID, Title: "kickoff"},
		ScheduledFor: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ScheduleMeeting: %v", err)
	}
	users.users[hostID] = &domain.User{ID: hostID, Email: "host@example.com", Profile: domain.UserProfile{DisplayName: "Host"}}

	emails := &fakeReminderEmailEnqueuer{}
	w := NewReminderWorker(svc, users, emails)

	err = w.HandleJob(context.Background(), reminderJob(t, m.MeetingID, string(hostID), "15 minutes"))
	if err != nil {
		t.Fatalf("HandleJob: %v", err)
	}
	if len(emails.calls) != 1 {
		t.Fatalf("calls = %v, want exactly one reminder enqueued", emails.calls)
	}
	if emails.calls[0].ToEmail != "host@example.com" || emails.calls[0].TimeLabel != "15 minutes" {
		t.Fatalf("call = %+v, unexpected payload", emails.calls[0])
	}
}

func TestReminderWorker_NoOpsWhenMeetingIsGone(t *testing.T) {
	svc, _, users, _ := newTestService()
	emails := &fakeReminderEmailEnqueuer{}
	w := NewReminderWorker(svc, users, emails)

	err := w.HandleJob(context.Background(), reminderJob(t, "ZZZ-999-ZZZ", string(hostID), "15 minutes"))
	if err != nil {
		t.Fatalf("HandleJob should no-op, got: %v", err)
	}
	if len(emails.calls) != 0 {
		t.Fatalf("calls = %v, want no reminder enqueued for a missing meeting", emails.calls)
	}
}

func TestReminderWorker_NoOpsWhenMeetingWasCancelled(t *testing.T) {
	svc, _, users, _ := newTestService()
	m, err := svc.ScheduleMeeting(context.Background(), ScheduleInput{
		CreateInput:  CreateInput{HostUserID: hostID, Title: "kickoff"},
		ScheduledFor: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ScheduleMeeting: %v", err)
	}
	if _, err := svc.CancelMeeting(context.Background(), m.MeetingID, hostID); err != nil {
		t.Fatalf("CancelMeeting: %v", err)
	}
	users.users[hostID] = &domain.User{ID: hostID, Email: "host@example.com"}

	emails := &fakeReminderEmailEnqueuer{}
	w := NewReminderWorker(svc, users, emails)

	if err := w.HandleJob(context.Background(), reminderJob(t, m.MeetingID, string(hostID), "15 minutes")); err != nil {
		t.Fatalf("HandleJob should no-op, got: %v", err)
	}
	if len(emails.calls) != 0 {
		t.Fatalf("calls = %v, want no reminder enqueued for a cancelled meeting", emails.calls)
	}
}

func TestReminderWorker_RejectsUnexpectedJobType(t *testing.T) {
	svc, _, users, _ := newTestService()
	emails := &fakeReminderEmailEnqueuer{}
	w := NewReminderWorker(svc, users, emails)

	err := w.HandleJob(context.Background(), domain.Job{Type: domain.JobTypeEmailReminder, Payload: []byte("{}")})
	if err == nil {
		t.Fatal("expected an error for a mismatched job type")
	}
}
