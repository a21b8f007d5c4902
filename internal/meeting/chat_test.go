package meeting

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
)

func TestPostChat_PersistsMessageThroughRepository(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	msg, err := svc.PostChat(context.Background(), m.MeetingID, domain.ChatSender{ID: hostID, Username: "host"}, "hello room", nil)
	if err != nil {
		t.Fatalf("PostChat: %v", err)
	}
	if msg.Type != domain.ChatText || msg.Message != "hello room" {
		t.Fatalf("msg = %+v, want text message", msg)
	}

	updated, err := svc.GetMeeting(context.Background(), m.MeetingID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if len(updated.Chat) != 1 || updated.Chat[0].ID != msg.ID {
		t.Fatalf("chat log = %+v, want the posted message persisted", updated.Chat)
	}
}

func TestPostChat_RejectsNonHostWhenChatDisabled(t *testing.T) {
	svc, _, users, _ := newTestService()
	settings := domain.DefaultSettings()
	settings.EnableChat = false
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Settings: &settings})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	users.users["attendee-1"] = &domain.User{ID: "attendee-1"}
	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", ""); err != nil {
		t.Fatalf("join attendee-1: %v", err)
	}

	_, err = svc.PostChat(context.Background(), m.MeetingID, domain.ChatSender{ID: "attendee-1", Username: "attendee"}, "hi", nil)
	if apperr.As(err).Kind != apperr.Forbidden {
		t.Fatalf("err = %v, want Forbidden", err)
	}
}

func TestPostChat_HostCanSendEvenWhenChatDisabled(t *testing.T) {
	svc, _, _, _ := newTestService()
	settings := domain.DefaultSettings()
	settings.EnableChat = false
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Settings: &settings})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	if _, err := svc.PostChat(context.Background(), m.MeetingID, domain.ChatSender{ID: hostID, Username: "host"}, "hi", nil); err != nil {
		t.Fatalf("host PostChat: %v", err)
	}
}

func TestAppendTranscript_DedupesOnSpeakerAndStartTime(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	start := time.Now()
	seg := domain.TranscriptSegment{SpeakerID: hostID, SpeakerName: "host", Text: "hello", StartTime: start}

	if _, err := svc.AppendTranscript(context.Background(), m.MeetingID, seg); err != nil {
		t.Fatalf("first AppendTranscript: %v", err)
	}
	updated, err := svc.AppendTranscript(context.Background(), m.MeetingID, seg)
	if err != nil {
		t.Fatalf("second AppendTranscript: %v", err)
	}
	if len(updated.Transcripts) != 1 {
		t.Fatalf("Transcripts = %+v, want exactly one entry after duplicate append", updated.Transcripts)
	}
}

func TestAppendTranscript_KeepsDistinctTurnsFromSameSpeaker(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	start := time.Now()

	if _, err := svc.AppendTranscript(context.Background(), m.MeetingID, domain.TranscriptSegment{SpeakerID: hostID, StartTime: start, Text: "first"}); err != nil {
		t.Fatalf("first AppendTranscript: %v", err)
	}
	updated, err := svc.AppendTranscript(context.Background(), m.MeetingID, domain.TranscriptSegment{SpeakerID: hostID, StartTime: start.Add(time.Second), Text: "second"})
	if err != nil {
		t.Fatalf("second AppendTranscript: %v", err)
	}
	if len(updated.Transcripts) != 2 {
		t.Fatalf("Transcripts = %+v, want two distinct turns", updated.Transcripts)
	}
}

func TestRemoveParticipant_RequiresHost(t *testing.T) {
	svc, _, users, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	users.users["attendee-1"] = &domain.User{ID: "attendee-1"}
	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", ""); err != nil {
		t.Fatalf("join attendee-1: %v", err)
	}

	_, err = svc.RemoveParticipant(context.Background(), m.MeetingID, "attendee-1", hostID)
	if apperr.As(err).Kind != apperr.Forbidden {
		t.Fatalf("err = %v, want Forbidden", err)
	}
}

func TestRemoveParticipant_MarksTargetRemovedAndUpdatesStats(t *testing.T) {
	svc, _, users, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	users.users["attendee-1"] = &domain.User{ID: "attendee-1"}
	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", ""); err != nil {
		t.Fatalf("join attendee-1: %v", err)
	}

	updated, err := svc.RemoveParticipant(context.Background(), m.MeetingID, hostID, "attendee-1")
	if err != nil {
		t.Fatalf("RemoveParticipant: %v", err)
	}
	target := updated.FindParticipant("attendee-1")
	if target.Status != domain.ParticipantRemoved {
		t.Fatalf("target status = %q, want removed", target.Status)
	}
	if updated.Statistics.TotalParticipants != 1 {
		t.Fatalf("TotalParticipants = %d, want 1 (host only)", updated.Statistics.TotalParticipants)
	}
}
