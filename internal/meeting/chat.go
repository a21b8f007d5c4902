package meeting

import (
	"context"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/google/uuid"
)

// PostChat persists a chat message via Repository.pushChat. Both the socket
// path and the HTTP chat endpoint call this so the two surfaces fan out the
// identical chat-message event (spec §4.G) and enforce the identical
// enableChat gate (spec §8: a non-host send fails Forbidden when the
// meeting has chat disabled; the host can always send).
func (s *Service) PostChat(ctx context.Context, meetingID string, sender domain.ChatSender, text string, file *domain.ChatFile) (*domain.ChatMessage, error) {
	m, err := s.repo.FindByPublicID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !DerivePermissions(m, m.FindParticipant(sender.ID), sender.ID).CanChat {
		return nil, apperr.New(apperr.Forbidden, "chat is disabled for this meeting")
	}

	msgType := domain.ChatText
	if file != nil {
		msgType = domain.ChatFileType
	}
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Message:   text,
		Type:      msgType,
		File:      file,
		Timestamp: time.Now(),
	}
	if err := s.repo.PushChat(ctx, meetingID, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AppendTranscript records one speaker turn, deduplicating on the composite
// key (speakerID, startTime): a segment is dropped only when both the
// speaker and the exact start time match an existing one, so two speakers
// starting at the same instant are both kept. Start times that differ by
// any amount, however small, count as different turns.
func (s *Service) AppendTranscript(ctx context.Context, meetingID string, seg domain.TranscriptSegment) (*domain.Meeting, error) {
	return s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		for _, existing := range m.Transcripts {
			if existing.SpeakerID == seg.SpeakerID && existing.StartTime.Equal(seg.StartTime) {
				return nil
			}
		}
		m.Transcripts = append(m.Transcripts, seg)
		return nil
	})
}

// AuthorizeHostControl gates host-only control actions such as muting a
// participant; it does not mutate stored
// media state (the server never persists that), only authorizes the caller
// before the signaling layer notifies the target socket.
func (s *Service) AuthorizeHostControl(m *domain.Meeting, callerID domain.UserID) error {
	if !m.IsHost(callerID) {
		return apperr.New(apperr.Forbidden, "host privileges required")
	}
	return nil
}

// RemoveParticipant marks a participant removed (host-only), used by the
// remove-participant host control before the target socket is notified.
func (s *Service) RemoveParticipant(ctx context.Context, meetingID string, callerID, targetID domain.UserID) (*domain.Meeting, error) {
	return s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		if !m.IsHost(callerID) {
			return apperr.New(apperr.Forbidden, "host privileges required")
		}
		p := m.FindParticipant(targetID)
		if p == nil {
			return apperr.New(apperr.NotFound, "participant not found")
		}
		now := time.Now()
		p.Status = domain.ParticipantRemoved
		p.LeftAt = &now
		m.Statistics.TotalParticipants = m.CountJoined()
		return nil
	})
}
