package signaling

import (
	"context"
	"encoding/json"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/core"
	"github.com/dkeye/confcore/internal/domain"
)

// handleToggle re-emits a media-state toggle to the room. The server never
// persists media state; it only relays what the client reports (spec §4.G).
func (ctl *Controller) handleToggle(sid core.SocketID, user *domain.User, outType, flagField string, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}
	var p map[string]json.RawMessage
	_ = json.Unmarshal(raw, &p)
	var flagVal any
	if v, ok := p[flagField]; ok {
		_ = json.Unmarshal(v, &flagVal)
	}
	ctl.sendToRoom(room, "", map[string]any{
		"type":      outType,
		"meetingId": meetingID,
		flagField:   flagVal,
		"userId":    user.ID,
	})
}

type raiseHandPayload struct {
	Raised bool   `json:"raised"`
	OdID   string `json:"odId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

func (ctl *Controller) handleRaiseHand(sid core.SocketID, user *domain.User, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}
	var p raiseHandPayload
	_ = json.Unmarshal(raw, &p)

	subject := p.OdID
	if subject == "" {
		subject = p.UserID
	}
	if subject == "" {
		subject = string(user.ID)
	}

	ctl.sendToRoom(room, "", map[string]any{
		"type":      "hand-raised",
		"meetingId": meetingID,
		"raised":    p.Raised,
		"odId":      subject,
		"username":  user.Profile.DisplayName,
	})
}

type reactionPayload struct {
	Emoji string `json:"emoji"`
}

func (ctl *Controller) handleReaction(sid core.SocketID, user *domain.User, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}
	var p reactionPayload
	_ = json.Unmarshal(raw, &p)

	ctl.sendToRoom(room, "", map[string]any{
		"type":      "reaction",
		"meetingId": meetingID,
		"emoji":     p.Emoji,
		"userId":    user.ID,
	})
}

type chatMessagePayload struct {
	Message string           `json:"message"`
	File    *domain.ChatFile `json:"file,omitempty"`
}

// handleChatMessage persists via meeting.Service.PostChat then broadcasts
// chat-message to the full room including the sender, so the socket path
// and the HTTP chat endpoint fan out an identical event (spec §4.G).
func (ctl *Controller) handleChatMessage(ctx context.Context, sid core.SocketID, user *domain.User, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	var p chatMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	sender := domain.ChatSender{ID: user.ID, Username: user.Profile.DisplayName, Avatar: user.Profile.AvatarURL}
	msg, err := ctl.meetings.PostChat(ctx, meetingID, sender, p.Message, p.File)
	if err != nil {
		ctl.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("chat persist failed")
		return
	}

	ctl.BroadcastChatMessage(meetingID, msg)
}

type hostControlPayload struct {
	TargetUserID string `json:"participantId"`
}

// handleHostControl implements mute-participant: authorize the caller as
// host, then notify only the target socket. The server does not track
// audio/video state; the target client is responsible for muting itself.
func (ctl *Controller) handleHostControl(ctx context.Context, sid core.SocketID, user *domain.User, outType string, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}
	m, err := ctl.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return
	}
	if !m.IsHost(user.ID) {
		ctl.log.Warn().Str("meeting_id", meetingID).Str("user_id", string(user.ID)).Msg("host control rejected: not host")
		return
	}

	var p hostControlPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	target, ok := room.FindByUser(domain.UserID(p.TargetUserID))
	if !ok {
		return
	}
	_ = target.Conn.TrySend(mustJSON(map[string]any{
		"type":      outType,
		"meetingId": meetingID,
	}))
}

// handleRemoveParticipant is the remove-participant host control: marks the
// participant removed in the repository, then notifies the target socket,
// which is responsible for disconnecting itself.
func (ctl *Controller) handleRemoveParticipant(ctx context.Context, sid core.SocketID, user *domain.User, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}
	var p hostControlPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	if _, err := ctl.meetings.RemoveParticipant(ctx, meetingID, user.ID, domain.UserID(p.TargetUserID)); err != nil {
		ae := apperr.As(err)
		ctl.log.Warn().Str("err", ae.Message).Msg("remove-participant rejected")
		return
	}

	if target, ok := room.FindByUser(domain.UserID(p.TargetUserID)); ok {
		_ = target.Conn.TrySend(mustJSON(map[string]any{
			"type":      "removed-from-meeting",
			"meetingId": meetingID,
		}))
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
