package signaling

import (
	"context"
	"encoding/json"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/core"
	"github.com/dkeye/confcore/internal/domain"
)

type joinMeetingPayload struct {
	MeetingID string `json:"meetingId"`
}

// handleJoinMeeting implements spec §4.F's join-meeting inbound event: the
// socket joins the room, presence is recorded, the rest of the room learns
// about the new member, and the joiner alone receives the existing-
// participants snapshot it needs to initiate offers (glare-free asymmetry).
func (ctl *Controller) handleJoinMeeting(ctx context.Context, sid core.SocketID, conn *wsConn, user *domain.User, data []byte) {
	var p joinMeetingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.log.Warn().Err(err).Msg("bad join-meeting payload")
		return
	}
	if p.MeetingID == "" {
		ctl.apperrMessage(conn, apperr.New(apperr.BadRequest, "meetingId is required"))
		return
	}

	m, err := ctl.meetings.GetMeeting(ctx, p.MeetingID)
	if err != nil {
		ctl.apperrMessage(conn, err)
		return
	}
	if m.Status == domain.StatusEnded || m.Status == domain.StatusCancelled {
		ctl.apperrMessage(conn, apperr.New(apperr.Gone, "meeting has ended"))
		return
	}

	ctl.registry.SetMeeting(sid, p.MeetingID)
	room := ctl.rooms.GetOrCreate(p.MeetingID)
	room.AddMember(&core.Member{
		SocketID: sid,
		UserID:   user.ID,
		Username: user.Profile.DisplayName,
		Conn:     conn,
	})

	if ctl.cache != nil {
		ctl.cache.AddOnlineUser(p.MeetingID, string(user.ID), string(sid))
	}

	ctl.sendToRoom(room, sid, map[string]any{
		"type":     "user-joined",
		"socketId": sid,
		"odId":     user.ID,
		"username": user.Profile.DisplayName,
	})

	ctl.sendJSON(conn, map[string]any{
		"type":    "existing-participants",
		"members": room.SnapshotDTO(sid),
	})
}

// handleRoute implements spec §4.F's targeted unicast for offer/answer/
// ice-candidate: resolve `to` by userID first, then literal socketID,
// stamp `from`, and silently drop if the target is gone. The server never
// parses the SDP/ICE body itself, only re-wraps the raw envelope.
func (ctl *Controller) handleRoute(sid core.SocketID, user *domain.User, eventType string, raw []byte) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		ctl.log.Warn().Err(err).Msg("bad routed payload")
		return
	}
	env["from"], _ = json.Marshal(user.ID)

	var to string
	if raw, ok := env["to"]; ok {
		_ = json.Unmarshal(raw, &to)
	}

	out, err := json.Marshal(env)
	if err != nil {
		return
	}

	if to == "" {
		room.Broadcast(sid, out)
		return
	}

	if target, ok := room.FindByUser(domain.UserID(to)); ok {
		_ = target.Conn.TrySend(out)
		return
	}
	if target, ok := room.Get(core.SocketID(to)); ok {
		_ = target.Conn.TrySend(out)
	}
	// target not found: dropped silently, client reconciles via REST.
}

// handleLeaveMeeting is the explicit leave-meeting event; unlike a hard
// disconnect it keeps the socket open for a subsequent join-meeting.
func (ctl *Controller) handleLeaveMeeting(ctx context.Context, sid core.SocketID, user *domain.User) {
	meetingID, ok := ctl.registry.MeetingOf(sid)
	if !ok {
		return
	}
	room, ok := ctl.rooms.Get(meetingID)
	if ok {
		room.RemoveMember(sid)
		ctl.sendToRoom(room, "", map[string]any{
			"type":     "user-left",
			"socketId": sid,
			"odId":     user.ID,
		})
		ctl.rooms.DropIfEmpty(meetingID)
	}
	ctl.registry.ClearMeeting(sid)

	if _, err := ctl.meetings.LeaveMeeting(ctx, meetingID, user.ID); err != nil {
		ctl.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("leaveMeeting state update failed")
	}
}
