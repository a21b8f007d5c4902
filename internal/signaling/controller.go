// Package signaling implements the Signaling Router and Room Event Bus
// (spec §4.F/§4.G): the WebSocket transport, per-meeting room membership,
// targeted offer/answer/ICE routing, and application-level event fan-out
// (chat, media toggles, hand-raise, reactions, host controls). Grounded on
// dkeye-Voice's adapters.SignalWSController dispatch-table pattern,
// generalized from raw WebRTC relay to opaque signaling pass-through.
package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/auth"
	"github.com/dkeye/confcore/internal/core"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/dkeye/confcore/internal/store/cache"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Controller owns the WebSocket endpoint and every socket-originated
// operation from spec §4.F/§4.G.
type Controller struct {
	rooms    *core.RoomManager
	registry *core.Registry
	verifier *auth.Verifier
	meetings *meeting.Service
	cache    cache.Store
	log      zerolog.Logger

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(rooms *core.RoomManager, registry *core.Registry, verifier *auth.Verifier, meetings *meeting.Service, c cache.Store, log zerolog.Logger, readLimit int64, pingPeriod time.Duration) *Controller {
	if readLimit <= 0 {
		readLimit = 32 * 1024
	}
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		rooms:      rooms,
		registry:   registry,
		verifier:   verifier,
		meetings:   meetings,
		cache:      c,
		log:        log.With().Str("module", "signaling").Logger(),
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
	}
}

// HandleWS upgrades the connection after verifying the handshake token.
// Auth failure closes the socket immediately with "Authentication error"
// (spec §7 "User-visible failure behavior").
func (ctl *Controller) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Sec-WebSocket-Protocol")
	}

	user, err := ctl.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		conn, upErr := upgrader.Upgrade(c.Writer, c.Request, nil)
		if upErr != nil {
			return
		}
		_ = conn.WriteJSON(map[string]string{"type": "error", "message": "Authentication error"})
		conn.Close()
		return
	}

	wsRaw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	wsRaw.SetReadLimit(ctl.readLimit)

	conn := newWSConn(wsRaw)
	sid := core.SocketID(uuid.NewString())
	ctl.registry.Bind(sid, user.ID, user.Profile.DisplayName, conn)

	go conn.writePump()
	go ctl.readPump(sid, conn, user)
}

func (ctl *Controller) readPump(sid core.SocketID, conn *wsConn, user *domain.User) {
	defer ctl.handleDisconnect(sid, conn)

	pinger := time.NewTicker(ctl.pingPeriod)
	defer pinger.Stop()
	go func() {
		for range pinger.C {
			if err := conn.TrySend([]byte(`{"type":"ping"}`)); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}
		ctl.dispatch(context.Background(), sid, conn, user, data)
	}
}

type envelope struct {
	Type string `json:"type"`
}

func (ctl *Controller) dispatch(ctx context.Context, sid core.SocketID, conn *wsConn, user *domain.User, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ctl.log.Warn().Err(err).Str("sid", string(sid)).Msg("bad envelope")
		return
	}

	switch env.Type {
	case "join-meeting":
		ctl.handleJoinMeeting(ctx, sid, conn, user, data)
	case "offer", "answer", "ice-candidate":
		ctl.handleRoute(sid, user, env.Type, data)
	case "toggle-audio":
		ctl.handleToggle(sid, user, "audio-toggled", "audioEnabled", data)
	case "toggle-video":
		ctl.handleToggle(sid, user, "video-toggled", "videoEnabled", data)
	case "screen-share":
		ctl.handleToggle(sid, user, "screen-share", "screenSharing", data)
	case "raise-hand":
		ctl.handleRaiseHand(sid, user, data)
	case "reaction":
		ctl.handleReaction(sid, user, data)
	case "chat-message":
		ctl.handleChatMessage(ctx, sid, user, data)
	case "mute-participant":
		ctl.handleHostControl(ctx, sid, user, "muted-by-host", data)
	case "remove-participant":
		ctl.handleRemoveParticipant(ctx, sid, user, data)
	case "leave-meeting":
		ctl.handleLeaveMeeting(ctx, sid, user)
	default:
		ctl.log.Debug().Str("type", env.Type).Msg("unhandled signaling event")
	}
}

func (ctl *Controller) sendJSON(conn *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctl.log.Error().Err(err).Msg("marshal outbound frame")
		return
	}
	_ = conn.TrySend(b)
}

func (ctl *Controller) handleDisconnect(sid core.SocketID, conn *wsConn) {
	uid, _, meetingID, _, _ := ctl.registry.Get(sid)
	if meetingID != "" {
		if room, ok := ctl.rooms.Get(meetingID); ok {
			room.RemoveMember(sid)
			ctl.sendToRoom(room, "", map[string]any{
				"type":     "user-left",
				"socketId": sid,
				"odId":     uid,
			})
			ctl.rooms.DropIfEmpty(meetingID)
		}
	}
	ctl.registry.Unbind(sid)
	conn.Close()
}

// BroadcastChatMessage fans a chat-message event out to every socket
// currently in the room, in the identical shape handleChatMessage emits for
// the socket-originated path. The HTTP chat handlers call this after
// meeting.Service.PostChat succeeds so REST-originated messages fan out
// identically (spec §4.G). A no-op if nobody is connected to the room.
func (ctl *Controller) BroadcastChatMessage(meetingID string, msg *domain.ChatMessage) {
	room, ok := ctl.rooms.Get(meetingID)
	if !ok {
		return
	}
	ctl.sendToRoom(room, "", map[string]any{
		"type":      "chat-message",
		"meetingId": meetingID,
		"message":   msg,
	})
}

func (ctl *Controller) sendToRoom(room *core.Room, from core.SocketID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctl.log.Error().Err(err).Msg("marshal room broadcast")
		return
	}
	if from == "" {
		room.BroadcastAll(b)
		return
	}
	room.Broadcast(from, b)
}

func (ctl *Controller) apperrMessage(conn *wsConn, err error) {
	ae := apperr.As(err)
	ctl.sendJSON(conn, map[string]any{"type": "error", "message": ae.Message})
}
