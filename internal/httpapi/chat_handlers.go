package httpapi

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/gin-gonic/gin"
)

const maxChatUploadBytes = 10 << 20 // 10MB, spec §6 POST /api/chat/upload

func senderFor(u *domain.User) domain.ChatSender {
	return domain.ChatSender{ID: u.ID, Username: u.Username, Avatar: u.Profile.AvatarURL}
}

type postChatMessageRequest struct {
	MeetingID string `json:"meetingId"`
	Message   string `json:"message"`
}

func (h *handlers) postChatMessage(c *gin.Context) {
	var req postChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" || req.Message == "" {
		fail(c, apperr.New(apperr.BadRequest, "meetingId and message are required"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.GetMeeting(ctx, req.MeetingID)
	if err != nil {
		fail(c, err)
		return
	}
	if m.FindParticipant(currentUser(c).ID) == nil {
		fail(c, apperr.New(apperr.Forbidden, "must have joined the meeting to chat"))
		return
	}

	msg, err := h.deps.Meetings.PostChat(ctx, req.MeetingID, senderFor(currentUser(c)), req.Message, nil)
	if err != nil {
		fail(c, err)
		return
	}
	h.deps.Signal.BroadcastChatMessage(req.MeetingID, msg)
	ok(c, http.StatusCreated, "message sent", msg)
}

var allowedChatExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".txt": true, ".doc": true, ".docx": true, ".zip": true,
}

func (h *handlers) uploadChatFile(c *gin.Context) {
	meetingID := c.PostForm("meetingId")
	if meetingID == "" {
		fail(c, apperr.New(apperr.BadRequest, "meetingId is required"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.New(apperr.BadRequest, "file is required"))
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedChatExt[ext] {
		fail(c, apperr.New(apperr.BadRequest, "unsupported file type"))
		return
	}

	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		fail(c, err)
		return
	}
	if m.FindParticipant(currentUser(c).ID) == nil {
		fail(c, apperr.New(apperr.Forbidden, "must have joined the meeting to upload"))
		return
	}

	src, err := fh.Open()
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "open upload", err))
		return
	}
	defer src.Close()

	saved, err := h.deps.Files.Save(src, strings.TrimPrefix(ext, "."), maxChatUploadBytes)
	if err != nil {
		fail(c, err)
		return
	}

	file := &domain.ChatFile{
		URL:      saved.URL,
		Filename: fh.Filename,
		Size:     saved.Size,
		MimeType: fh.Header.Get("Content-Type"),
	}
	msg, err := h.deps.Meetings.PostChat(ctx, meetingID, senderFor(currentUser(c)), "", file)
	if err != nil {
		fail(c, err)
		return
	}
	h.deps.Signal.BroadcastChatMessage(meetingID, msg)
	ok(c, http.StatusCreated, "file uploaded", msg)
}

func (h *handlers) listChat(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	meetingID := c.Param("meetingId")
	m, err := h.deps.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		fail(c, err)
		return
	}
	if m.FindParticipant(currentUser(c).ID) == nil {
		fail(c, apperr.New(apperr.Forbidden, "must have joined the meeting to view chat"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	// reverse-chronological page: append-only log, newest first.
	chat := m.Chat
	out := make([]domain.ChatMessage, 0, limit)
	for i := len(chat) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, chat[i])
	}
	ok(c, http.StatusOK, "", out)
}
