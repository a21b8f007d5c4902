package httpapi

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/gin-gonic/gin"
)

const maxRecordingUploadBytes = 500 << 20 // 500MB, spec §6 POST /api/recordings/upload

var allowedRecordingExt = map[string]bool{
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true, ".mpeg": true,
}

type meetingIDRequest struct {
	MeetingID string `json:"meetingId"`
}

// requireCanRecord loads the meeting and checks the derived canRecord
// permission (spec §4.E) before a recording-control action proceeds.
func (h *handlers) requireCanRecord(c *gin.Context, meetingID string) bool {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		fail(c, err)
		return false
	}
	callerID := currentUser(c).ID
	perms := meeting.DerivePermissions(m, m.FindParticipant(callerID), callerID)
	if !perms.CanRecord {
		fail(c, apperr.New(apperr.Forbidden, "recording permission required"))
		return false
	}
	return true
}

func (h *handlers) startRecording(c *gin.Context) {
	var req meetingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" {
		fail(c, apperr.New(apperr.BadRequest, "meetingId is required"))
		return
	}
	if !h.requireCanRecord(c, req.MeetingID) {
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	rec, err := h.deps.Recordings.Start(ctx, req.MeetingID, currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "recording started", rec)
}

func (h *handlers) stopRecording(c *gin.Context) {
	var req meetingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MeetingID == "" {
		fail(c, apperr.New(apperr.BadRequest, "meetingId is required"))
		return
	}
	if !h.requireCanRecord(c, req.MeetingID) {
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	rec, err := h.deps.Recordings.Stop(ctx, req.MeetingID, currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "recording stopped", rec)
}

func (h *handlers) uploadRecording(c *gin.Context) {
	meetingID := c.PostForm("meetingId")
	if meetingID == "" {
		fail(c, apperr.New(apperr.BadRequest, "meetingId is required"))
		return
	}
	if !h.requireCanRecord(c, meetingID) {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.New(apperr.BadRequest, "file is required"))
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedRecordingExt[ext] {
		fail(c, apperr.New(apperr.BadRequest, "unsupported recording format"))
		return
	}

	src, err := fh.Open()
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, "open upload", err))
		return
	}
	defer src.Close()

	saved, err := h.deps.Files.Save(src, strings.TrimPrefix(ext, "."), maxRecordingUploadBytes)
	if err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	rec, err := h.deps.Recordings.AttachUpload(ctx, meetingID, saved.URL, saved.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "recording uploaded", rec)
}

func (h *handlers) myRecordings(c *gin.Context) {
	page, limit := pagingParams(c)
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	recs, total, err := h.deps.Recordings.ListForUser(ctx, currentUser(c).ID, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"recordings": recs, "total": total, "page": page, "limit": limit})
}
