package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/gin-gonic/gin"
)

type meetingView struct {
	*domain.Meeting
	Permissions meeting.DerivedPermissions `json:"permissions"`
}

func withPermissions(m *domain.Meeting, callerID domain.UserID) meetingView {
	return meetingView{Meeting: m, Permissions: meeting.DerivePermissions(m, m.FindParticipant(callerID), callerID)}
}

type createMeetingRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Password        string           `json:"password"`
	Settings        *domain.Settings `json:"settings"`
	DurationMinutes int              `json:"durationMinutes"`
}

func (h *handlers) createMeeting(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.CreateMeeting(ctx, meeting.CreateInput{
		HostUserID:      currentUser(c).ID,
		Title:           req.Title,
		Description:     req.Description,
		Password:        req.Password,
		Settings:        req.Settings,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "meeting created", withPermissions(m, currentUser(c).ID))
}

type scheduleMeetingRequest struct {
	createMeetingRequest
	ScheduledFor string `json:"scheduledFor"`
}

func (h *handlers) scheduleMeeting(c *gin.Context) {
	var req scheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	scheduledFor, err := parseRFC3339(req.ScheduledFor)
	if err != nil {
		fail(c, apperr.New(apperr.BadRequest, "scheduledFor must be an RFC3339 timestamp"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.ScheduleMeeting(ctx, meeting.ScheduleInput{
		CreateInput: meeting.CreateInput{
			HostUserID:      currentUser(c).ID,
			Title:           req.Title,
			Description:     req.Description,
			Password:        req.Password,
			Settings:        req.Settings,
			DurationMinutes: req.DurationMinutes,
		},
		ScheduledFor: scheduledFor,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "meeting scheduled", withPermissions(m, currentUser(c).ID))
}

func (h *handlers) listMeetings(c *gin.Context) {
	status := domain.MeetingStatus(c.Query("status"))
	page, limit := pagingParams(c)
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	meetings, total, err := h.deps.Meetings.ListForUser(ctx, currentUser(c).ID, status, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"meetings": meetings, "total": total, "page": page, "limit": limit})
}

func (h *handlers) getMeeting(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.GetMeeting(ctx, c.Param("meetingId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", withPermissions(m, currentUser(c).ID))
}

type joinMeetingRequest struct {
	Password string `json:"password"`
}

func (h *handlers) joinMeeting(c *gin.Context) {
	var req joinMeetingRequest
	_ = c.ShouldBindJSON(&req)
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.JoinMeeting(ctx, c.Param("meetingId"), currentUser(c).ID, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "joined meeting", withPermissions(m, currentUser(c).ID))
}

func (h *handlers) leaveMeeting(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.LeaveMeeting(ctx, c.Param("meetingId"), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "left meeting", withPermissions(m, currentUser(c).ID))
}

func (h *handlers) updateSettings(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.UpdateSettings(ctx, c.Param("meetingId"), currentUser(c).ID, patch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "settings updated", withPermissions(m, currentUser(c).ID))
}

func (h *handlers) endMeeting(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.EndMeeting(ctx, c.Param("meetingId"), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "meeting ended", withPermissions(m, currentUser(c).ID))
}

func (h *handlers) cancelMeeting(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	m, err := h.deps.Meetings.CancelMeeting(ctx, c.Param("meetingId"), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "meeting cancelled", withPermissions(m, currentUser(c).ID))
}

type appendTranscriptRequest struct {
	SpeakerID   string `json:"speakerId"`
	SpeakerName string `json:"speakerName"`
	Text        string `json:"text"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

func (h *handlers) appendTranscript(c *gin.Context) {
	var req appendTranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	start, err := parseRFC3339(req.StartTime)
	if err != nil {
		fail(c, apperr.New(apperr.BadRequest, "startTime must be an RFC3339 timestamp"))
		return
	}
	end, _ := parseRFC3339(req.EndTime)

	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	meetingID := c.Param("meetingId")
	m, err := h.deps.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		fail(c, err)
		return
	}
	if m.FindParticipant(currentUser(c).ID) == nil {
		fail(c, apperr.New(apperr.Forbidden, "must have joined the meeting to append a transcript"))
		return
	}

	updated, err := h.deps.Meetings.AppendTranscript(ctx, meetingID, domain.TranscriptSegment{
		SpeakerID:   domain.UserID(req.SpeakerID),
		SpeakerName: req.SpeakerName,
		Text:        req.Text,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "transcript appended", updated.Transcripts)
}

func (h *handlers) listTranscripts(c *gin.Context) {
	ctx, cancel := withTimeout(c, defaultTimeout)
	defer cancel()

	meetingID := c.Param("meetingId")
	m, err := h.deps.Meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		fail(c, err)
		return
	}
	if m.FindParticipant(currentUser(c).ID) == nil {
		fail(c, apperr.New(apperr.Forbidden, "must have joined the meeting to view transcripts"))
		return
	}
	ok(c, http.StatusOK, "", m.Transcripts)
}

// iceServer mirrors spec §6's ICE config response shape.
type iceServer struct {
	URLs       string `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

func (h *handlers) iceServers(c *gin.Context) {
	servers := make([]iceServer, 0, len(h.deps.Config.STUNURLs)+1)
	for _, u := range h.deps.Config.STUNURLs {
		servers = append(servers, iceServer{URLs: u})
	}
	if h.deps.Config.TURNServerURL != "" {
		servers = append(servers, iceServer{
			URLs:       h.deps.Config.TURNServerURL,
			Username:   h.deps.Config.TURNUsername,
			Credential: h.deps.Config.TURNCredential,
		})
	}
	ok(c, http.StatusOK, "", gin.H{"iceServers": servers})
}

func pagingParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
