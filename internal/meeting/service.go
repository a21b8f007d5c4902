// Package meeting implements the Meeting State Machine (spec §4.E): the
// authoritative lifecycle, join/leave semantics with host succession, and
// permission derivation, all persisted through Repository.UpdateAtomic so
// invariants hold across concurrent joins and leaves.
package meeting

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
)

// Repository is the subset of the Meeting Repository the state machine
// depends on.
type Repository interface {
	FindByPublicID(ctx context.Context, meetingID string) (*domain.Meeting, error)
	FindByID(ctx context.Context, id string) (*domain.Meeting, error)
	Insert(ctx context.Context, m *domain.Meeting) error
	UpdateAtomic(ctx context.Context, meetingID string, mutate func(*domain.Meeting) error) (*domain.Meeting, error)
	ListForUser(ctx context.Context, userID domain.UserID, status domain.MeetingStatus, page, limit int) ([]*domain.Meeting, int64, error)
	PushChat(ctx context.Context, meetingID string, msg domain.ChatMessage) error
}

// UserStore is the subset of user persistence the state machine needs to
// keep meeting/attendance statistics current.
type UserStore interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// ReminderScheduler decouples the state machine from the queue package's
// concrete Scheduler.
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, meetingID string, scheduledFor time.Time, hostUserID string) error
	CancelReminders(ctx context.Context, meetingID string) error
}

type Service struct {
	repo      Repository
	users     UserStore
	scheduler ReminderScheduler
}

func NewService(repo Repository, users UserStore, scheduler ReminderScheduler) *Service {
	return &Service{repo: repo, users: users, scheduler: scheduler}
}

// GetMeeting loads a meeting by its public code, used by callers (the
// signaling router, HTTP handlers) that only need a read.
func (s *Service) GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error) {
	return s.repo.FindByPublicID(ctx, meetingID)
}

// ListForUser exposes Repository.ListForUser for the HTTP "my meetings" endpoint.
func (s *Service) ListForUser(ctx context.Context, userID domain.UserID, status domain.MeetingStatus, page, limit int) ([]*domain.Meeting, int64, error) {
	return s.repo.ListForUser(ctx, userID, status, page, limit)
}

type CreateInput struct {
	HostUserID      domain.UserID
	Title           string
	Description     string
	Password        string
	Settings        *domain.Settings
	DurationMinutes int
}

// CreateMeeting mints an instant meeting: the host is seeded as the first
// joined participant and the meeting is immediately usable.
func (s *Service) CreateMeeting(ctx context.Context, in CreateInput) (*domain.Meeting, error) {
	m, err := s.newMeetingShell(ctx, in)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	m.Status = domain.StatusOngoing
	m.Participants = []domain.Participant{{
		UserID:   in.HostUserID,
		JoinedAt: now,
		Role:     domain.RoleHost,
		Status:   domain.ParticipantJoined,
	}}
	m.Statistics.PeakParticipants = 1
	m.Statistics.TotalParticipants = 1

	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	if err := s.bumpHostStats(ctx, in.HostUserID); err != nil {
		return nil, err
	}
	return m, nil
}

type ScheduleInput struct {
	CreateInput
	ScheduledFor time.Time
}

// ScheduleMeeting creates a meeting for a future scheduledFor, seeds the
// host as invited (not yet joined), and arms the reminder ladder.
func (s *Service) ScheduleMeeting(ctx context.Context, in ScheduleInput) (*domain.Meeting, error) {
	if !in.ScheduledFor.After(time.Now()) {
		return nil, apperr.New(apperr.BadRequest, "scheduledFor must be in the future")
	}
	m, err := s.newMeetingShell(ctx, in.CreateInput)
	if err != nil {
		return nil, err
	}
	m.Status = domain.StatusScheduled
	m.ScheduledFor = in.ScheduledFor
	m.DurationMinutes = in.DurationMinutes
	m.Participants = []domain.Participant{{
		UserID: in.HostUserID,
		Role:   domain.RoleHost,
		Status: domain.ParticipantInvited,
	}}

	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleReminders(ctx, m.MeetingID, in.ScheduledFor, string(in.HostUserID)); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "schedule reminders", err)
		}
	}
	return m, nil
}

func (s *Service) newMeetingShell(ctx context.Context, in CreateInput) (*domain.Meeting, error) {
	code, err := GenerateID(ctx, func(ctx context.Context, code string) (bool, error) {
		_, err := s.repo.FindByPublicID(ctx, code)
		if err != nil {
			if ae := apperr.As(err); ae.Kind == apperr.NotFound {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generate meeting id", err)
	}

	settings := domain.DefaultSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	return &domain.Meeting{
		ID:              code,
		MeetingID:       code,
		Title:           in.Title,
		Description:     in.Description,
		HostUserID:      in.HostUserID,
		Password:        in.Password,
		DurationMinutes: in.DurationMinutes,
		Settings:        settings,
	}, nil
}

func (s *Service) bumpHostStats(ctx context.Context, hostID domain.UserID) error {
	u, err := s.users.FindByID(ctx, hostID)
	if err != nil {
		return err
	}
	u.Statistics.MeetingsHosted++
	u.Statistics.TotalMeetings++
	return s.users.Update(ctx, u)
}

func (s *Service) bumpAttendeeStats(ctx context.Context, userID domain.UserID) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	u.Statistics.MeetingsAttended++
	u.Statistics.TotalMeetings++
	return s.users.Update(ctx, u)
}

// JoinMeeting implements spec §4.E's numbered join algorithm.
func (s *Service) JoinMeeting(ctx context.Context, meetingID string, userID domain.UserID, password string) (*domain.Meeting, error) {
	preview, err := s.repo.FindByPublicID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if preview.Status == domain.StatusEnded || preview.Status == domain.StatusCancelled {
		return nil, apperr.New(apperr.Gone, "meeting has ended")
	}
	if preview.Settings.RequirePassword && password != preview.Password {
		return nil, apperr.New(apperr.Unauthenticated, "incorrect meeting password")
	}

	isNewJoiner := preview.FindParticipant(userID) == nil

	updated, err := s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		if m.Status == domain.StatusEnded || m.Status == domain.StatusCancelled {
			return apperr.New(apperr.Gone, "meeting has ended")
		}
		p := m.FindParticipant(userID)
		if p != nil && p.Status == domain.ParticipantJoined {
			return nil // idempotent success, count unchanged
		}
		if m.CountJoined() >= m.Settings.MaxParticipants {
			return apperr.New(apperr.ResourceExhausted, "meeting is full")
		}
		if p != nil {
			p.Status = domain.ParticipantJoined
			now := time.Now()
			p.JoinedAt = now
			p.LeftAt = nil
		} else {
			m.Participants = append(m.Participants, domain.Participant{
				UserID:   userID,
				JoinedAt: time.Now(),
				Role:     domain.RoleParticipant,
				Status:   domain.ParticipantJoined,
			})
		}
		joined := m.CountJoined()
		if joined > m.Statistics.PeakParticipants {
			m.Statistics.PeakParticipants = joined
		}
		m.Statistics.TotalParticipants = joined
		if m.Status == domain.StatusScheduled {
			m.Status = domain.StatusOngoing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if isNewJoiner {
		if err := s.bumpAttendeeStats(ctx, userID); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// LeaveMeeting implements spec §4.E's leave + host succession algorithm.
func (s *Service) LeaveMeeting(ctx context.Context, meetingID string, userID domain.UserID) (*domain.Meeting, error) {
	return s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		p := m.FindParticipant(userID)
		if p == nil || p.Status != domain.ParticipantJoined {
			return apperr.New(apperr.FailedPrecondition, "not currently joined")
		}
		now := time.Now()
		wasHost := p.Role == domain.RoleHost
		p.Status = domain.ParticipantLeft
		p.LeftAt = &now

		if wasHost {
			if successor := pickSuccessor(m); successor != nil {
				successor.Role = domain.RoleHost
				p.Role = domain.RoleParticipant
				m.HostUserID = successor.UserID
			}
		}

		joined := m.CountJoined()
		m.Statistics.TotalParticipants = joined
		if joined == 0 {
			m.Status = domain.StatusEnded
			m.Statistics.TotalDuration = computeDuration(m)
		}
		return nil
	})
}

// pickSuccessor returns the first joined co-host in join order, else the
// first joined participant in join order, else nil.
func pickSuccessor(m *domain.Meeting) *domain.Participant {
	candidates := make([]*domain.Participant, 0, len(m.Participants))
	for i := range m.Participants {
		p := &m.Participants[i]
		if p.Status == domain.ParticipantJoined && p.Role == domain.RoleCoHost {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		for i := range m.Participants {
			p := &m.Participants[i]
			if p.Status == domain.ParticipantJoined && p.Role == domain.RoleParticipant {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].JoinedAt.Before(candidates[j].JoinedAt)
	})
	return candidates[0]
}

func computeDuration(m *domain.Meeting) int {
	base := m.ScheduledFor
	if base.IsZero() {
		base = m.CreatedAt
	}
	if base.IsZero() {
		return 0
	}
	return int(math.Round(time.Since(base).Seconds() / 60))
}

// EndMeeting is host-only: sets status=ended and computes total duration.
func (s *Service) EndMeeting(ctx context.Context, meetingID string, callerID domain.UserID) (*domain.Meeting, error) {
	return s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		if !m.IsHost(callerID) {
			return apperr.New(apperr.Forbidden, "only the host can end the meeting")
		}
		m.Status = domain.StatusEnded
		m.Statistics.TotalDuration = computeDuration(m)
		return nil
	})
}

// SetRecordingState flips the meeting document's inline recording flag; the
// recording package's dedicated collection is the source of truth for
// per-file metadata, this just keeps the embedded view (spec §3 Recording)
// in sync for clients reading the meeting document directly.
func (s *Service) SetRecordingState(ctx context.Context, meetingID string, isRecording bool, status domain.RecordingStatus, startedAt, stoppedAt *time.Time) (*domain.Meeting, error) {
	return s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		m.Recording.IsRecording = isRecording
		m.Recording.Status = status
		if startedAt != nil {
			m.Recording.StartedAt = startedAt
		}
		if stoppedAt != nil {
			m.Recording.StoppedAt = stoppedAt
		}
		return nil
	})
}

// CancelMeeting is host-only and requires status=scheduled.
func (s *Service) CancelMeeting(ctx context.Context, meetingID string, callerID domain.UserID) (*domain.Meeting, error) {
	updated, err := s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		if !m.IsHost(callerID) {
			return apperr.New(apperr.Forbidden, "only the host can cancel the meeting")
		}
		if m.Status != domain.StatusScheduled {
			return apperr.New(apperr.FailedPrecondition, "only scheduled meetings can be cancelled")
		}
		m.Status = domain.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.scheduler != nil {
		if err := s.scheduler.CancelReminders(ctx, meetingID); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "cancel reminders", err)
		}
	}
	return updated, nil
}

// UpdateSettings is host-only and shallow-merges only the keys present in
// patch, leaving every other setting untouched.
func (s *Service) UpdateSettings(ctx context.Context, meetingID string, callerID domain.UserID, patch map[string]any) (*domain.Meeting, error) {
	return s.repo.UpdateAtomic(ctx, meetingID, func(m *domain.Meeting) error {
		if !m.IsHost(callerID) {
			return apperr.New(apperr.Forbidden, "only the host can update settings")
		}
		applySettingsPatch(&m.Settings, patch)
		return nil
	})
}

func applySettingsPatch(s *domain.Settings, patch map[string]any) {
	if v, ok := patch["allowGuests"].(bool); ok {
		s.AllowGuests = v
	}
	if v, ok := patch["requirePassword"].(bool); ok {
		s.RequirePassword = v
	}
	if v, ok := patch["enableRecording"].(bool); ok {
		s.EnableRecording = v
	}
	if v, ok := patch["enableChat"].(bool); ok {
		s.EnableChat = v
	}
	if v, ok := patch["enableScreenShare"].(bool); ok {
		s.EnableScreenShare = v
	}
	if v, ok := patch["enableRaiseHand"].(bool); ok {
		s.EnableRaiseHand = v
	}
	if v, ok := patch["enableReactions"].(bool); ok {
		s.EnableReactions = v
	}
	if v, ok := patch["maxParticipants"].(float64); ok {
		s.MaxParticipants = int(v)
	}
	if v, ok := patch["waitingRoom"].(bool); ok {
		s.WaitingRoom = v
	}
	if v, ok := patch["muteOnEntry"].(bool); ok {
		s.MuteOnEntry = v
	}
	if v, ok := patch["videoOnEntry"].(bool); ok {
		s.VideoOnEntry = v
	}
}
