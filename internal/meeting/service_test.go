package meeting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	byPublic map[string]*domain.Meeting
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byPublic: map[string]*domain.Meeting{}}
}

func (r *fakeRepo) FindByPublicID(_ context.Context, meetingID string) (*domain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byPublic[meetingID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "meeting not found")
	}
	cp := *m
	cp.Participants = append([]domain.Participant(nil), m.Participants...)
	return &cp, nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*domain.Meeting, error) {
	return r.FindByPublicID(ctx, id)
}

func (r *fakeRepo) Insert(_ context.Context, m *domain.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPublic[m.MeetingID]; ok {
		return apperr.New(apperr.Conflict, "meeting id already exists")
	}
	cp := *m
	r.byPublic[m.MeetingID] = &cp
	return nil
}

func (r *fakeRepo) UpdateAtomic(_ context.Context, meetingID string, mutate func(*domain.Meeting) error) (*domain.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byPublic[meetingID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "meeting not found")
	}
	if err := mutate(m); err != nil {
		return nil, err
	}
	cp := *m
	cp.Participants = append([]domain.Participant(nil), m.Participants...)
	return &cp, nil
}

func (r *fakeRepo) ListForUser(_ context.Context, userID domain.UserID, status domain.MeetingStatus, page, limit int) ([]*domain.Meeting, int64, error) {
	return nil, 0, nil
}

func (r *fakeRepo) PushChat(_ context.Context, meetingID string, msg domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byPublic[meetingID]
	if !ok {
		return apperr.New(apperr.NotFound, "meeting not found")
	}
	m.Chat = append(m.Chat, msg)
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[domain.UserID]*domain.User
}

func newFakeUsers(ids ...domain.UserID) *fakeUsers {
	u := &fakeUsers{users: map[domain.UserID]*domain.User{}}
	for _, id := range ids {
		u.users[id] = &domain.User{ID: id}
	}
	return u
}

func (u *fakeUsers) FindByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	cp := *usr
	return &cp, nil
}

func (u *fakeUsers) Update(_ context.Context, usr *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	cp := *usr
	u.users[usr.ID] = &cp
	return nil
}

type fakeScheduler struct {
	scheduled bool
	cancelled bool
}

func (s *fakeScheduler) ScheduleReminders(_ context.Context, meetingID string, scheduledFor time.Time, hostUserID string) error {
	s.scheduled = true
	return nil
}

func (s *fakeScheduler) CancelReminders(_ context.Context, meetingID string) error {
	s.cancelled = true
	return nil
}

const hostID = domain.UserID("host-1")

func newTestService() (*Service, *fakeRepo, *fakeUsers, *fakeScheduler) {
	repo := newFakeRepo()
	users := newFakeUsers(hostID, "attendee-1", "attendee-2")
	sched := &fakeScheduler{}
	return NewService(repo, users, sched), repo, users, sched
}

func TestCreateMeeting_SeedsHostAsSoleJoinedParticipant(t *testing.T) {
	svc, _, users, _ := newTestService()

	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Title: "standup"})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	if m.Status != domain.StatusOngoing {
		t.Fatalf("status = %q, want ongoing", m.Status)
	}
	if len(m.Participants) != 1 || m.Participants[0].Role != domain.RoleHost {
		t.Fatalf("participants = %+v, want single host", m.Participants)
	}
	if m.Statistics.PeakParticipants != 1 || m.Statistics.TotalParticipants != 1 {
		t.Fatalf("statistics = %+v, want 1/1", m.Statistics)
	}

	u, _ := users.FindByID(context.Background(), hostID)
	if u.Statistics.MeetingsHosted != 1 {
		t.Fatalf("MeetingsHosted = %d, want 1", u.Statistics.MeetingsHosted)
	}
}

func TestScheduleMeeting_RejectsPastTime(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.ScheduleMeeting(context.Background(), ScheduleInput{
		CreateInput:  CreateInput{HostUserID: hostID},
		ScheduledFor: time.Now().Add(-time.Hour),
	})
	if apperr.As(err).Kind != apperr.BadRequest {
		t.Fatalf("err = %v, want BadRequest", err)
	}
}

func TestScheduleMeeting_ArmsReminderLadder(t *testing.T) {
	svc, _, _, sched := newTestService()
	m, err := svc.ScheduleMeeting(context.Background(), ScheduleInput{
		CreateInput:  CreateInput{HostUserID: hostID},
		ScheduledFor: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ScheduleMeeting: %v", err)
	}
	if m.Status != domain.StatusScheduled {
		t.Fatalf("status = %q, want scheduled", m.Status)
	}
	if m.Participants[0].Status != domain.ParticipantInvited {
		t.Fatalf("host status = %q, want invited", m.Participants[0].Status)
	}
	if !sched.scheduled {
		t.Fatal("expected ScheduleReminders to be called")
	}
}

func TestJoinMeeting_IsIdempotentForAlreadyJoinedParticipant(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Settings: settingsPtr(domain.DefaultSettings())})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	first, err := svc.JoinMeeting(context.Background(), m.MeetingID, hostID, "")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, err := svc.JoinMeeting(context.Background(), m.MeetingID, hostID, "")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.Statistics.TotalParticipants != first.Statistics.TotalParticipants {
		t.Fatalf("re-joining an already-joined participant changed stats: %d -> %d",
			first.Statistics.TotalParticipants, second.Statistics.TotalParticipants)
	}
}

func TestJoinMeeting_RejectsWhenAtMaxParticipants(t *testing.T) {
	svc, _, users, _ := newTestService()
	settings := domain.DefaultSettings()
	settings.MaxParticipants = 1
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Settings: &settings})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	users.users["attendee-1"] = &domain.User{ID: "attendee-1"}

	_, err = svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", "")
	if apperr.As(err).Kind != apperr.ResourceExhausted {
		t.Fatalf("err = %v, want ResourceExhausted", err)
	}
}

func TestJoinMeeting_RejectsRejoinWhenAtMaxParticipants(t *testing.T) {
	svc, _, users, _ := newTestService()
	settings := domain.DefaultSettings()
	settings.MaxParticipants = 2
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Settings: &settings})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	users.users["attendee-1"] = &domain.User{ID: "attendee-1"}
	users.users["attendee-2"] = &domain.User{ID: "attendee-2"}

	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", ""); err != nil {
		t.Fatalf("attendee-1 JoinMeeting: %v", err)
	}
	if _, err := svc.LeaveMeeting(context.Background(), m.MeetingID, "attendee-1"); err != nil {
		t.Fatalf("attendee-1 LeaveMeeting: %v", err)
	}
	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-2", ""); err != nil {
		t.Fatalf("attendee-2 JoinMeeting: %v", err)
	}

	// meeting is now full again (host + attendee-2); attendee-1 rejoining
	// must hit the same cap a brand new participant would.
	_, err = svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", "")
	if apperr.As(err).Kind != apperr.ResourceExhausted {
		t.Fatalf("rejoin err = %v, want ResourceExhausted", err)
	}
}

func TestJoinMeeting_RejectsWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService()
	settings := domain.DefaultSettings()
	settings.RequirePassword = true
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID, Password: "secret", Settings: &settings})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	_, err = svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", "wrong")
	if apperr.As(err).Kind != apperr.Unauthenticated {
		t.Fatalf("err = %v, want Unauthenticated", err)
	}
}

func TestJoinMeeting_RejectsEndedMeeting(t *testing.T) {
	svc, repo, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	if _, err := repo.UpdateAtomic(context.Background(), m.MeetingID, func(mm *domain.Meeting) error {
		mm.Status = domain.StatusEnded
		return nil
	}); err != nil {
		t.Fatalf("force-end: %v", err)
	}

	_, err = svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", "")
	if apperr.As(err).Kind != apperr.Gone {
		t.Fatalf("err = %v, want Gone", err)
	}
}

func TestLeaveMeeting_PromotesEarliestJoinedParticipantOnHostDeparture(t *testing.T) {
	svc, _, users, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	users.users["attendee-1"] = &domain.User{ID: "attendee-1"}
	users.users["attendee-2"] = &domain.User{ID: "attendee-2"}
	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-1", ""); err != nil {
		t.Fatalf("join attendee-1: %v", err)
	}
	if _, err := svc.JoinMeeting(context.Background(), m.MeetingID, "attendee-2", ""); err != nil {
		t.Fatalf("join attendee-2: %v", err)
	}

	updated, err := svc.LeaveMeeting(context.Background(), m.MeetingID, hostID)
	if err != nil {
		t.Fatalf("LeaveMeeting: %v", err)
	}
	if updated.HostUserID != "attendee-1" {
		t.Fatalf("HostUserID = %q, want attendee-1 (earliest joiner)", updated.HostUserID)
	}
	newHost := updated.FindParticipant("attendee-1")
	if newHost.Role != domain.RoleHost {
		t.Fatalf("attendee-1 role = %q, want host", newHost.Role)
	}
}

func TestLeaveMeeting_EndsMeetingWhenLastParticipantLeaves(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	updated, err := svc.LeaveMeeting(context.Background(), m.MeetingID, hostID)
	if err != nil {
		t.Fatalf("LeaveMeeting: %v", err)
	}
	if updated.Status != domain.StatusEnded {
		t.Fatalf("status = %q, want ended", updated.Status)
	}
}

func TestLeaveMeeting_RejectsWhenNotCurrentlyJoined(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	_, err = svc.LeaveMeeting(context.Background(), m.MeetingID, "never-joined")
	if apperr.As(err).Kind != apperr.FailedPrecondition {
		t.Fatalf("err = %v, want FailedPrecondition", err)
	}
}

func TestCancelMeeting_RequiresScheduledStatus(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	_, err = svc.CancelMeeting(context.Background(), m.MeetingID, hostID)
	if apperr.As(err).Kind != apperr.FailedPrecondition {
		t.Fatalf("err = %v, want FailedPrecondition", err)
	}
}

func TestCancelMeeting_CancelsReminders(t *testing.T) {
	svc, _, _, sched := newTestService()
	m, err := svc.ScheduleMeeting(context.Background(), ScheduleInput{
		CreateInput:  CreateInput{HostUserID: hostID},
		ScheduledFor: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ScheduleMeeting: %v", err)
	}

	updated, err := svc.CancelMeeting(context.Background(), m.MeetingID, hostID)
	if err != nil {
		t.Fatalf("CancelMeeting: %v", err)
	}
	if updated.Status != domain.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", updated.Status)
	}
	if !sched.cancelled {
		t.Fatal("expected CancelReminders to be called")
	}
}

func TestUpdateSettings_RejectsNonHost(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}

	_, err = svc.UpdateSettings(context.Background(), m.MeetingID, "attendee-1", map[string]any{"enableChat": false})
	if apperr.As(err).Kind != apperr.Forbidden {
		t.Fatalf("err = %v, want Forbidden", err)
	}
}

func TestUpdateSettings_ShallowMergesOnlyPresentKeys(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	wantMax := m.Settings.MaxParticipants

	updated, err := svc.UpdateSettings(context.Background(), m.MeetingID, hostID, map[string]any{"enableChat": false})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.Settings.EnableChat {
		t.Fatal("EnableChat not applied")
	}
	if updated.Settings.MaxParticipants != wantMax {
		t.Fatalf("MaxParticipants changed to %d, want untouched %d", updated.Settings.MaxParticipants, wantMax)
	}
}

func TestSetRecordingState_SyncsEmbeddedRecordingView(t *testing.T) {
	svc, _, _, _ := newTestService()
	m, err := svc.CreateMeeting(context.Background(), CreateInput{HostUserID: hostID})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	now := time.Now()

	updated, err := svc.SetRecordingState(context.Background(), m.MeetingID, true, domain.RecordingInProgress, &now, nil)
	if err != nil {
		t.Fatalf("SetRecordingState: %v", err)
	}
	if !updated.Recording.IsRecording || updated.Recording.Status != domain.RecordingInProgress {
		t.Fatalf("Recording = %+v, want in-progress", updated.Recording)
	}
	if updated.Recording.StartedAt == nil {
		t.Fatal("StartedAt not set")
	}
}

func settingsPtr(s domain.Settings) *domain.Settings { return &s }
