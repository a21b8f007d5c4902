package minutes

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dkeye/confcore/internal/apperr"
	"github.com/dkeye/confcore/internal/domain"
)

// Repository is the subset of the minutes store the pipeline needs.
type Repository interface {
	Create(ctx context.Context, m *domain.MeetingMinutes) error
	FindByMeetingID(ctx context.Context, meetingID string) (*domain.MeetingMinutes, error)
	Replace(ctx context.Context, m *domain.MeetingMinutes) error
	ListForUser(ctx context.Context, attendeeEmail string, page, limit int) ([]*domain.MeetingMinutes, int64, error)
}

// MeetingLookup is the subset of meeting persistence the pipeline needs to
// compute attendees and transcripts.
type MeetingLookup interface {
	GetMeeting(ctx context.Context, meetingID string) (*domain.Meeting, error)
}

// EmailEnqueuer decouples the pipeline from the queue package.
type EmailEnqueuer interface {
	EnqueueMinutesEmail(ctx context.Context, meetingID, toEmail, toName string) error
}

// UserLookup resolves attendee display name/email from a participant's
// UserID for the attendee table (spec §4.I.1).
type UserLookup interface {
	FindByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type Pipeline struct {
	repo     Repository
	meetings MeetingLookup
	users    UserLookup
	llm      *GeminiClient
	emails   EmailEnqueuer
}

func NewPipeline(repo Repository, meetings MeetingLookup, users UserLookup, llm *GeminiClient, emails EmailEnqueuer) *Pipeline {
	return &Pipeline{repo: repo, meetings: meetings, users: users, llm: llm, emails: emails}
}

// Generate is spec §4.I's end-to-end operation: host-only, single-shot per
// meeting, degrading to a failed-but-persisted record rather than an error
// when the LLM output can't be parsed.
func (p *Pipeline) Generate(ctx context.Context, meetingID string, requestedBy domain.UserID) (*domain.MeetingMinutes, error) {
	if existing, err := p.repo.FindByMeetingID(ctx, meetingID); err == nil && existing.Status == domain.MinutesCompleted {
		return nil, apperr.New(apperr.Conflict, "minutes already generated for this meeting")
	}

	m, err := p.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsHost(requestedBy) {
		return nil, apperr.New(apperr.Forbidden, "only the host can generate minutes")
	}

	record := &domain.MeetingMinutes{
		MeetingID:       m.MeetingID,
		Title:           m.Title,
		Date:            m.CreatedAt,
		StartTime:       m.CreatedAt,
		EndTime:         time.Now(),
		DurationMinutes: m.Statistics.TotalDuration,
		Attendees:       p.computeAttendees(ctx, m),
		Transcripts:     m.Transcripts,
		Status:          domain.MinutesProcessing,
	}
	if err := p.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	text, tokens, genErr := p.llm.Generate(ctx, BuildPrompt(record))
	if genErr != nil {
		record.Status = domain.MinutesFailed
		record.Error = genErr.Error()
		_ = p.repo.Replace(ctx, record)
		return record, nil
	}

	parsed, parseErr := parseResponse(text)
	if parseErr != nil {
		record.Status = domain.MinutesFailed
		record.Error = parseErr.Error()
		_ = p.repo.Replace(ctx, record)
		return record, nil
	}

	record.Summary = parsed.Summary
	record.Agenda = parsed.Agenda
	record.DiscussionPoints = parsed.DiscussionPoints
	record.Decisions = parsed.Decisions
	record.Highlights = parsed.Highlights
	record.QuestionsRaised = parsed.QuestionsRaised
	record.ActionItems = normalizeActionItems(parsed.ActionItems)
	record.FollowUps = normalizeFollowUps(parsed.FollowUps)
	record.Status = domain.MinutesCompleted
	record.AIProcessing = domain.AIProcessing{
		Model:       p.llm.model,
		ProcessedAt: time.Now(),
		TokensUsed:  tokens,
		Confidence:  0.85,
	}

	recipients := make([]domain.EmailRecipient, 0, len(record.Attendees))
	for _, a := range record.Attendees {
		if a.Email == "" {
			continue
		}
		recipients = append(recipients, domain.EmailRecipient{Email: a.Email, Status: domain.RecipientQueued})
	}
	record.EmailDelivery = domain.EmailDelivery{Recipients: recipients}

	if err := p.repo.Replace(ctx, record); err != nil {
		return nil, err
	}

	if p.emails != nil {
		for _, a := range record.Attendees {
			if a.Email == "" {
				continue
			}
			if err := p.emails.EnqueueMinutesEmail(ctx, m.MeetingID, a.Email, a.Name); err != nil {
				return nil, apperr.Wrap(apperr.Internal, "enqueue minutes email", err)
			}
		}
	}

	return record, nil
}

// Get returns a meeting's minutes record for any attendee (spec §6 GET
// /api/meeting-minutes/:meetingId carries no host restriction).
func (p *Pipeline) Get(ctx context.Context, meetingID string) (*domain.MeetingMinutes, error) {
	return p.repo.FindByMeetingID(ctx, meetingID)
}

// ListForUser returns the minutes records an attendee's email appears on.
func (p *Pipeline) ListForUser(ctx context.Context, attendeeEmail string, page, limit int) ([]*domain.MeetingMinutes, int64, error) {
	return p.repo.ListForUser(ctx, attendeeEmail, page, limit)
}

// ResendEmail re-queues delivery for one recipient (or, if override is
// empty, every recipient on the record whatever its delivery status), per
// spec §6's POST .../resend-email.
func (p *Pipeline) ResendEmail(ctx context.Context, meetingID, override string) error {
	rec, err := p.repo.FindByMeetingID(ctx, meetingID)
	if err != nil {
		return err
	}
	if rec.Status != domain.MinutesCompleted {
		return apperr.New(apperr.FailedPrecondition, "minutes have not completed generation")
	}
	if p.emails == nil {
		return apperr.New(apperr.Internal, "email dispatch is not configured")
	}
	if override != "" {
		return p.emails.EnqueueMinutesEmail(ctx, meetingID, override, "")
	}
	for _, r := range rec.EmailDelivery.Recipients {
		if err := p.emails.EnqueueMinutesEmail(ctx, meetingID, r.Email, ""); err != nil {
			return apperr.Wrap(apperr.Internal, "enqueue minutes email", err)
		}
	}
	return nil
}

func (p *Pipeline) computeAttendees(ctx context.Context, m *domain.Meeting) []domain.Attendee {
	out := make([]domain.Attendee, 0, len(m.Participants))
	for _, participant := range m.Participants {
		if participant.Status == domain.ParticipantInvited {
			continue
		}
		attendee := domain.Attendee{Name: string(participant.UserID), Role: string(participant.Role)}
		if p.users != nil {
			if u, err := p.users.FindByID(ctx, participant.UserID); err == nil {
				attendee.Name = u.Profile.DisplayName
				attendee.Email = u.Email
			}
		}
		out = append(out, attendee)
	}
	return out
}

type llmResponse struct {
	Summary          string           `json:"summary"`
	Agenda           []string         `json:"agenda"`
	DiscussionPoints []string         `json:"discussionPoints"`
	Decisions        []string         `json:"decisions"`
	ActionItems      []rawActionItem  `json:"actionItems"`
	Highlights       []string         `json:"highlights"`
	QuestionsRaised  []string         `json:"questionsRaised"`
	FollowUps        []rawFollowUp    `json:"followUps"`
}

type rawActionItem struct {
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline"`
}

type rawFollowUp struct {
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Deadline    string `json:"deadline"`
}

// parseResponse strips common Markdown code fences before decoding, per
// spec §4.I.3.
func parseResponse(text string) (*llmResponse, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed llmResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func normalizeActionItems(raw []rawActionItem) []domain.ActionItem {
	out := make([]domain.ActionItem, 0, len(raw))
	for _, r := range raw {
		priority := domain.Priority(r.Priority)
		if priority != domain.PriorityLow && priority != domain.PriorityMedium && priority != domain.PriorityHigh {
			priority = domain.PriorityMedium
		}
		out = append(out, domain.ActionItem{
			Description: r.Description,
			Owner:       r.Owner,
			Priority:    priority,
			Status:      domain.ActionPending,
			Deadline:    parseDeadline(r.Deadline),
		})
	}
	return out
}

func normalizeFollowUps(raw []rawFollowUp) []domain.FollowUp {
	out := make([]domain.FollowUp, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.FollowUp{
			Description: r.Description,
			Owner:       r.Owner,
			Deadline:    parseDeadline(r.Deadline),
		})
	}
	return out
}

func parseDeadline(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
