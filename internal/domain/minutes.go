package domain

import "time"

// MinutesStatus is the lifecycle of an AI-generated minutes record.
type MinutesStatus string

const (
	MinutesProcessing MinutesStatus = "processing"
	MinutesCompleted  MinutesStatus = "completed"
	MinutesFailed     MinutesStatus = "failed"
)

// ActionItemStatus / Priority enumerate normalized action items (spec §4.I.4).
type ActionItemStatus string

const (
	ActionPending ActionItemStatus = "pending"
	ActionDone    ActionItemStatus = "done"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ActionItem is one normalized entry of MeetingMinutes.ActionItems.
type ActionItem struct {
	Description string     `json:"description" bson:"description"`
	Owner       string     `json:"owner,omitempty" bson:"owner,omitempty"`
	Priority    Priority   `json:"priority" bson:"priority"`
	Status      ActionItemStatus `json:"status" bson:"status"`
	Deadline    *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
}

// FollowUp is one normalized entry of MeetingMinutes.FollowUps.
type FollowUp struct {
	Description string     `json:"description" bson:"description"`
	Owner       string     `json:"owner,omitempty" bson:"owner,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty" bson:"deadline,omitempty"`
}

// Attendee is one row of the attendee table fed into the LLM prompt.
type Attendee struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Role  string `json:"role" bson:"role"`
}

// AIProcessing records the model invocation metadata (spec §3).
type AIProcessing struct {
	Model       string    `json:"model" bson:"model"`
	ProcessedAt time.Time `json:"processedAt" bson:"processedAt"`
	TokensUsed  int       `json:"tokensUsed" bson:"tokensUsed"`
	Confidence  float64   `json:"confidence" bson:"confidence"`
}

// RecipientStatus enumerates per-recipient delivery status.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientQueued  RecipientStatus = "queued"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

// EmailRecipient tracks one attendee's minutes-email delivery outcome.
type EmailRecipient struct {
	Email  string          `json:"email" bson:"email"`
	Status RecipientStatus `json:"status" bson:"status"`
	SentAt *time.Time      `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Error  string          `json:"error,omitempty" bson:"error,omitempty"`
}

// EmailDelivery is the aggregate delivery-tracking sub-document.
type EmailDelivery struct {
	Sent       bool             `json:"sent" bson:"sent"`
	SentAt     *time.Time       `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Recipients []EmailRecipient `json:"recipients" bson:"recipients"`
}

// MeetingMinutes is the one-per-meeting AI-generated summary record.
type MeetingMinutes struct {
	MeetingID         string         `json:"meetingId" bson:"_id"`
	Title             string         `json:"title" bson:"title"`
	Date              time.Time      `json:"date" bson:"date"`
	StartTime         time.Time      `json:"startTime" bson:"startTime"`
	EndTime           time.Time      `json:"endTime,omitempty" bson:"endTime,omitempty"`
	DurationMinutes   int            `json:"durationMinutes" bson:"durationMinutes"`
	Attendees         []Attendee     `json:"attendees" bson:"attendees"`
	Agenda            []string       `json:"agenda" bson:"agenda"`
	Transcripts       []TranscriptSegment `json:"transcripts" bson:"transcripts"`
	Summary           string         `json:"summary" bson:"summary"`
	DiscussionPoints  []string       `json:"discussionPoints" bson:"discussionPoints"`
	Decisions         []string       `json:"decisions" bson:"decisions"`
	ActionItems       []ActionItem   `json:"actionItems" bson:"actionItems"`
	Highlights        []string       `json:"highlights" bson:"highlights"`
	QuestionsRaised   []string       `json:"questionsRaised" bson:"questionsRaised"`
	FollowUps         []FollowUp     `json:"followUps" bson:"followUps"`
	AIProcessing      AIProcessing   `json:"aiProcessing" bson:"aiProcessing"`
	EmailDelivery     EmailDelivery  `json:"emailDelivery" bson:"emailDelivery"`
	Status            MinutesStatus  `json:"status" bson:"status"`
	Error             string         `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt         time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt" bson:"updatedAt"`
}
