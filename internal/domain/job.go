package domain

import "time"

// QueueName enumerates the four named queues from spec §4.C.
type QueueName string

const (
	QueueEmail        QueueName = "email"
	QueueReminder     QueueName = "reminder"
	QueueMoMGen       QueueName = "momGeneration"
	QueueRecording    QueueName = "recording"
)

// JobType tags the payload shape carried inside a queue's generic envelope.
type JobType string

const (
	JobTypeReminderCheck   JobType = "reminder-check"
	JobTypeEmailReminder   JobType = "meeting-reminder"
	JobTypeEmailMinutes    JobType = "meeting-minutes"
	JobTypeMoMGenerate     JobType = "generate-minutes"
	JobTypeRecordingFinish JobType = "finalize-recording"
)

// Job is the envelope stored/transported by the Job Queue (spec §3 "Job").
type Job struct {
	ID               string        `json:"id"`
	Queue            QueueName     `json:"queue"`
	Type             JobType       `json:"type"`
	Payload          []byte        `json:"payload"`
	AttemptsRemaining int          `json:"attemptsRemaining"`
	BackoffBase      time.Duration `json:"backoffBase"`
	NotBefore        time.Time     `json:"notBefore"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// ReminderPayload is the JSON payload of a JobTypeReminderCheck job.
type ReminderPayload struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
	TimeLabel string `json:"timeLabel"`
}

// EmailReminderPayload is the JSON payload of a JobTypeEmailReminder job.
type EmailReminderPayload struct {
	MeetingID    string    `json:"meetingId"`
	MeetingTitle string    `json:"meetingTitle"`
	MeetingCode  string    `json:"meetingCode"`
	ScheduledFor time.Time `json:"scheduledFor"`
	TimeLabel    string    `json:"timeLabel"`
	ToEmail      string    `json:"toEmail"`
	ToName       string    `json:"toName"`
}

// EmailMinutesPayload is the JSON payload of a JobTypeEmailMinutes job.
type EmailMinutesPayload struct {
	MeetingID string `json:"meetingId"`
	ToEmail   string `json:"toEmail"`
	ToName    string `json:"toName"`
}

// MoMGeneratePayload is the JSON payload of a JobTypeMoMGenerate job.
type MoMGeneratePayload struct {
	MeetingID    string `json:"meetingId"`
	RequestedBy  string `json:"requestedBy"`
}

// ReminderLadder is the fixed set of lead times from spec §4.C.
var ReminderLadder = []int{60, 30, 15, 5}
