package domain

import "time"

// MeetingStatus is the meeting lifecycle state from spec §3/§4.E.
type MeetingStatus string

const (
	StatusScheduled MeetingStatus = "scheduled"
	StatusOngoing   MeetingStatus = "ongoing"
	StatusEnded     MeetingStatus = "ended"
	StatusCancelled MeetingStatus = "cancelled"
)

// ParticipantRole and ParticipantStatus enumerate the participant sub-document.
type ParticipantRole string

const (
	RoleHost        ParticipantRole = "host"
	RoleCoHost      ParticipantRole = "co-host"
	RoleParticipant ParticipantRole = "participant"
)

type ParticipantStatus string

const (
	ParticipantJoined  ParticipantStatus = "joined"
	ParticipantLeft    ParticipantStatus = "left"
	ParticipantRemoved ParticipantStatus = "removed"
	ParticipantInvited ParticipantStatus = "invited"
)

// Permissions gates per-participant capability overrides layered on top of
// the role-derived defaults (see meeting.DerivePermissions).
type Permissions struct {
	CanShare        bool `json:"canShare" bson:"canShare"`
	CanRecord       bool `json:"canRecord" bson:"canRecord"`
	CanMuteOthers   bool `json:"canMuteOthers" bson:"canMuteOthers"`
	CanRemoveOthers bool `json:"canRemoveOthers" bson:"canRemoveOthers"`
}

// MediaState mirrors the client-reported toggle state; the server never
// derives these values, only relays them (spec §4.G).
type MediaState struct {
	AudioEnabled  bool `json:"audioEnabled" bson:"audioEnabled"`
	VideoEnabled  bool `json:"videoEnabled" bson:"videoEnabled"`
	ScreenSharing bool `json:"screenSharing" bson:"screenSharing"`
	HandRaised    bool `json:"handRaised" bson:"handRaised"`
}

// Participant is one membership record; at most one per UserID per meeting.
type Participant struct {
	UserID      UserID            `json:"userId" bson:"userId"`
	JoinedAt    time.Time         `json:"joinedAt" bson:"joinedAt"`
	LeftAt      *time.Time        `json:"leftAt,omitempty" bson:"leftAt,omitempty"`
	Role        ParticipantRole   `json:"role" bson:"role"`
	Status      ParticipantStatus `json:"status" bson:"status"`
	Permissions Permissions       `json:"permissions" bson:"permissions"`
	MediaState  MediaState        `json:"mediaState" bson:"mediaState"`
}

// Settings holds the per-meeting enumerated options from spec §3.
type Settings struct {
	AllowGuests       bool `json:"allowGuests" bson:"allowGuests"`
	RequirePassword   bool `json:"requirePassword" bson:"requirePassword"`
	EnableRecording   bool `json:"enableRecording" bson:"enableRecording"`
	EnableChat        bool `json:"enableChat" bson:"enableChat"`
	EnableScreenShare bool `json:"enableScreenShare" bson:"enableScreenShare"`
	EnableRaiseHand   bool `json:"enableRaiseHand" bson:"enableRaiseHand"`
	EnableReactions   bool `json:"enableReactions" bson:"enableReactions"`
	MaxParticipants   int  `json:"maxParticipants" bson:"maxParticipants"`
	WaitingRoom       bool `json:"waitingRoom" bson:"waitingRoom"`
	MuteOnEntry       bool `json:"muteOnEntry" bson:"muteOnEntry"`
	VideoOnEntry      bool `json:"videoOnEntry" bson:"videoOnEntry"`
}

// DefaultSettings mirrors the defaults enumerated in spec §3.
func DefaultSettings() Settings {
	return Settings{
		AllowGuests:       true,
		RequirePassword:   false,
		EnableRecording:   false,
		EnableChat:        true,
		EnableScreenShare: true,
		EnableRaiseHand:   true,
		EnableReactions:   true,
		MaxParticipants:   50,
		WaitingRoom:       false,
		MuteOnEntry:       false,
		VideoOnEntry:      false,
	}
}

// ChatMessageType distinguishes plain text from file-attachment messages
// (spec §6 POST /api/chat/upload, SPEC_FULL supplemented feature 3).
type ChatMessageType string

const (
	ChatText     ChatMessageType = "text"
	ChatFileType ChatMessageType = "file"
)

// ChatFile describes an uploaded attachment referenced by a chat message.
type ChatFile struct {
	URL      string `json:"url" bson:"url"`
	Filename string `json:"filename" bson:"filename"`
	Size     int64  `json:"size" bson:"size"`
	MimeType string `json:"mimeType" bson:"mimeType"`
}

// ChatSender is the populated sender view attached to every chat broadcast.
type ChatSender struct {
	ID       UserID `json:"id" bson:"id"`
	Username string `json:"username" bson:"username"`
	Avatar   string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

// ChatMessage is one entry of the append-only chat[] log.
type ChatMessage struct {
	ID        string          `json:"id" bson:"id"`
	Sender    ChatSender      `json:"sender" bson:"sender"`
	Message   string          `json:"message" bson:"message"`
	Type      ChatMessageType `json:"type" bson:"type"`
	File      *ChatFile       `json:"file,omitempty" bson:"file,omitempty"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

// RecordingStatus enumerates a meeting's recording lifecycle, grounded on
// randeeprajputr-webinar_backend's Recording model.
type RecordingStatus string

const (
	RecordingIdle       RecordingStatus = "idle"
	RecordingInProgress RecordingStatus = "recording"
	RecordingProcessing RecordingStatus = "processing"
	RecordingCompleted  RecordingStatus = "completed"
	RecordingFailed     RecordingStatus = "failed"
)

// Recording is the embedded recording sub-document for a meeting.
type Recording struct {
	IsRecording bool            `json:"isRecording" bson:"isRecording"`
	Status      RecordingStatus `json:"status,omitempty" bson:"status,omitempty"`
	StartedAt   *time.Time      `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	StoppedAt   *time.Time      `json:"stoppedAt,omitempty" bson:"stoppedAt,omitempty"`
	FileURL     string          `json:"fileUrl,omitempty" bson:"fileUrl,omitempty"`
	FileSize    int64           `json:"fileSize,omitempty" bson:"fileSize,omitempty"`
	DurationSec int             `json:"durationSeconds,omitempty" bson:"durationSeconds,omitempty"`
}

// TranscriptSegment is one speaker turn fed into the minutes pipeline.
type TranscriptSegment struct {
	SpeakerID   UserID    `json:"speakerId" bson:"speakerId"`
	SpeakerName string    `json:"speakerName" bson:"speakerName"`
	Text        string    `json:"text" bson:"text"`
	StartTime   time.Time `json:"startTime" bson:"startTime"`
	EndTime     time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
}

// Statistics is the meeting-level rollup, updated in-place through
// Repository.UpdateAtomic.
type Statistics struct {
	PeakParticipants  int `json:"peakParticipants" bson:"peakParticipants"`
	TotalParticipants int `json:"totalParticipants" bson:"totalParticipants"`
	ChatMessages      int `json:"chatMessages" bson:"chatMessages"`
	TotalDuration     int `json:"totalDuration,omitempty" bson:"totalDuration,omitempty"`
}

// Meeting is the authoritative document persisted by the Meeting Repository.
type Meeting struct {
	ID              string              `json:"id" bson:"_id"`
	MeetingID       string              `json:"meetingId" bson:"meetingId"`
	Title           string              `json:"title" bson:"title"`
	Description     string              `json:"description,omitempty" bson:"description,omitempty"`
	HostUserID      UserID              `json:"hostUserId" bson:"hostUserId"`
	Password        string              `json:"-" bson:"password,omitempty"`
	ScheduledFor    time.Time           `json:"scheduledFor,omitempty" bson:"scheduledFor,omitempty"`
	DurationMinutes int                 `json:"durationMinutes,omitempty" bson:"durationMinutes,omitempty"`
	Status          MeetingStatus       `json:"status" bson:"status"`
	Settings        Settings            `json:"settings" bson:"settings"`
	Participants    []Participant       `json:"participants" bson:"participants"`
	Recording       Recording           `json:"recording" bson:"recording"`
	Chat            []ChatMessage       `json:"chat" bson:"chat"`
	Transcripts     []TranscriptSegment `json:"transcripts" bson:"transcripts"`
	Statistics      Statistics          `json:"statistics" bson:"statistics"`
	Version         int64               `json:"-" bson:"version"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// FindParticipant returns a pointer into m.Participants for in-place mutation.
func (m *Meeting) FindParticipant(uid UserID) *Participant {
	for i := range m.Participants {
		if m.Participants[i].UserID == uid {
			return &m.Participants[i]
		}
	}
	return nil
}

// CountJoined reports how many participants currently have status=joined.
func (m *Meeting) CountJoined() int {
	n := 0
	for _, p := range m.Participants {
		if p.Status == ParticipantJoined {
			n++
		}
	}
	return n
}

// IsHost reports whether uid is the acting host per spec §4.E's derivation:
// a participant entry with role=host (whatever its status), OR
// meeting.HostUserID == uid.
func (m *Meeting) IsHost(uid UserID) bool {
	if m.HostUserID == uid {
		return true
	}
	if p := m.FindParticipant(uid); p != nil {
		return p.Role == RoleHost
	}
	return false
}
