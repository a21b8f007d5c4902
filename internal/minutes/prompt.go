package minutes

import (
	"fmt"
	"strings"

	"github.com/dkeye/confcore/internal/domain"
)

// BuildPrompt constructs the structured prompt spec §4.I.1 describes:
// title, date, duration, an attendee table, and formatted transcript turns.
func BuildPrompt(m *domain.MeetingMinutes) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are generating minutes of meeting (MoM) for a video conference.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", m.Title)
	fmt.Fprintf(&b, "Date: %s\n", m.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Duration: %d minutes\n\n", m.DurationMinutes)

	b.WriteString("Attendees (name | email | role):\n")
	for _, a := range m.Attendees {
		fmt.Fprintf(&b, "%s | %s | %s\n", a.Name, a.Email, a.Role)
	}
	b.WriteString("\nTranscript:\n")
	for _, seg := range m.Transcripts {
		fmt.Fprintf(&b, "[%s] (%s): %s\n", seg.SpeakerName, seg.StartTime.Format("15:04:05"), seg.Text)
	}

	b.WriteString("\nRespond with a single JSON object with exactly these keys: ")
	b.WriteString("summary (string), agenda (string[]), discussionPoints (string[]), decisions (string[]), ")
	b.WriteString("actionItems ({description, owner, priority, deadline}[]), highlights (string[]), ")
	b.WriteString("questionsRaised (string[]), followUps ({description, owner, deadline}[]). ")
	b.WriteString("Return raw JSON only, no surrounding prose.\n")

	return b.String()
}
