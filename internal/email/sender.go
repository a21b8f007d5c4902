// Package email implements the Email Dispatcher (spec §4.J): a stateless
// HTML renderer over net/smtp, grounded on Bipul-Dubey-ai-knowledgebase's
// shared/utils/email.go EmailSender, generalized from a single SendEmail
// call to two named templates and per-recipient delivery tracking.
package email

import (
	"fmt"
	"net/smtp"
)

type Sender struct {
	from     string
	password string
	host     string
	port     string
}

func NewSender(host, port, user, password, from string) *Sender {
	if from == "" {
		from = user
	}
	return &Sender{from: from, password: password, host: host, port: port}
}

// Send submits one HTML email over a fresh SMTP connection. Transport-level
// failures (dial, dropped connection) are retried by the caller's queue
// worker; a 4xx/5xx server reply comes back as a *textproto.Error, which
// Dispatcher.HandleJob treats as permanent and does not retry (spec §4.J).
func (s *Sender) Send(to, subject, htmlBody string) error {
	if s.host == "" || s.port == "" {
		return fmt.Errorf("email: missing SMTP configuration")
	}
	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n%s\r\n",
		s.from, to, subject, htmlBody,
	))

	var auth smtp.Auth
	if s.password != "" {
		auth = smtp.PlainAuth("", s.from, s.password, s.host)
	}
	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg)
}
