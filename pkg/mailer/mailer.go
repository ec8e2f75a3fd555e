package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends operator notifications. Implementations must tolerate
// concurrent calls.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTP(server string, port int, username, password, from string) *SMTPMailer {
	if strings.TrimSpace(from) == "" {
		from = username
	}
	return &SMTPMailer{Server: server, Port: port, Username: username, Password: password, From: from}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body))
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Server)
	addr := fmt.Sprintf("%s:%d", m.Server, m.Port)
	return smtp.SendMail(addr, auth, m.From, []string{to}, msg)
}
