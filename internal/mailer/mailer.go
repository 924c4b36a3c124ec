package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends transactional emails through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer dialer
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// SendListingCreatedEmail tells an agent their listing is live.
func (m *SMTPMailer) SendListingCreatedEmail(toEmail, listingTitle string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "Your property is now listed")
	msg.SetBody("text/plain", fmt.Sprintf("Your listing %q has been published successfully.", listingTitle))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send listing created email to %s: %w", toEmail, err)
	}
	return nil
}
