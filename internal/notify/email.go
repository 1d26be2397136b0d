package notify

import (
	"context"
	"fmt"
	"time"

	mail "gopkg.in/mail.v2"
)

// EmailNotifier delivers notifications over SMTP.
type EmailNotifier struct {
	dialer *mail.Dialer
	from   string
	to     string
}

// NewEmailNotifier creates an SMTP notifier. All parameters are required;
// the config layer validates them before construction.
func NewEmailNotifier(host string, port int, user, pass, from, to string) *EmailNotifier {
	d := mail.NewDialer(host, port, user, pass)
	d.Timeout = 15 * time.Second
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &EmailNotifier{dialer: d, from: from, to: to}
}

// Kind returns ChannelEmail.
func (e *EmailNotifier) Kind() Channel {
	return ChannelEmail
}

// Send delivers the message to the configured recipient.
func (e *EmailNotifier) Send(_ context.Context, title, message string) (string, error) {
	return e.sendTo(e.to, title, message)
}

// sendTo delivers to an explicit recipient. The SMS notifier reuses this
// with a carrier gateway address.
func (e *EmailNotifier) sendTo(to, title, message string) (string, error) {
	m := mail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", message)

	if err := e.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return fmt.Sprintf("Sent to %s", to), nil
}
