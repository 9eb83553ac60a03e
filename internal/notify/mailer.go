package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
	send SendFunc
}

func NewMailer(host, port, user, pass, from string) *Mailer {
	return &Mailer{Host: host, Port: port, User: user, Pass: pass, From: from, send: smtp.SendMail}
}

// Handle satisfies Handler.
func (m *Mailer) Handle(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("message %s has no recipient", msg.Kind)
	}

	subject, body, err := Render(msg)
	if err != nil {
		return err
	}

	raw := strings.Join([]string{
		"From: " + m.From,
		"To: " + msg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	return m.send(m.Host+":"+m.Port, auth, m.From, []string{msg.To}, []byte(raw))
}

// Render produces the plain-text subject and body for a message kind.
func Render(msg Message) (subject, body string, err error) {
	name := msg.Name
	if name == "" {
		name = "there"
	}

	switch msg.Kind {
	case KindVerificationEmail:
		return "Verify your email",
			fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening the link below. It expires in 24 hours.\n\n%s\n", name, msg.Link), nil
	case KindPasswordResetEmail:
		return "Reset your password",
			fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It expires in 1 hour.\n\n%s\n\nIf you did not ask for this, ignore this email.\n", name, msg.Link), nil
	case KindPaymentReceipt:
		return "Payment received",
			fmt.Sprintf("Hi %s,\n\nWe received NGN %s for order #%s (reference %s). Your order is now in progress.\n",
				name, msg.Data["amount"], msg.Data["order_id"], msg.Data["reference"]), nil
	}
	return "", "", fmt.Errorf("unknown message kind %q", msg.Kind)
}
