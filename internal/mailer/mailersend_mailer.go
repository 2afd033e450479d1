package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendAdminPasscode(toEmail, toName, passcode string, expiryMinutes int) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your hotel admin login code"
	html := fmt.Sprintf(`
		<h2>Hotel admin login</h2>
		<p>Hi %s,</p>
		<p>Your one-time login code is: <strong style="font-size: 24px;">%s</strong></p>
		<p>The code expires in %d minutes and can be used once.</p>
		<p>If you didn't request a login code, please ignore this email.</p>
	`, toName, passcode, expiryMinutes)

	text := fmt.Sprintf("Your one-time login code is: %s\n\nIt expires in %d minutes and can be used once.", passcode, expiryMinutes)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
