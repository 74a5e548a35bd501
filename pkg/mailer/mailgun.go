package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends mail through the Mailgun API.
type Mailgun struct {
	domain string
	apiKey string
	from   string
}

func NewMailgun(domain, apiKey, from string) *Mailgun {
	return &Mailgun{domain: domain, apiKey: apiKey, from: from}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, body string) error {
	client := mg.NewMailgun(m.domain, m.apiKey)
	msg := client.NewMessage(m.from, subject, body, to)
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := client.Send(c, msg)
	return err
}
