package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is a single transactional email. Tag groups messages of the
// same kind in the provider dashboard.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes emails to the log instead of sending them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email (local dev)",
		"to", msg.To,
		"subject", msg.Subject,
		"tag", msg.Tag,
		"text", msg.Text,
	)
	return nil
}

// ResendSender sends emails via the Resend API. Used in staging/production.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.Tag != "" {
		params.Tags = []resend.Tag{{Name: "category", Value: msg.Tag}}
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send %s email: %w", msg.Tag, err)
	}
	return nil
}

func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// OTPMessage renders the sign-up code email for to.
func OTPMessage(to, code string, validFor int) Message {
	return Message{
		To:      to,
		Subject: "Your XBLT verification code",
		HTML: fmt.Sprintf(
			`<p>Your XBLT verification code is:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>It expires in %d minutes. If you did not request it, ignore this email.</p>`,
			code, validFor,
		),
		Text: fmt.Sprintf("Your XBLT verification code is %s. It expires in %d minutes.", code, validFor),
		Tag:  "otp",
	}
}
