// Package mail delivers transactional email for the storefront.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	gomail "github.com/wneessen/go-mail"

	"sickfits/internal/config"
)

// DeliveryResult reports the outcome of a send attempt. Callers that must
// not reveal delivery failures to end users still get a distinguishable
// result to log.
type DeliveryResult struct {
	Sent bool
	Err  error
}

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) DeliveryResult
}

// SMTPSender implements Sender over SMTP.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

// NewSMTPSender builds an SMTP-backed sender from mail configuration.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

// Send delivers one message and never panics on transport failure.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) DeliveryResult {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return DeliveryResult{Err: fmt.Errorf("mail from: %w", err)}
	}
	if err := msg.To(to); err != nil {
		return DeliveryResult{Err: fmt.Errorf("mail to: %w", err)}
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return DeliveryResult{Err: fmt.Errorf("send mail: %w", err)}
	}
	return DeliveryResult{Sent: true}
}

var resetTemplate = template.Must(template.New("reset").Parse(`
<div style="border: 1px solid black; padding: 20px; font-family: sans-serif; line-height: 2; font-size: 20px;">
  <h2>Hello There!</h2>
  <p>Your password reset token is here. This link is good for one use within the next hour.</p>
  <p><a href="{{.ResetURL}}">Click here to reset your password</a></p>
  <p>If you did not request a reset you can ignore this email.</p>
</div>
`))

// ResetEmailBody renders the password-reset email pointing at the frontend
// reset page with the token attached.
func ResetEmailBody(frontendURL, token string) (string, error) {
	var buf bytes.Buffer
	data := struct{ ResetURL string }{
		ResetURL: fmt.Sprintf("%s/reset?resetToken=%s", frontendURL, token),
	}
	if err := resetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}
