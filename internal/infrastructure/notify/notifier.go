package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Dispatcher routes email and SMS to their providers.
type Dispatcher struct {
	email EmailSender
	sms   SMSSender
}

var _ ports.Notifier = (*Dispatcher)(nil)

func NewDispatcher(email EmailSender, sms SMSSender) *Dispatcher {
	return &Dispatcher{email: email, sms: sms}
}

func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, html string) error {
	return d.email.SendEmail(ctx, to, subject, html)
}

func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) error {
	return d.sms.SendSMS(ctx, to, body)
}

// LogSender writes messages to the log instead of delivering them. It stands in for a
// provider that has no credentials configured, which is the normal local setup.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (l *LogSender) SendEmail(_ context.Context, to, subject, html string) error {
	l.log.Debug().Str("to", to).Str("subject", subject).Str("body", html).Msg("email not delivered: no provider configured")
	return nil
}

func (l *LogSender) SendSMS(_ context.Context, to, body string) error {
	l.log.Debug().Str("to", to).Str("body", body).Msg("sms not delivered: no provider configured")
	return nil
}

type Config struct {
	SendGrid SendGridConfig
	Twilio   TwilioConfig
	Breaker  BreakerConfig
}

// New wires the configured providers and falls back to LogSender per channel.
func New(cfg Config, log zerolog.Logger) *Dispatcher {
	var (
		email EmailSender = NewLogSender(log)
		sms   SMSSender   = NewLogSender(log)
	)
	if cfg.SendGrid.APIKey != "" && cfg.SendGrid.SenderEmail != "" {
		email = NewSendGrid(cfg.SendGrid, cfg.Breaker, log)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, emails are logged only")
	}
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		sms = NewTwilio(cfg.Twilio, cfg.Breaker, log)
	} else {
		log.Warn().Msg("TWILIO_ACCOUNT_SID not set, sms are logged only")
	}
	return NewDispatcher(email, sms)
}
