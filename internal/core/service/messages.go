package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

var (
	verificationEmail = template.Must(template.New("verify").Parse(`<p>Hi {{.Name}},</p>
<p>Your StraightDeal verification code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.Minutes}} minutes. If you did not create an account, ignore this email.</p>`))

	resetEmail = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>We received a request to reset your StraightDeal password.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>The link expires in {{.Minutes}} minutes. If you did not ask for this, ignore this email.</p>`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func minutesUntil(expiry, now time.Time) int {
	return int(expiry.Sub(now).Round(time.Minute) / time.Minute)
}

// The identity mutation that precedes a send is kept when the send fails.
func (s *AuthService) sendVerificationEmail(ctx context.Context, identity *domain.Identity, code string) error {
	html, err := render(verificationEmail, map[string]any{
		"Name":    identity.FirstName,
		"Code":    code,
		"Minutes": minutesUntil(identity.EmailOTPExpiry, s.now().UTC()),
	})
	if err != nil {
		return err
	}
	if err := s.notifier.SendEmail(ctx, identity.Email, "Verify your email", html); err != nil {
		s.log.Error().Err(err).Str("user_id", identity.ID).Msg("verification email not sent")
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}

func (s *AuthService) sendPhoneCode(ctx context.Context, identity *domain.Identity, phone, code string, expiry time.Time) error {
	body := fmt.Sprintf("Your StraightDeal verification code is %s. It expires in %d minutes.",
		code, minutesUntil(expiry, s.now().UTC()))
	if err := s.notifier.SendSMS(ctx, phone, body); err != nil {
		s.log.Error().Err(err).Str("user_id", identity.ID).Msg("phone code not sent")
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}

func (s *AuthService) sendResetEmail(ctx context.Context, identity *domain.Identity, token string, expiry time.Time) error {
	link, err := url.Parse(s.cfg.ResetPasswordURL)
	if err != nil {
		return fmt.Errorf("reset link: %w", err)
	}
	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	html, err := render(resetEmail, map[string]any{
		"Name":    identity.FirstName,
		"Link":    link.String(),
		"Minutes": minutesUntil(expiry, s.now().UTC()),
	})
	if err != nil {
		return err
	}
	if err := s.notifier.SendEmail(ctx, identity.Email, "Reset your password", html); err != nil {
		s.log.Error().Err(err).Str("user_id", identity.ID).Msg("reset email not sent")
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	return nil
}
