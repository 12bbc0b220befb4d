package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

type SendGridConfig struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	// BaseURL overrides the v3 mail endpoint. Tests only.
	BaseURL string
}

// SendGrid sends HTML email through the SendGrid v3 mail API.
type SendGrid struct {
	cfg    SendGridConfig
	client *http.Client
}

func NewSendGrid(cfg SendGridConfig, breaker BreakerConfig, log zerolog.Logger) *SendGrid {
	if cfg.BaseURL == "" {
		cfg.BaseURL = sendGridURL
	}
	return &SendGrid{cfg: cfg, client: newBreakerClient("sendgrid", breaker, log)}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (s *SendGrid) SendEmail(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: to}}}},
		From:             sgAddress{Email: s.cfg.SenderEmail, Name: s.cfg.SenderName},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/html", Value: html}},
	})
	if err != nil {
		return fmt.Errorf("sendgrid: encode: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	if err := do(ctx, s.client, req); err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
