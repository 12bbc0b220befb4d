package ports

import "context"

// Notifier delivers email and SMS. Implementations report delivery failure as an error;
// retries are their own concern.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, html string) error
	SendSMS(ctx context.Context, to, body string) error
}
