// Package notify delivers verification and reset messages through SendGrid (email) and
// Twilio (SMS). Each provider's HTTP client sits behind its own circuit breaker.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const requestTimeout = 10 * time.Second

type BreakerConfig struct {
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// breakerTransport fails fast while the provider's breaker is open. 5xx answers count as
// failures; 4xx answers are the caller's fault and do not trip it.
type breakerTransport struct {
	cb   *gobreaker.CircuitBreaker
	base http.RoundTripper
}

func (t breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.cb.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, fmt.Errorf("upstream status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if resp, ok := res.(*http.Response); ok && resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	return res.(*http.Response), nil
}

// newBreakerClient returns an http.Client whose requests go through a breaker named name.
func newBreakerClient(name string, cfg BreakerConfig, log zerolog.Logger) *http.Client {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: breakerTransport{cb: gobreaker.NewCircuitBreaker(st), base: http.DefaultTransport},
	}
}

// do sends req and drains the response, returning an error for any non-2xx status.
func do(ctx context.Context, client *http.Client, req *http.Request) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	return nil
}
