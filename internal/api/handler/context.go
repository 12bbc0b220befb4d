package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/straightdeal/marketplace-api/internal/api/metrics"
	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

// principal returns the caller resolved by the authorization gate. A missing principal
// means the route was mounted without the gate and is reported as unauthenticated.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(c.Request().Context())
	if !ok || p.UserID == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return p, nil
}

// observe records the outcome of an identity operation and returns err unchanged.
func observe(operation string, err error) error {
	if errors.Is(err, domain.ErrRateLimited) {
		metrics.RateLimitedTotal.WithLabelValues(metrics.ScopeOTP).Inc()
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeRejected
		if code, _, _ := statusOf(err); code >= 500 {
			outcome = metrics.OutcomeError
		}
	}
	metrics.AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
	return err
}
