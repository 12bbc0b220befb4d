package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
	"github.com/straightdeal/marketplace-api/internal/core/ports"
)

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrUnauthorized
			}
			if _, ok := allowed[p.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// Authorize chains Auth and, when roles are given, RBAC.
func Authorize(verifier ports.TokenCodec, opts AuthOptions, roles ...domain.Role) echo.MiddlewareFunc {
	auth := Auth(verifier, opts)
	if len(roles) == 0 {
		return auth
	}
	rbac := RBAC(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return auth(rbac(next))
	}
}
