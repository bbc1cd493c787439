package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/isolation"
	"github.com/Amoako419/PhotoShare/internal/tenantctx"
	"github.com/Amoako419/PhotoShare/pkg/jwtutil"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

// ResolveTenant builds the tenant context for an authenticated request.
// The tenant comes from the principal's current church assignment, not
// from the token claims, so reassignment and deactivation take effect
// immediately. A principal whose assigned tenant no longer resolves is
// rejected outright.
func ResolveTenant(tenants TenantLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := AuthUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			claims, _ := c.Get("auth_claims").(*jwtutil.Claims)

			tc := &tenantctx.Context{User: user, Claims: claims}

			if user.ChurchID != nil {
				tenant, err := tenants.TenantByID(c.Request().Context(), *user.ChurchID)
				if err != nil {
					logger.FromEcho(c).Error("assigned tenant did not resolve",
						logger.SecurityEvent("unresolvable_tenant"),
						zap.Uint("user_id", user.ID),
						zap.String("church_id", *user.ChurchID))
					prometheus.RecordSecurityEvent("unresolvable_tenant")
					return echo.NewHTTPError(http.StatusForbidden, "access denied")
				}
				tc.Tenant = tenant
			}

			tenantctx.Store(c, tc)
			return next(c)
		}
	}
}

// RequireTenant gates tenant-scoped routes behind the ordered isolation
// checks. Must run after Authenticate and ResolveTenant.
func RequireTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc, resolved := tenantctx.FromEcho(c)
			if _, err := isolation.RequireTenant(c.Request().Context(), tc, resolved); err != nil {
				return tenantError(err)
			}
			return next(c)
		}
	}
}

// RequireAdmin gates tenant admin routes. Runs on top of RequireTenant
// semantics: the caller must hold an active tenant binding and an admin
// role within it.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc, resolved := tenantctx.FromEcho(c)
			if _, err := isolation.RequireTenant(c.Request().Context(), tc, resolved); err != nil {
				return tenantError(err)
			}
			if !tc.User.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

// RequireSuperAdmin gates platform routes. Superadmins have no tenant
// binding; this is the only surface their privilege is valid on.
func RequireSuperAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := AuthUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !user.IsSuperAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "platform access required")
			}
			return next(c)
		}
	}
}

func tenantError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, isolation.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, isolation.ErrTenantDisabled):
		return echo.NewHTTPError(http.StatusForbidden, "church account is disabled")
	default:
		// Platform bypass, missing tenant and wiring defects all look
		// the same to the client.
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
}
