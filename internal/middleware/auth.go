// Package middleware provides the request pipeline: request ids,
// authentication, tenant resolution and rate limiting. Authentication
// and tenant resolution are separate stages so platform routes can
// authenticate without binding a tenant.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/token"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

// AccessCookieName is the cookie carrying the access token.
const AccessCookieName = "access_token"

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

// UserLoader loads the current state of a principal. Authentication
// re-reads the principal on every request so deactivation takes effect
// immediately, not at token expiry.
type UserLoader interface {
	UserByID(ctx context.Context, id uint) (*model.User, error)
}

// TenantLoader loads the current state of a tenant.
type TenantLoader interface {
	TenantByID(ctx context.Context, id string) (*model.Tenant, error)
}

// Authenticate validates the access token from the cookie or the
// Authorization header and attaches the principal to the request.
// Requests without a valid token are rejected with 401.
func Authenticate(tokens *token.Service, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			raw := extractAccessToken(c)
			if raw == "" {
				prometheus.RecordAuthError("missing_token")
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			claims, err := tokens.ValidateAccess(raw)
			if err != nil {
				prometheus.RecordAuthError("invalid_token")
				log.Debug("access token rejected", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			user, err := users.UserByID(c.Request().Context(), claims.UserID)
			if err != nil {
				prometheus.RecordAuthError("unknown_principal")
				log.Warn("token for unknown principal",
					logger.SecurityEvent("unknown_principal"),
					zap.Uint("user_id", claims.UserID))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			if !user.Active {
				prometheus.RecordAuthError("disabled_principal")
				return echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
			}

			c.Set("auth_user", user)
			c.Set("auth_claims", claims)
			return next(c)
		}
	}
}

func extractAccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// AuthUser returns the authenticated principal attached by Authenticate.
func AuthUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get("auth_user").(*model.User)
	return user, ok && user != nil
}
