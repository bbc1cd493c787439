// Package handler implements the HTTP API. Handlers are methods on an
// injected Handler so every dependency is explicit and swappable in
// tests. Tenant-scoped handlers read the resolved tenant context and go
// through the isolation layer for every query; cross-tenant denials
// surface to clients as not-found.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/middleware"
	"github.com/Amoako419/PhotoShare/internal/rate"
	"github.com/Amoako419/PhotoShare/internal/registry"
	"github.com/Amoako419/PhotoShare/internal/storage"
	"github.com/Amoako419/PhotoShare/internal/tenantctx"
	"github.com/Amoako419/PhotoShare/internal/token"
	"github.com/Amoako419/PhotoShare/pkg/config"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"gorm.io/gorm"
)

// Handler carries the dependencies shared by all HTTP handlers.
type Handler struct {
	DB       *gorm.DB
	Config   *config.Config
	Tokens   *token.Service
	Registry *registry.Registry
	Storage  *storage.Service
	Limiter  rate.Limiter
}

// New creates a Handler with its dependencies
func New(db *gorm.DB, cfg *config.Config, tokens *token.Service, reg *registry.Registry, store *storage.Service, limiter rate.Limiter) *Handler {
	return &Handler{
		DB:       db,
		Config:   cfg,
		Tokens:   tokens,
		Registry: reg,
		Storage:  store,
		Limiter:  limiter,
	}
}

// setAuthCookies writes the token pair as httpOnly cookies. SameSite
// Lax keeps the tokens off cross-site requests; Secure is tied to the
// environment so local development over plain HTTP still works.
func (h *Handler) setAuthCookies(c echo.Context, pair token.Pair) {
	secure := h.Config.Server.IsProduction()

	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookieName,
		Value:    pair.Access,
		Path:     "/",
		MaxAge:   int(h.Tokens.AccessLifetime().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     middleware.RefreshCookieName,
		Value:    pair.Refresh,
		Path:     "/",
		MaxAge:   int(h.Tokens.RefreshLifetime().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires both token cookies.
func (h *Handler) clearAuthCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessCookieName, middleware.RefreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   h.Config.Server.IsProduction(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// tenantContext returns the resolved tenant context or a client-safe
// error. Handlers behind RequireTenant can rely on the context being
// present; this guards the ones that are not.
func tenantContext(c echo.Context) (*tenantctx.Context, error) {
	tc, ok := tenantctx.FromEcho(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return tc, nil
}

// notFound is the uniform response for records that do not exist and
// for records the caller is not allowed to see. The two cases must be
// indistinguishable.
func notFound(resource string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, resource+" not found")
}

// storageError maps storage service errors to client responses. An
// ownership denial answers not-found so object existence is never
// confirmed across a tenant boundary.
func storageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrPermissionDenied):
		return notFound("file")
	default:
		logger.FromEcho(c).Error("object storage failure", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "storage unavailable")
	}
}
