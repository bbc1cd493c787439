package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/isolation"
	"github.com/Amoako419/PhotoShare/internal/middleware"
	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/logger"
)

// GetChurchSettings returns the caller's church profile
func (h *Handler) GetChurchSettings(c echo.Context) error {
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"church": tc.Tenant,
		"code":   tc.Tenant.Code,
	})
}

// UpdateChurchSettings updates the church profile. The payload is taken
// as a map so unknown and forbidden fields can be stripped; a tenant id
// in the payload is removed and logged, never applied.
func (h *Handler) UpdateChurchSettings(c echo.Context) error {
	log := logger.FromEcho(c)

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	isolation.StripTenantField(c.Request().Context(), tc, payload)

	updates := map[string]interface{}{}
	if name, ok := payload["name"].(string); ok && strings.TrimSpace(name) != "" {
		updates["name"] = strings.TrimSpace(name)
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"church": tc.Tenant})
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(tc.Tenant).
		Updates(updates).Error; err != nil {
		log.Error("failed to update church settings", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update settings")
	}

	log.Info("church settings updated", zap.String("church_id", tc.Tenant.ID))
	return c.JSON(http.StatusOK, echo.Map{"church": tc.Tenant})
}

// ActivateChurch completes church setup. The route sits outside the
// active-tenant gate on purpose: the admin of a not-yet-active church
// must be able to reach it. Admin role and tenant binding are checked
// here instead.
func (h *Handler) ActivateChurch(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := middleware.AuthUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	if !user.IsAdmin() || !tc.HasTenant() {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}
	if tc.Tenant.Active {
		return c.JSON(http.StatusOK, echo.Map{"church": tc.Tenant})
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(tc.Tenant).
		Update("active", true).Error; err != nil {
		log.Error("failed to activate church", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to activate church")
	}
	tc.Tenant.Active = true

	h.refreshActiveTenantsGauge(c)
	log.Info("church activated", zap.String("church_id", tc.Tenant.ID))
	return c.JSON(http.StatusOK, echo.Map{"church": tc.Tenant})
}

// UploadBranding stores the church logo or cover image. The file goes
// through the scoped storage service like any photo; only the key it
// lands on differs.
func (h *Handler) UploadBranding(c echo.Context) error {
	log := logger.FromEcho(c)

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}

	kind := c.FormValue("kind")
	if kind != "logo" && kind != "cover" {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be logo or cover")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()

	key, err := h.Storage.Upload(c.Request().Context(), tc.Tenant,
		"branding", file.Filename, file.Header.Get("Content-Type"), file.Size, src)
	if err != nil {
		return storageError(c, err)
	}

	column := "logo_path"
	if kind == "cover" {
		column = "cover_image_path"
	}
	if err := h.DB.WithContext(c.Request().Context()).Model(tc.Tenant).
		Update(column, key).Error; err != nil {
		log.Error("failed to save branding path", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save branding")
	}

	log.Info("branding updated",
		zap.String("church_id", tc.Tenant.ID),
		zap.String("kind", kind))
	return c.JSON(http.StatusOK, echo.Map{"message": "branding updated"})
}

// GetBranding returns signed URLs for the church's branding assets
func (h *Handler) GetBranding(c echo.Context) error {
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	return h.brandingResponse(c, tc.Tenant)
}

// PublicBranding returns login-page branding for a church code. Public,
// rate limited, and silent about unknown or disabled codes.
func (h *Handler) PublicBranding(c echo.Context) error {
	tenant, err := h.Registry.ActiveTenantByCode(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		return notFound("church")
	}
	return h.brandingResponse(c, tenant)
}

func (h *Handler) brandingResponse(c echo.Context, tenant *model.Tenant) error {
	resp := echo.Map{"church_name": tenant.Name}

	if tenant.LogoPath != "" {
		if url, _, err := h.Storage.SignedURL(c.Request().Context(), tenant, tenant.LogoPath, 10*time.Minute); err == nil {
			resp["logo_url"] = url
		}
	}
	if tenant.CoverImagePath != "" {
		if url, _, err := h.Storage.SignedURL(c.Request().Context(), tenant, tenant.CoverImagePath, 10*time.Minute); err == nil {
			resp["cover_url"] = url
		}
	}
	return c.JSON(http.StatusOK, resp)
}
