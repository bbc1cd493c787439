package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

// Platform handlers manage churches across the whole installation.
// They run behind RequireSuperAdmin and operate on the tenants table
// directly; they never touch tenant-scoped collections, which stay
// behind the isolation layer even for platform operators.

// CreateChurchRequest represents the platform church creation request
type CreateChurchRequest struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// CreateChurch provisions a new church with a generated code
func (h *Handler) CreateChurch(c echo.Context) error {
	log := logger.FromEcho(c)

	req := new(CreateChurchRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "church name is required")
	}

	tenant := &model.Tenant{
		Name:   strings.TrimSpace(req.Name),
		Active: req.Active,
	}
	if err := createTenantWithCode(h.DB.WithContext(c.Request().Context()), tenant); err != nil {
		log.Error("failed to create church", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create church")
	}

	h.refreshActiveTenantsGauge(c)
	log.Info("church created",
		zap.String("church_id", tenant.ID),
		zap.String("church_name", tenant.Name))
	return c.JSON(http.StatusCreated, tenant)
}

// ListChurches returns all churches with pagination
func (h *Handler) ListChurches(c echo.Context) error {
	page, perPage := pagination(c)

	var tenants []model.Tenant
	var total int64

	db := h.DB.WithContext(c.Request().Context()).Model(&model.Tenant{})
	if v := c.QueryParam("active"); v != "" {
		db = db.Where("active = ?", v == "true")
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("name ILIKE ?", "%"+q+"%")
	}
	if err := db.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list churches")
	}
	if err := db.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&tenants).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list churches")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"churches": tenants,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetChurch returns one church by id
func (h *Handler) GetChurch(c echo.Context) error {
	tenant, err := h.loadChurch(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tenant)
}

// ChurchStats returns per-church usage counts
func (h *Handler) ChurchStats(c echo.Context) error {
	tenant, err := h.loadChurch(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var users, albums, photos, storageBytes int64
	h.DB.WithContext(ctx).Model(&model.User{}).Where("church_id = ?", tenant.ID).Count(&users)
	h.DB.WithContext(ctx).Model(&model.Album{}).Where("church_id = ?", tenant.ID).Count(&albums)
	h.DB.WithContext(ctx).Model(&model.Photo{}).Where("church_id = ?", tenant.ID).Count(&photos)
	h.DB.WithContext(ctx).Model(&model.Photo{}).Where("church_id = ?", tenant.ID).
		Select("COALESCE(SUM(file_size), 0)").Scan(&storageBytes)

	return c.JSON(http.StatusOK, echo.Map{
		"church":        tenant,
		"users":         users,
		"albums":        albums,
		"photos":        photos,
		"storage_bytes": storageBytes,
	})
}

// SetChurchStatus activates or deactivates a church. Deactivation is
// not retroactive for already issued tokens; it takes effect at the
// isolation layer on the next request.
func (h *Handler) SetChurchStatus(c echo.Context) error {
	log := logger.FromEcho(c)

	tenant, err := h.loadChurch(c)
	if err != nil {
		return err
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(tenant).
		Update("active", req.Active).Error; err != nil {
		log.Error("failed to update church status", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update church")
	}
	tenant.Active = req.Active

	h.refreshActiveTenantsGauge(c)
	log.Info("church status changed",
		zap.String("church_id", tenant.ID),
		zap.Bool("active", req.Active))
	return c.JSON(http.StatusOK, tenant)
}

// RotateChurchCode replaces a church's join code. Outstanding invites
// using the old code stop working immediately.
func (h *Handler) RotateChurchCode(c echo.Context) error {
	log := logger.FromEcho(c)

	tenant, err := h.loadChurch(c)
	if err != nil {
		return err
	}

	var err2 error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := newChurchCode()
		err2 = h.DB.WithContext(c.Request().Context()).Model(tenant).
			Update("code", code).Error
		if err2 == nil {
			tenant.Code = code
			break
		}
		if !errors.Is(err2, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err2 != nil {
		log.Error("failed to rotate church code", zap.Error(err2))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to rotate code")
	}

	log.Info("church code rotated", zap.String("church_id", tenant.ID))
	return c.JSON(http.StatusOK, tenant)
}

func (h *Handler) loadChurch(c echo.Context) (*model.Tenant, error) {
	var tenant model.Tenant
	err := h.DB.WithContext(c.Request().Context()).
		Where("id = ?", c.Param("id")).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("church")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load church")
	}
	return &tenant, nil
}

func (h *Handler) refreshActiveTenantsGauge(c echo.Context) {
	var active int64
	if err := h.DB.WithContext(c.Request().Context()).Model(&model.Tenant{}).
		Where("active = ?", true).Count(&active).Error; err == nil {
		prometheus.UpdateActiveTenants(active)
	}
}

func pagination(c echo.Context) (page, perPage int) {
	page = 1
	perPage = 20
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && v > 0 && v <= 100 {
		perPage = v
	}
	return page, perPage
}
