package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Amoako419/PhotoShare/internal/isolation"
	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/tenantctx"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

// AlbumRequest represents the album create request body
type AlbumRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsPublic    bool       `json:"is_public"`
	IsFeatured  bool       `json:"is_featured"`
	EventDate   *time.Time `json:"event_date"`
}

// ListAlbums returns the caller's church albums with pagination
func (h *Handler) ListAlbums(c echo.Context) error {
	defer prometheus.TrackDBOperation("list_albums")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	page, perPage := pagination(c)

	scoped, err := isolation.ScopedDB(h.DB.WithContext(c.Request().Context()), tc, &model.Album{})
	if err != nil {
		return notFound("album")
	}

	var albums []model.Album
	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list albums")
	}
	if err := scoped.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&albums).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list albums")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"albums":   albums,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// CreateAlbum creates an album in the caller's church. The tenant comes
// from the resolved context; nothing in the payload can change it.
func (h *Handler) CreateAlbum(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("create_album")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}

	req := new(AlbumRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	album := &model.Album{
		ChurchID:    tc.Tenant.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedByID: tc.User.ID,
		IsPublic:    req.IsPublic,
		IsFeatured:  req.IsFeatured,
		EventDate:   req.EventDate,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(album).Error; err != nil {
		log.Debug("album create failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusConflict, "an album with this title already exists")
	}

	log.Info("album created",
		zap.Uint("album_id", album.ID),
		zap.String("church_id", album.ChurchID))
	return c.JSON(http.StatusCreated, album)
}

// GetAlbum returns one album from the caller's church
func (h *Handler) GetAlbum(c echo.Context) error {
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	album, err := h.loadAlbum(c, tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, album)
}

// UpdateAlbum updates an album. The payload is bound as a map so the
// tenant field can be stripped before anything touches the database.
func (h *Handler) UpdateAlbum(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("update_album")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	album, err := h.loadAlbum(c, tc)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	isolation.StripTenantField(c.Request().Context(), tc, payload)

	updates := map[string]interface{}{}
	for _, field := range []string{"title", "description", "is_public", "is_featured", "event_date"} {
		if v, ok := payload[field]; ok {
			updates[field] = v
		}
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, album)
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(album).
		Updates(updates).Error; err != nil {
		log.Error("album update failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusConflict, "an album with this title already exists")
	}
	return c.JSON(http.StatusOK, album)
}

// DeleteAlbum removes an album. Photos keep their records; they just
// lose the album grouping.
func (h *Handler) DeleteAlbum(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("delete_album")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	album, err := h.loadAlbum(c, tc)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.DB.WithContext(ctx).Model(&model.Photo{}).
		Where("church_id = ? AND album_id = ?", tc.Tenant.ID, album.ID).
		Update("album_id", nil).Error; err != nil {
		log.Error("failed to detach photos", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete album")
	}
	if err := h.DB.WithContext(ctx).Delete(album).Error; err != nil {
		log.Error("album delete failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete album")
	}

	log.Info("album deleted",
		zap.Uint("album_id", album.ID),
		zap.String("church_id", album.ChurchID))
	return c.JSON(http.StatusOK, echo.Map{"message": "album deleted"})
}

// loadAlbum fetches an album through the scoped query and then runs the
// object-level ownership check on the result. Both layers must agree;
// a record outside the caller's church reads as not-found.
func (h *Handler) loadAlbum(c echo.Context, tc *tenantctx.Context) (*model.Album, error) {
	scoped, err := isolation.ScopedDB(h.DB.WithContext(c.Request().Context()), tc, &model.Album{})
	if err != nil {
		return nil, notFound("album")
	}

	var album model.Album
	if err := scoped.Where("id = ?", c.Param("id")).First(&album).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("album")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load album")
	}
	if err := isolation.VerifyObject(c.Request().Context(), tc, &album); err != nil {
		return nil, notFound("album")
	}
	return &album, nil
}
