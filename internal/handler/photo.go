package handler

import (
	"errors"
	"net/http"
	"strconv"
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

// ListPhotos returns the caller's church photos, optionally filtered by
// album, with pagination
func (h *Handler) ListPhotos(c echo.Context) error {
	defer prometheus.TrackDBOperation("list_photos")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	page, perPage := pagination(c)

	scoped, err := isolation.ScopedDB(h.DB.WithContext(c.Request().Context()), tc, &model.Photo{})
	if err != nil {
		return notFound("photo")
	}
	if albumID := c.QueryParam("album_id"); albumID != "" {
		id, convErr := strconv.Atoi(albumID)
		if convErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid album id")
		}
		scoped = scoped.Where("album_id = ?", id)
	}

	var photos []model.Photo
	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list photos")
	}
	if err := scoped.Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&photos).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list photos")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"photos":   photos,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// UploadPhoto handles a multipart photo upload: the file goes to the
// scoped object store, the metadata row to the database. The size limit
// is checked before anything is written anywhere.
func (h *Handler) UploadPhoto(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("upload_photo")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if file.Size > h.Storage.MaxUploadSize() {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return echo.NewHTTPError(http.StatusBadRequest, "only image uploads are accepted")
	}

	var albumID *uint
	if v := c.FormValue("album_id"); v != "" {
		id, convErr := strconv.Atoi(v)
		if convErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid album id")
		}
		// The album must exist in the caller's church before the photo
		// can reference it.
		uid := uint(id)
		scoped, scopeErr := isolation.ScopedDB(h.DB.WithContext(c.Request().Context()), tc, &model.Album{})
		if scopeErr != nil {
			return notFound("album")
		}
		var album model.Album
		if err := scoped.Where("id = ?", uid).First(&album).Error; err != nil {
			return notFound("album")
		}
		albumID = &uid
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()

	key, err := h.Storage.Upload(c.Request().Context(), tc.Tenant,
		"photos", file.Filename, contentType, file.Size, src)
	if err != nil {
		return storageError(c, err)
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = file.Filename
	}

	photo := &model.Photo{
		ChurchID:     tc.Tenant.ID,
		AlbumID:      albumID,
		Title:        title,
		Description:  c.FormValue("description"),
		Filename:     file.Filename,
		StorageKey:   key,
		FileSize:     file.Size,
		ContentType:  contentType,
		UploadedByID: tc.User.ID,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(photo).Error; err != nil {
		log.Error("photo record create failed", zap.Error(err))
		// The object is already in the store; remove it rather than
		// leave it orphaned.
		if delErr := h.Storage.Delete(c.Request().Context(), tc.Tenant, key); delErr != nil {
			log.Error("orphaned object cleanup failed",
				zap.String("key", key), zap.Error(delErr))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save photo")
	}

	log.Info("photo uploaded",
		zap.Uint("photo_id", photo.ID),
		zap.String("church_id", photo.ChurchID),
		zap.Int64("size", photo.FileSize))
	return c.JSON(http.StatusCreated, photo)
}

// GetPhoto returns one photo's metadata from the caller's church
func (h *Handler) GetPhoto(c echo.Context) error {
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	photo, err := h.loadPhoto(c, tc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, photo)
}

// PhotoURL returns a short-lived signed download URL for a photo. The
// storage service re-validates ownership against the object itself; a
// database row pointing at someone else's object still gets denied.
func (h *Handler) PhotoURL(c echo.Context) error {
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	photo, err := h.loadPhoto(c, tc)
	if err != nil {
		return err
	}
	if !photo.HasFile() {
		return notFound("file")
	}

	ttl := time.Duration(0)
	if v := c.QueryParam("ttl"); v != "" {
		if secs, convErr := strconv.Atoi(v); convErr == nil {
			ttl = time.Duration(secs) * time.Second
		}
	}

	url, granted, err := h.Storage.SignedURL(c.Request().Context(), tc.Tenant, photo.StorageKey, ttl)
	if err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"url":        url,
		"expires_in": int(granted.Seconds()),
	})
}

// UpdatePhoto updates photo metadata. Bound as a map so the tenant
// field can be stripped before the update runs.
func (h *Handler) UpdatePhoto(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("update_photo")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	photo, err := h.loadPhoto(c, tc)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	isolation.StripTenantField(c.Request().Context(), tc, payload)

	updates := map[string]interface{}{}
	for _, field := range []string{"title", "description", "is_public", "is_featured", "taken_at"} {
		if v, ok := payload[field]; ok {
			updates[field] = v
		}
	}
	if v, ok := payload["album_id"]; ok {
		// Reassignment to an album is only valid within the church.
		if v == nil {
			updates["album_id"] = nil
		} else if id, isNum := v.(float64); isNum {
			scoped, scopeErr := isolation.ScopedDB(h.DB.WithContext(c.Request().Context()), tc, &model.Album{})
			if scopeErr != nil {
				return notFound("album")
			}
			var album model.Album
			if err := scoped.Where("id = ?", uint(id)).First(&album).Error; err != nil {
				return notFound("album")
			}
			updates["album_id"] = uint(id)
		}
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, photo)
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(photo).
		Updates(updates).Error; err != nil {
		log.Error("photo update failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update photo")
	}
	return c.JSON(http.StatusOK, photo)
}

// DeletePhoto removes a photo record and its stored object
func (h *Handler) DeletePhoto(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("delete_photo")(time.Now())

	tc, err := tenantContext(c)
	if err != nil {
		return err
	}
	photo, err := h.loadPhoto(c, tc)
	if err != nil {
		return err
	}

	if photo.HasFile() {
		if err := h.Storage.Delete(c.Request().Context(), tc.Tenant, photo.StorageKey); err != nil {
			return storageError(c, err)
		}
	}
	if err := h.DB.WithContext(c.Request().Context()).Delete(photo).Error; err != nil {
		log.Error("photo delete failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete photo")
	}

	log.Info("photo deleted",
		zap.Uint("photo_id", photo.ID),
		zap.String("church_id", photo.ChurchID))
	return c.JSON(http.StatusOK, echo.Map{"message": "photo deleted"})
}

// loadPhoto fetches a photo through the scoped query and re-checks
// ownership on the loaded record.
func (h *Handler) loadPhoto(c echo.Context, tc *tenantctx.Context) (*model.Photo, error) {
	scoped, err := isolation.ScopedDB(h.DB.WithContext(c.Request().Context()), tc, &model.Photo{})
	if err != nil {
		return nil, notFound("photo")
	}

	var photo model.Photo
	if err := scoped.Where("id = ?", c.Param("id")).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("photo")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load photo")
	}
	if err := isolation.VerifyObject(c.Request().Context(), tc, &photo); err != nil {
		return nil, notFound("photo")
	}
	return &photo, nil
}
