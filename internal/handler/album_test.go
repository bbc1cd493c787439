package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amoako419/PhotoShare/internal/isolation"
	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/tenantctx"
)

func memberListContext(t *testing.T, tenant *model.Tenant) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/albums", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	tenantctx.Store(c, &tenantctx.Context{
		User:   &model.User{ID: 1, Email: "m@example.com", ChurchID: &tenant.ID, Role: model.RoleMember, Active: true},
		Tenant: tenant,
	})
	return c
}

func TestListAlbumsReturnsScopedRows(t *testing.T) {
	isolation.MustRegister(&model.Album{})
	h, db := newTestHandler(t)

	mine := &model.Tenant{Name: "Mine", Code: "MINE2345", Active: true}
	other := &model.Tenant{Name: "Other", Code: "OTHR2345", Active: true}
	require.NoError(t, db.Create(mine).Error)
	require.NoError(t, db.Create(other).Error)
	require.NoError(t, db.Create(&model.Album{ChurchID: mine.ID, Title: "Ours", CreatedByID: 1}).Error)
	require.NoError(t, db.Create(&model.Album{ChurchID: other.ID, Title: "Theirs", CreatedByID: 2}).Error)

	c := memberListContext(t, mine)
	require.NoError(t, h.ListAlbums(c))

	body := c.Response().Writer.(*httptest.ResponseRecorder).Body.String()
	assert.Contains(t, body, "Ours")
	assert.NotContains(t, body, "Theirs", "another church's albums must never appear")
	assert.Contains(t, body, `"total":1`)
}

func TestListAlbumsSurfacesCountFailure(t *testing.T) {
	isolation.MustRegister(&model.Album{})
	h, db := newTestHandler(t)

	tenant := &model.Tenant{Name: "Mine", Code: "MINE3456", Active: true}
	require.NoError(t, db.Create(tenant).Error)
	require.NoError(t, db.Exec("DROP TABLE albums").Error)

	err := h.ListAlbums(memberListContext(t, tenant))
	require.Error(t, err, "a failed count must not report an empty page")
	assert.Equal(t, http.StatusInternalServerError, err.(*echo.HTTPError).Code)
}
