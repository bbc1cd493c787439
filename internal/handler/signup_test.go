package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/registry"
	"github.com/Amoako419/PhotoShare/internal/token"
	"github.com/Amoako419/PhotoShare/pkg/config"
	"github.com/Amoako419/PhotoShare/pkg/jwtutil"
)

// newTestHandler builds a handler against an in-memory database.
func newTestHandler(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Tenant{}, &model.User{}, &model.Album{}, &model.Photo{}))

	cfg := &config.Config{
		ServiceName: "photoshare",
		Server:      config.ServerConfig{Env: "development"},
		JWT: config.JWTConfig{
			SigningKey:           "test-signing-key",
			AccessTokenLifetime:  time.Hour,
			RefreshTokenLifetime: 7 * 24 * time.Hour,
		},
	}
	reg := registry.New(db)
	tokens := token.NewService(jwtutil.New(&cfg.JWT), reg, token.NewMemoryRevocationStore())

	return New(db, cfg, tokens, reg, nil, nil), db
}

func jsonContext(t *testing.T, method, target, body string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestAdminSignupLeavesNoChurchOnDuplicateEmail(t *testing.T) {
	h, db := newTestHandler(t)

	hashed, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		Email:    "taken@example.com",
		Password: string(hashed),
		Role:     model.RoleMember,
		Active:   true,
	}).Error)

	c := jsonContext(t, http.MethodPost, "/auth/admin-signup",
		`{"email":"taken@example.com","password":"longenough","church_name":"New Hope"}`)
	err = h.AdminSignup(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, err.(*echo.HTTPError).Code)

	// The rejected admin must not leave an orphan church behind.
	var churches int64
	require.NoError(t, db.Model(&model.Tenant{}).Count(&churches).Error)
	assert.Zero(t, churches)
}

func TestAdminSignupCreatesInactiveChurchWithAdmin(t *testing.T) {
	h, db := newTestHandler(t)

	c := jsonContext(t, http.MethodPost, "/auth/admin-signup",
		`{"email":"pastor@example.com","password":"longenough","church_name":"New Hope"}`)
	require.NoError(t, h.AdminSignup(c))

	var tenant model.Tenant
	require.NoError(t, db.First(&tenant).Error)
	assert.False(t, tenant.Active, "a new church starts inactive")
	assert.Len(t, tenant.Code, 8)

	var user model.User
	require.NoError(t, db.Where("email = ?", "pastor@example.com").First(&user).Error)
	assert.Equal(t, model.RoleAdmin, user.Role)
	require.NotNil(t, user.ChurchID)
	assert.Equal(t, tenant.ID, *user.ChurchID)
}

func TestCreateChurchRegeneratesCodeOnCollision(t *testing.T) {
	h, db := newTestHandler(t)

	require.NoError(t, db.Create(&model.Tenant{Name: "Old Church", Code: "TAKEN234"}).Error)

	codes := []string{"TAKEN234", "FRESH234"}
	i := 0
	newChurchCode = func() string {
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code
	}
	defer func() { newChurchCode = generateChurchCode }()

	c := jsonContext(t, http.MethodPost, "/platform/churches", `{"name":"New Church"}`)
	require.NoError(t, h.CreateChurch(c))

	var tenant model.Tenant
	require.NoError(t, db.Where("name = ?", "New Church").First(&tenant).Error)
	assert.Equal(t, "FRESH234", tenant.Code, "a collided code must be regenerated")
}
