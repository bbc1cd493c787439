package handler

import (
	"crypto/rand"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Amoako419/PhotoShare/internal/middleware"
	"github.com/Amoako419/PhotoShare/internal/model"
	"github.com/Amoako419/PhotoShare/internal/token"
	"github.com/Amoako419/PhotoShare/pkg/logger"
	"github.com/Amoako419/PhotoShare/prometheus"
)

// SignupRequest represents the two-step signup request. The church code
// is optional; a user without one stays unassigned until AssignChurch.
type SignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ChurchCode string `json:"church_code"`
}

// MemberSignupRequest represents the single-step member signup request
type MemberSignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ChurchCode string `json:"church_code"`
}

// AdminSignupRequest creates a new church together with its first admin
type AdminSignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ChurchName string `json:"church_name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles user registration. With a church code the user joins
// that church as a member; without one the account is created
// unassigned and completes the flow later through AssignChurch.
func (h *Handler) Signup(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordSignup("signup")

	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return err
	}

	var tenant *model.Tenant
	if strings.TrimSpace(req.ChurchCode) != "" {
		var err error
		tenant, err = h.Registry.ActiveTenantByCode(c.Request().Context(), req.ChurchCode)
		if err != nil {
			// Invalid and disabled codes get the same answer.
			return echo.NewHTTPError(http.StatusBadRequest, "invalid church code")
		}
	}

	user, err := h.createUser(c, h.DB, req.Email, req.Password, req.FirstName, req.LastName, model.RoleMember, tenant)
	if err != nil {
		return err
	}

	log.Info("user registered",
		zap.Uint("user_id", user.ID),
		zap.Bool("church_assigned", tenant != nil))
	return h.respondWithTokens(c, http.StatusCreated, user, tenant)
}

// MemberSignup handles single-step member registration: the church code
// is required and must resolve to an active church.
func (h *Handler) MemberSignup(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordSignup("member_signup")

	req := new(MemberSignupRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return err
	}
	if strings.TrimSpace(req.ChurchCode) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "church code is required")
	}

	tenant, err := h.Registry.ActiveTenantByCode(c.Request().Context(), req.ChurchCode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid church code")
	}

	user, err := h.createUser(c, h.DB, req.Email, req.Password, req.FirstName, req.LastName, model.RoleMember, tenant)
	if err != nil {
		return err
	}

	log.Info("member registered",
		zap.Uint("user_id", user.ID),
		zap.String("church_id", tenant.ID))
	return h.respondWithTokens(c, http.StatusCreated, user, tenant)
}

// AdminSignup creates a new church together with its first admin. The
// church starts inactive; a platform operator activates it after
// review, and member signups against its code are refused until then.
func (h *Handler) AdminSignup(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordSignup("admin_signup")

	req := new(AdminSignupRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		return err
	}
	if strings.TrimSpace(req.ChurchName) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "church name is required")
	}

	tenant := &model.Tenant{
		Name:   strings.TrimSpace(req.ChurchName),
		Active: false,
	}

	// Church and admin are created atomically: a rejected admin (the
	// duplicate email case) must not leave an orphan church behind.
	var user *model.User
	txErr := h.DB.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		if err := createTenantWithCode(tx, tenant); err != nil {
			log.Error("failed to create church", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to create church")
		}
		created, err := h.createUser(c, tx, req.Email, req.Password, req.FirstName, req.LastName, model.RoleAdmin, tenant)
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create church")
	}

	log.Info("church registered",
		zap.Uint("user_id", user.ID),
		zap.String("church_id", tenant.ID),
		zap.String("church_name", tenant.Name))
	return h.respondWithTokens(c, http.StatusCreated, user, tenant)
}

// AssignChurch completes the two-step signup: an authenticated user
// without a church submits a code and joins that church as a member.
func (h *Handler) AssignChurch(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := middleware.AuthUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if user.ChurchID != nil {
		return echo.NewHTTPError(http.StatusConflict, "account already belongs to a church")
	}
	if user.IsSuperAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "platform accounts cannot join a church")
	}

	var req struct {
		ChurchCode string `json:"church_code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	tenant, err := h.Registry.ActiveTenantByCode(c.Request().Context(), req.ChurchCode)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid church code")
	}

	if err := h.DB.WithContext(c.Request().Context()).Model(user).
		Update("church_id", tenant.ID).Error; err != nil {
		log.Error("failed to assign church", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to join church")
	}
	user.ChurchID = &tenant.ID

	log.Info("church assigned",
		zap.Uint("user_id", user.ID),
		zap.String("church_id", tenant.ID))
	return h.respondWithTokens(c, http.StatusOK, user, tenant)
}

// ValidateCode checks a church code without creating anything. Public
// and rate limited; disabled churches answer the same as unknown codes.
func (h *Handler) ValidateCode(c echo.Context) error {
	var req struct {
		ChurchCode string `json:"church_code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	tenant, err := h.Registry.ActiveTenantByCode(c.Request().Context(), req.ChurchCode)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"valid": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":       true,
		"church_name": tenant.Name,
	})
}

// Login authenticates a user and sets the token cookies
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	user, err := h.Registry.UserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		prometheus.RecordAuthError("invalid_credentials")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		prometheus.RecordAuthError("invalid_credentials")
		log.Debug("password mismatch", zap.Uint("user_id", user.ID))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !user.Active {
		prometheus.RecordAuthError("disabled_principal")
		return echo.NewHTTPError(http.StatusUnauthorized, "account disabled")
	}

	var tenant *model.Tenant
	if user.ChurchID != nil {
		tenant, err = h.Registry.TenantByID(c.Request().Context(), *user.ChurchID)
		if err != nil {
			log.Error("login for user with unresolvable church",
				zap.Uint("user_id", user.ID),
				zap.String("church_id", *user.ChurchID))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		// Members of a disabled church cannot log in. Admins can; they
		// need a session to complete or re-complete setup.
		if !tenant.Active && !user.IsAdmin() {
			prometheus.RecordAuthError("tenant_disabled")
			return echo.NewHTTPError(http.StatusForbidden, "church account is disabled")
		}
	}

	log.Info("user logged in", zap.Uint("user_id", user.ID))
	return h.respondWithTokens(c, http.StatusOK, user, tenant)
}

// Refresh rotates the refresh token and sets a fresh cookie pair. A
// replayed or revoked token clears the cookies outright; the client
// must log in again.
func (h *Handler) Refresh(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTokenOperation("rotate")

	raw := extractRefreshToken(c)
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token required")
	}

	pair, err := h.Tokens.Rotate(c.Request().Context(), raw)
	if err != nil {
		h.clearAuthCookies(c)
		if errors.Is(err, token.ErrRevokedToken) {
			prometheus.RecordAuthError("refresh_replay")
			return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
		}
		prometheus.RecordAuthError("invalid_refresh")
		log.Debug("refresh rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	}

	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{"message": "token refreshed"})
}

// Logout revokes the refresh token and clears the cookies. Always
// succeeds from the client's point of view.
func (h *Handler) Logout(c echo.Context) error {
	prometheus.RecordTokenOperation("revoke")

	if raw := extractRefreshToken(c); raw != "" {
		if err := h.Tokens.Revoke(c.Request().Context(), raw); err != nil {
			logger.FromEcho(c).Error("revocation store unavailable on logout", zap.Error(err))
		}
	}
	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's profile and church
func (h *Handler) Me(c echo.Context) error {
	tc, err := tenantContext(c)
	if err != nil {
		return err
	}

	resp := echo.Map{"user": tc.User}
	if tc.HasTenant() {
		resp["church"] = tc.Tenant
	}
	return c.JSON(http.StatusOK, resp)
}

// createUser hashes the password and inserts the user on the given
// handle (plain or transactional), mapping the unique email constraint
// to a conflict response.
func (h *Handler) createUser(c echo.Context, db *gorm.DB, email, password, firstName, lastName, role string, tenant *model.Tenant) (*model.User, error) {
	log := logger.FromEcho(c)

	// The lookup runs on the same handle as the insert so it works
	// inside a transaction too; the unique constraint still backstops
	// the race between check and insert.
	var existing model.User
	err := db.WithContext(c.Request().Context()).
		Where("email = ?", model.NormalizeEmail(email)).First(&existing).Error
	if err == nil {
		return nil, echo.NewHTTPError(http.StatusConflict, "email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("email lookup failed", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to create account")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to create account")
	}

	user := &model.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Role:      role,
		Active:    true,
	}
	if tenant != nil {
		user.ChurchID = &tenant.ID
	}

	if err := db.WithContext(c.Request().Context()).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to create account")
	}
	return user, nil
}

// respondWithTokens issues a pair, sets the cookies and returns the
// profile payload.
func (h *Handler) respondWithTokens(c echo.Context, status int, user *model.User, tenant *model.Tenant) error {
	prometheus.RecordTokenOperation("issue")

	pair, err := h.Tokens.Issue(user, tenant)
	if err != nil {
		logger.FromEcho(c).Error("failed to issue tokens", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue tokens")
	}
	h.setAuthCookies(c, pair)

	resp := echo.Map{"user": user}
	if tenant != nil {
		resp["church"] = tenant
	}
	return c.JSON(status, resp)
}

func extractRefreshToken(c echo.Context) string {
	if cookie, err := c.Cookie(middleware.RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "a valid email is required")
	}
	if len(password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	return nil
}

// Church codes are 8 uppercase alphanumerics drawn from a set without
// lookalike characters.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Swappable so tests can force code collisions.
var newChurchCode = generateChurchCode

func generateChurchCode() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process has bigger problems.
		panic(err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

// codeAttempts bounds the regenerate loop on code collisions. With a
// 32^8 space, hitting the bound means something other than luck broke.
const codeAttempts = 5

// createTenantWithCode inserts a tenant, regenerating the join code on
// a unique-constraint collision.
func createTenantWithCode(db *gorm.DB, tenant *model.Tenant) error {
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		tenant.Code = newChurchCode()
		err = db.Create(tenant).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}
