package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amoako419/PhotoShare/pkg/config"
)

func testJWT(access, refresh time.Duration) *JWT {
	return New(&config.JWTConfig{
		SigningKey:           "test-signing-key",
		AccessTokenLifetime:  access,
		RefreshTokenLifetime: refresh,
	})
}

func TestGenerateAndValidate(t *testing.T) {
	j := testJWT(time.Hour, 7*24*time.Hour)
	churchID := "b7a4c9f0-0000-0000-0000-000000000001"

	raw, err := j.Generate(42, "pastor@example.com", &churchID, "First Church", "admin", KindAccess)
	require.NoError(t, err)

	claims, err := j.Validate(raw, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "pastor@example.com", claims.Email)
	require.NotNil(t, claims.ChurchID)
	assert.Equal(t, churchID, *claims.ChurchID)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID, "every token needs a jti")
}

func TestValidateRejectsWrongKind(t *testing.T) {
	j := testJWT(time.Hour, 7*24*time.Hour)

	refresh, err := j.Generate(1, "a@example.com", nil, "", "member", KindRefresh)
	require.NoError(t, err)

	_, err = j.Validate(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	j := testJWT(-time.Minute, -time.Minute)

	raw, err := j.Generate(1, "a@example.com", nil, "", "member", KindAccess)
	require.NoError(t, err)

	_, err = j.Validate(raw, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	j := testJWT(time.Hour, time.Hour)
	other := New(&config.JWTConfig{
		SigningKey:          "different-key",
		AccessTokenLifetime: time.Hour,
	})

	raw, err := j.Generate(1, "a@example.com", nil, "", "member", KindAccess)
	require.NoError(t, err)

	_, err = other.Validate(raw, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNoSigningKey(t *testing.T) {
	j := New(&config.JWTConfig{})

	_, err := j.Generate(1, "a@example.com", nil, "", "member", KindAccess)
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestUniqueTokenIDs(t *testing.T) {
	j := testJWT(time.Hour, time.Hour)

	first, err := j.Generate(1, "a@example.com", nil, "", "member", KindRefresh)
	require.NoError(t, err)
	second, err := j.Generate(1, "a@example.com", nil, "", "member", KindRefresh)
	require.NoError(t, err)

	c1, err := j.Validate(first, KindRefresh)
	require.NoError(t, err)
	c2, err := j.Validate(second, KindRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}
