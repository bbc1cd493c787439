package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateChurchCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := generateChurchCode()
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should be effectively unique")
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, validateCredentials("user@example.com", "longenough"))

	err := validateCredentials("", "longenough")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, err.(*echo.HTTPError).Code)

	err = validateCredentials("not-an-email", "longenough")
	require.Error(t, err)

	err = validateCredentials("user@example.com", "short")
	require.Error(t, err)
	assert.Contains(t, err.(*echo.HTTPError).Message, "8 characters")
}

func TestCodeAlphabetAvoidsLookalikes(t *testing.T) {
	for _, forbidden := range []string{"0", "O", "1", "I"} {
		assert.False(t, strings.Contains(codeAlphabet, forbidden))
	}
}
