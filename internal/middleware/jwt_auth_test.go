package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideate-app/backend/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Email:  "maya@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runProtected(authHeader string) (*httptest.ResponseRecorder, *models.JwtCustomClaims) {
	e := echo.New()
	var captured *models.JwtCustomClaims
	e.GET("/protected", func(c echo.Context) error {
		captured, _ = c.Get("user").(*models.JwtCustomClaims)
		return c.NoContent(http.StatusOK)
	}, JWTAuthMiddleware(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, captured
}

func TestJWTAuthValidToken(t *testing.T) {
	token := signToken(t, testSecret, "64f000000000000000000001", time.Now().Add(time.Hour))
	rec, claims := runProtected("Bearer " + token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "64f000000000000000000001", claims.UserID)
	assert.Equal(t, "maya@example.com", claims.Email)
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := runProtected("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMalformedHeader(t *testing.T) {
	rec, _ := runProtected("Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", "64f000000000000000000001", time.Now().Add(time.Hour))
	rec, _ := runProtected("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, "64f000000000000000000001", time.Now().Add(-time.Hour))
	rec, _ := runProtected("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
