package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cannerai/cannerd/services"
)

const testSecret = "middleware-test-secret"

func newGuardedEcho(tokens *services.TokenService) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}, RequireAuth(tokens))
	return e
}

func doRequest(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	e := newGuardedEcho(services.NewTokenService(testSecret))

	rec := doRequest(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No authorization header"}`, rec.Body.String())
}

func TestRequireAuth_BadScheme(t *testing.T) {
	e := newGuardedEcho(services.NewTokenService(testSecret))

	rec := doRequest(e, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}

func TestRequireAuth_ValidToken(t *testing.T) {
	tokens := services.NewTokenService(testSecret)
	e := newGuardedEcho(tokens)

	token, err := tokens.Issue("user-9")
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-9", rec.Body.String())
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	tokens := services.NewTokenService(testSecret)
	e := newGuardedEcho(tokens)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-9",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	tokenValue, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+tokenValue)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Token has expired"}`, rec.Body.String())
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	e := newGuardedEcho(services.NewTokenService(testSecret))

	rec := doRequest(e, "Bearer definitely-not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
}
