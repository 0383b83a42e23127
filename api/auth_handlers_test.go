package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cannerai/cannerd/internal/authbackend"
	"github.com/cannerai/cannerd/internal/authcode"
	"github.com/cannerai/cannerd/services"
)

const testJWTSecret = "handler-test-secret"

type authFixture struct {
	echo   *echo.Echo
	store  *authcode.MemoryStore
	tokens *services.TokenService
}

// newAuthFixture builds a fully routed server whose remote authority lives
// at backendURL. An unreachable URL simulates the no-backend case.
func newAuthFixture(t *testing.T, backendURL string) *authFixture {
	t.Helper()

	store := authcode.NewMemoryStore(0)
	t.Cleanup(store.Close)
	tokens := services.NewTokenService(testJWTSecret)
	remote := authbackend.NewClient(backendURL, time.Second)
	exchange := services.NewExchangeService(store, tokens, remote, time.Second)

	restAPI := NewAPI(Options{
		Codes:            store,
		Tokens:           tokens,
		Exchange:         exchange,
		Generator:        nil,
		DBPing:           func(context.Context) error { return nil },
		AuthFrontendURL:  "http://localhost:3000",
		EnableTestRoutes: true,
	})

	e := echo.New()
	restAPI.RegisterRoutes(e)
	return &authFixture{echo: e, store: store, tokens: tokens}
}

func (f *authFixture) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestExtensionLogin_Redirects(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/extension/login?extension_id=ext-1", nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:3000/extension-auth?extension_id=ext-1", rec.Header().Get(echo.HeaderLocation))
}

func TestGenerateCode(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	rec := f.postJSON("/api/auth/generate-code", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	code, _ := decodeBody(t, rec)["code"].(string)
	assert.GreaterOrEqual(t, len(code), 32)
	assert.Regexp(t, `^[A-Za-z0-9_-]+$`, code)
}

func TestGenerateCode_MissingUserID(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	rec := f.postJSON("/api/auth/generate-code", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user_id is required", decodeBody(t, rec)["error"])
}

func TestExchangeCode_FullFlow(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	rec := f.postJSON("/api/auth/generate-code", `{"user_id":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	code := decodeBody(t, rec)["code"].(string)

	// First exchange succeeds and returns a locally verifiable token.
	rec = f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, float64(86400), body["expires_in"])

	userID, err := f.tokens.Verify(body["jwt_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	// Replay is refused with the specific reuse message.
	rec = f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"`+code+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization code already used", decodeBody(t, rec)["error"])
}

func TestExchangeCode_ExpiredCode(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	require.NoError(t, f.store.Put(context.Background(), "old-code", "u1", -time.Second))

	rec := f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"old-code"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization code has expired", decodeBody(t, rec)["error"])
}

func TestExchangeCode_UnknownCodeBackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	backend.Close()
	f := newAuthFixture(t, backend.URL)

	rec := f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"never-issued"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired authorization code", decodeBody(t, rec)["error"])
}

func TestExchangeCode_MissingCode(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	rec := f.postJSON("/api/auth/extension/exchange-code", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "auth_code is required", decodeBody(t, rec)["error"])
}

func TestExchangeCode_ResolvedByBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "remote-user"})
	}))
	defer backend.Close()
	f := newAuthFixture(t, backend.URL)

	rec := f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"issued-elsewhere"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "remote-user", body["user_id"])
	assert.NotEmpty(t, body["jwt_token"])
}

func TestExchangeCode_BackendInvalidPayload(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer backend.Close()
	f := newAuthFixture(t, backend.URL)

	rec := f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"issued-elsewhere"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Invalid response from auth backend", decodeBody(t, rec)["error"])
}

func TestCreateTestCode(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	rec := f.postJSON("/test/create-test-code", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "test_user_123", body["user_id"])
	assert.NotEmpty(t, body["code"])
	assert.Contains(t, body["redirect_url"], body["code"])

	// The minted code is a real one.
	rec = f.postJSON("/api/auth/extension/exchange-code", `{"auth_code":"`+body["code"].(string)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test_user_123", decodeBody(t, rec)["user_id"])
}

func TestHealth(t *testing.T) {
	f := newAuthFixture(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["database_connected"])
}
