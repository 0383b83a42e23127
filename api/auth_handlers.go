package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	apierrors "github.com/cannerai/cannerd/errors"
	"github.com/cannerai/cannerd/internal/authbackend"
	"github.com/cannerai/cannerd/internal/authcode"
)

const testUserID = "test_user_123"

// ExtensionLoginHandler starts the extension login flow by sending the
// browser to the web app's extension-auth page.
func (a *API) ExtensionLoginHandler(c echo.Context) error {
	extensionID := c.QueryParam("extension_id")
	redirectURL := fmt.Sprintf("%s/extension-auth?extension_id=%s", a.authFrontendURL, extensionID)
	return c.Redirect(http.StatusFound, redirectURL)
}

// GenerateCodeHandler mints a short-lived authorization code. Called by the
// web app after the user logs in; the code travels to the extension which
// exchanges it for a token.
func (a *API) GenerateCodeHandler(c echo.Context) error {
	var req generateCodeRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("user_id is required"))
	}

	ctx := c.Request().Context()
	code, err := authcode.GenerateCode()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate authorization code")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to generate authorization code"))
	}
	if err := a.codes.Put(ctx, code, req.UserID, authcode.DefaultTTL); err != nil {
		log.Error().Err(err).Msg("Failed to store authorization code")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to store authorization code"))
	}

	// Opportunistic sweep; codes are short-lived and volume is low.
	if err := a.codes.SweepExpired(ctx); err != nil {
		log.Warn().Err(err).Msg("Authorization code sweep failed")
	}

	return c.JSON(http.StatusOK, generateCodeResponse{Code: code})
}

// ExchangeCodeHandler converts a one-time authorization code into a bearer
// token. The response shape is identical whether the code resolved locally
// or via the auth backend.
func (a *API) ExchangeCodeHandler(c echo.Context) error {
	var req exchangeCodeRequest
	if err := c.Bind(&req); err != nil || req.AuthCode == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("auth_code is required"))
	}

	result, err := a.exchange.Exchange(c.Request().Context(), req.AuthCode)
	if err != nil {
		var rejected *authbackend.RejectedError
		switch {
		case errors.Is(err, authcode.ErrCodeUsed):
			return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("Authorization code already used"))
		case errors.Is(err, authcode.ErrCodeExpired):
			return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("Authorization code has expired"))
		case errors.As(err, &rejected):
			return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized(rejected.Message))
		case errors.Is(err, authbackend.ErrInvalidResponse):
			return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Invalid response from auth backend"))
		default:
			log.Error().Err(err).Msg("Code exchange failed")
			return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to exchange authorization code"))
		}
	}

	return c.JSON(http.StatusOK, exchangeCodeResponse{
		JWTToken:  result.JWTToken,
		UserID:    result.UserID,
		ExpiresIn: result.ExpiresIn,
	})
}

// CreateTestCodeHandler creates an auth code without the web app, for
// testing the extension flow against a local deployment.
func (a *API) CreateTestCodeHandler(c echo.Context) error {
	ctx := c.Request().Context()
	code, err := authcode.GenerateCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to generate authorization code"))
	}
	if err := a.codes.Put(ctx, code, testUserID, authcode.DefaultTTL); err != nil {
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to store authorization code"))
	}

	return c.JSON(http.StatusOK, testCodeResponse{
		Code:        code,
		UserID:      testUserID,
		RedirectURL: fmt.Sprintf("chrome-extension://YOUR_EXTENSION_ID/auth-callback.html?code=%s", code),
		Message:     "Use this code to test the extension authentication",
	})
}
