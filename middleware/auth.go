// Package middleware contains the request-pipeline stages shared by the
// protected API routes.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cannerai/cannerd/domain"
	apierrors "github.com/cannerai/cannerd/errors"
	"github.com/cannerai/cannerd/services"
)

// RequireAuth guards a route group with bearer-token authentication. On
// success the authenticated user ID is stored in the echo context under
// domain.UserIDContextKey; any failure short-circuits with 401.
func RequireAuth(tokens *services.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("No authorization header"))
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("Invalid token"))
			}

			userID, err := tokens.Verify(parts[1])
			if err != nil {
				if errors.Is(err, services.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("Token has expired"))
				}
				return c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorized("Invalid token"))
			}

			c.Set(domain.UserIDContextKey, userID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user ID stored by RequireAuth.
func UserID(c echo.Context) string {
	userID, _ := c.Get(domain.UserIDContextKey).(string)
	return userID
}
