// Package api wires the HTTP surface: extension auth flow, canned-response
// CRUD and the generation proxy.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cannerai/cannerd/domain"
	"github.com/cannerai/cannerd/internal/authcode"
	"github.com/cannerai/cannerd/internal/genai"
	"github.com/cannerai/cannerd/middleware"
	"github.com/cannerai/cannerd/services"
)

// Generator produces a model reply for the generation proxy.
type Generator interface {
	Generate(ctx context.Context, input *genai.GenerateInput) (*genai.GenerateResult, error)
}

// API holds the handler dependencies.
type API struct {
	codes     authcode.Store
	tokens    *services.TokenService
	exchange  *services.ExchangeService
	responses domain.ResponseRepository
	generator Generator
	dbPing    func(ctx context.Context) error

	authFrontendURL  string
	enableTestRoutes bool
}

// Options configures NewAPI.
type Options struct {
	Codes     authcode.Store
	Tokens    *services.TokenService
	Exchange  *services.ExchangeService
	Responses domain.ResponseRepository
	Generator Generator
	DBPing    func(ctx context.Context) error

	AuthFrontendURL  string
	EnableTestRoutes bool
}

// NewAPI creates the API.
func NewAPI(opts Options) *API {
	return &API{
		codes:            opts.Codes,
		tokens:           opts.Tokens,
		exchange:         opts.Exchange,
		responses:        opts.Responses,
		generator:        opts.Generator,
		dbPing:           opts.DBPing,
		authFrontendURL:  opts.AuthFrontendURL,
		enableTestRoutes: opts.EnableTestRoutes,
	}
}

// RegisterRoutes registers all routes on e.
func (a *API) RegisterRoutes(e *echo.Echo) {
	auth := e.Group("/api/auth")
	auth.GET("/extension/login", a.ExtensionLoginHandler)
	auth.POST("/generate-code", a.GenerateCodeHandler)
	auth.POST("/extension/exchange-code", a.ExchangeCodeHandler)

	if a.enableTestRoutes {
		e.POST("/test/create-test-code", a.CreateTestCodeHandler)
	}

	protected := e.Group("/api", middleware.RequireAuth(a.tokens))
	protected.GET("/templates", a.ListResponsesHandler)
	protected.GET("/responses", a.ListResponsesHandler)
	protected.GET("/responses/:id", a.GetResponseHandler)
	protected.POST("/responses", a.CreateResponseHandler)
	protected.PATCH("/responses/:id", a.UpdateResponseHandler)
	protected.DELETE("/responses/:id", a.DeleteResponseHandler)

	e.POST("/api/generate", a.GenerateHandler)
	e.GET("/api/health", a.HealthHandler)
}

// HealthHandler reports service and database health.
func (a *API) HealthHandler(c echo.Context) error {
	resp := healthResponse{
		Timestamp: time.Now().Format(time.RFC3339),
		Database:  "MongoDB",
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := a.dbPing(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	resp.Status = "healthy"
	resp.DatabaseConnected = true
	return c.JSON(http.StatusOK, resp)
}
