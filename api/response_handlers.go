package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/cannerai/cannerd/domain"
	apierrors "github.com/cannerai/cannerd/errors"
	"github.com/cannerai/cannerd/middleware"
)

// ListResponsesHandler returns the user's canned responses, newest first,
// optionally filtered by a search term.
func (a *API) ListResponsesHandler(c echo.Context) error {
	userID := middleware.UserID(c)
	search := c.QueryParam("search")

	responses, err := a.responses.List(c.Request().Context(), userID, search)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list canned responses")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to list responses"))
	}
	return c.JSON(http.StatusOK, toResponseListJSON(responses))
}

// GetResponseHandler returns one canned response by ID.
func (a *API) GetResponseHandler(c echo.Context) error {
	userID := middleware.UserID(c)

	response, err := a.responses.GetByID(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return a.responseError(c, err, userID)
	}
	return c.JSON(http.StatusOK, toResponseJSON(response))
}

// CreateResponseHandler creates a canned response owned by the caller.
func (a *API) CreateResponseHandler(c echo.Context) error {
	userID := middleware.UserID(c)

	var req createResponseRequest
	if err := c.Bind(&req); err != nil || req.Title == nil || req.Content == nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("Title and content are required"))
	}

	response := &domain.CannedResponse{
		Title:   *req.Title,
		Content: *req.Content,
		Tags:    req.Tags,
		UserID:  userID,
	}
	if err := a.responses.Create(c.Request().Context(), response); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create canned response")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to create response"))
	}
	return c.JSON(http.StatusCreated, toResponseJSON(response))
}

// UpdateResponseHandler applies a partial update to a canned response.
func (a *API) UpdateResponseHandler(c echo.Context) error {
	userID := middleware.UserID(c)

	var req updateResponseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("No data provided"))
	}
	if req.Title == nil && req.Content == nil && req.Tags == nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("No data provided"))
	}

	updated, err := a.responses.Update(c.Request().Context(), c.Param("id"), userID, domain.ResponseUpdate{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		return a.responseError(c, err, userID)
	}
	return c.JSON(http.StatusOK, toResponseJSON(updated))
}

// DeleteResponseHandler deletes a canned response.
func (a *API) DeleteResponseHandler(c echo.Context) error {
	userID := middleware.UserID(c)

	if err := a.responses.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return a.responseError(c, err, userID)
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *API) responseError(c echo.Context, err error, userID string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidResponseID):
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("Invalid response ID"))
	case errors.Is(err, domain.ErrResponseNotFound):
		return c.JSON(http.StatusNotFound, apierrors.NewNotFound("Response not found"))
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("Canned response operation failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Internal server error"))
	}
}
