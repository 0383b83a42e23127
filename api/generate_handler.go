package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	apierrors "github.com/cannerai/cannerd/errors"
	"github.com/cannerai/cannerd/internal/genai"
)

// GenerateHandler forwards text and media to the generation service and
// returns the reshaped reply/suggestions contract.
func (a *API) GenerateHandler(c echo.Context) error {
	var input genai.GenerateInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewBadRequest("Invalid request body"))
	}

	log.Info().
		Int("text_chars", len(input.Text)).
		Int("context_items", len(input.Context)).
		Int("media_items", len(input.Media)).
		Msg("Generate request")

	result, err := a.generator.Generate(c.Request().Context(), &input)
	if err != nil {
		if errors.Is(err, genai.ErrNotConfigured) {
			return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("GEMINI_API_KEY not configured"))
		}
		log.Error().Err(err).Msg("Generation failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError(err.Error()))
	}
	return c.JSON(http.StatusOK, result)
}
