package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/domain/iteration"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/requests"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/responses"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// Iterator applies one edit to the previous image.
type Iterator interface {
	Iterate(ctx context.Context, req iteration.Request) (*iteration.Result, error)
}

// IterationHandler exposes the iteration endpoint.
type IterationHandler struct {
	iterator Iterator
	log      zerolog.Logger
}

func NewIterationHandler(iterator Iterator, log zerolog.Logger) *IterationHandler {
	return &IterationHandler{
		iterator: iterator,
		log:      log.With().Str("component", "iteration-handler").Logger(),
	}
}

// Iterate godoc
// @Summary      Refine the previous illustration
// @Description  Applies an action to the image identified by previousResponseId and imageCallId. suggest_title returns a title instead of an image.
// @Tags         illustration
// @Accept       json
// @Produce      json
// @Param        request  body      requests.IterateRequest  true  "Iteration request"
// @Success      200      {object}  responses.IterateResponse
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      500      {object}  responses.ErrorResponse
// @Router       /api/iterate [post]
func (h *IterationHandler) Iterate(c *gin.Context) {
	var req requests.IterateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.TypeValidation, requests.BindingMessage(err))
		return
	}

	domainReq, err := req.ToDomain()
	if err != nil {
		responses.HandleError(c, err, "Invalid request body")
		return
	}

	result, err := h.iterator.Iterate(c.Request.Context(), domainReq)
	if err != nil {
		if !apperrors.IsValidation(err) {
			h.log.Error().Err(err).Str("action", domainReq.Action.String()).Msg("iteration failed")
		}
		responses.HandleError(c, err, "Failed to iterate image")
		return
	}

	c.JSON(http.StatusOK, responses.BuildIterateResponse(result))
}
