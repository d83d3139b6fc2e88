package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/config"
	"github.com/ilustra/ilustra-server/internal/domain/illustration"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/responses"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// multipartOverhead leaves room for the form boundaries and text fields next to the image.
const multipartOverhead = 1 << 20

// Generator runs the generation pipeline for one upload.
type Generator interface {
	Generate(ctx context.Context, req illustration.GenerationRequest) (*illustration.GenerationResult, error)
}

// IllustrationHandler exposes the generation endpoint.
type IllustrationHandler struct {
	cfg       *config.Config
	generator Generator
	log       zerolog.Logger
}

func NewIllustrationHandler(cfg *config.Config, generator Generator, log zerolog.Logger) *IllustrationHandler {
	return &IllustrationHandler{
		cfg:       cfg,
		generator: generator,
		log:       log.With().Str("component", "illustration-handler").Logger(),
	}
}

// Generate godoc
// @Summary      Generate an illustration
// @Description  Turns an uploaded photo into an illustration. mode is brand (default), pintor or caricature; pintor requires artist.
// @Tags         illustration
// @Accept       multipart/form-data
// @Produce      json
// @Param        image   formData  file    true   "Photo to illustrate"
// @Param        mode    formData  string  false  "brand | pintor | caricature"
// @Param        artist  formData  string  false  "Artist for pintor mode"
// @Success      200     {object}  responses.GenerateResponse
// @Failure      400     {object}  responses.ErrorResponse
// @Failure      500     {object}  responses.ErrorResponse
// @Router       /api/generate [post]
func (h *IllustrationHandler) Generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+multipartOverhead)

	data, err := h.readUpload(c)
	if err != nil {
		responses.HandleError(c, err, "No image uploaded")
		return
	}

	mode, err := illustration.ParseMode(c.PostForm("mode"))
	if err != nil {
		responses.HandleError(c, err, "Invalid mode")
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), illustration.GenerationRequest{
		Image:  data,
		Mode:   mode,
		Artist: c.PostForm("artist"),
	})
	if err != nil {
		if !apperrors.IsValidation(err) {
			h.log.Error().Err(err).Str("mode", string(mode)).Msg("generation failed")
		}
		responses.HandleError(c, err, "Failed to generate image")
		return
	}

	c.JSON(http.StatusOK, responses.BuildGenerateResponse(result))
}

func (h *IllustrationHandler) readUpload(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, apperrors.Validation("No image uploaded")
	}
	if fileHeader.Size > h.cfg.MaxUploadBytes {
		return nil, apperrors.Validation("image exceeds max size of %d bytes", h.cfg.MaxUploadBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.Internal("open upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, apperrors.Internal("read upload", err)
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("No image uploaded")
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		return nil, apperrors.Validation("image exceeds max size of %d bytes", h.cfg.MaxUploadBytes)
	}
	return data, nil
}
