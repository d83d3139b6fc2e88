package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/responses"
	"github.com/ilustra/ilustra-server/internal/utils/apperrors"
)

// OutputFetcher downloads generated images by their signed URL.
type OutputFetcher interface {
	FetchOutput(ctx context.Context, rawURL string) ([]byte, string, error)
}

// DownloadHandler proxies generated images so browsers save them as files.
type DownloadHandler struct {
	outputs OutputFetcher
	log     zerolog.Logger
	now     func() time.Time
}

func NewDownloadHandler(outputs OutputFetcher, log zerolog.Logger) *DownloadHandler {
	return &DownloadHandler{
		outputs: outputs,
		log:     log.With().Str("component", "download-handler").Logger(),
		now:     time.Now,
	}
}

// DownloadImage godoc
// @Summary      Download a generated image
// @Description  Fetches an image from the outputs bucket and returns it as an attachment.
// @Tags         illustration
// @Produce      application/octet-stream
// @Param        url  query     string  true  "Signed URL of a generated image"
// @Success      200  {file}    binary
// @Failure      400  {object}  responses.ErrorResponse
// @Failure      500  {object}  responses.ErrorResponse
// @Router       /api/download-image [get]
func (h *DownloadHandler) DownloadImage(c *gin.Context) {
	rawURL := strings.TrimSpace(c.Query("url"))
	if !validURL(rawURL) {
		responses.HandleNewError(c, apperrors.TypeValidation, "Invalid or missing URL")
		return
	}

	data, _, err := h.outputs.FetchOutput(c.Request.Context(), rawURL)
	if err != nil {
		if apperrors.IsValidation(err) {
			responses.HandleNewError(c, apperrors.TypeValidation, "Invalid or missing URL")
			return
		}
		h.log.Error().Err(err).Msg("download failed")
		_ = c.Error(err)
		responses.HandleNewError(c, apperrors.TypeInternal, "Failed to download image")
		return
	}

	filename := fmt.Sprintf("ilustracion_ing_%d.png", h.now().UnixMilli())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
