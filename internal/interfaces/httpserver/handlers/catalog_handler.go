package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ilustra/ilustra-server/internal/domain/catalog"
	"github.com/ilustra/ilustra-server/internal/domain/illustration"
	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/responses"
)

// CatalogHandler serves the static brand data the client renders.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// Titles godoc
// @Summary      List brand catalog titles
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  responses.CatalogResponse
// @Router       /api/catalog [get]
func (h *CatalogHandler) Titles(c *gin.Context) {
	c.JSON(http.StatusOK, responses.CatalogResponse{Titles: h.catalog.Titles()})
}

// Palettes godoc
// @Summary      List brand palettes
// @Description  param is the value to send as actionParam with change_palette.
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  responses.PalettesResponse
// @Router       /api/palettes [get]
func (h *CatalogHandler) Palettes(c *gin.Context) {
	c.JSON(http.StatusOK, responses.BuildPalettesResponse(catalog.Palettes()))
}

// Artists godoc
// @Summary      List artists for pintor mode
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  responses.ArtistsResponse
// @Router       /api/artists [get]
func (h *CatalogHandler) Artists(c *gin.Context) {
	c.JSON(http.StatusOK, responses.ArtistsResponse{Artists: illustration.Artists()})
}
