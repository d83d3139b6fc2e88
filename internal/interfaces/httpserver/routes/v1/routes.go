package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/ilustra/ilustra-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates API route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all API routes under the /api prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api")
	group.POST("/generate", r.handlers.Illustration.Generate)
	group.POST("/iterate", r.handlers.Iteration.Iterate)
	group.GET("/download-image", r.handlers.Download.DownloadImage)
	group.GET("/catalog", r.handlers.Catalog.Titles)
	group.GET("/palettes", r.handlers.Catalog.Palettes)
	group.GET("/artists", r.handlers.Catalog.Artists)
}
