package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the administrative API on r
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	r.GET("/health", h.Health)

	// Manifests
	r.GET("/widgets/manifests", h.ListWidgetManifests)
	r.GET("/themes/manifests", h.ListThemeManifests)
	r.POST("/cache/manifests/invalidate", h.InvalidateManifests)

	// Themes
	r.POST("/themes/:folder/activate", h.ActivateTheme)

	// Widgets
	r.POST("/widgets", h.CreateWidget)
	r.GET("/widgets/:id", h.GetWidget)
	r.PUT("/widgets/:id", h.UpdateWidget)
	r.DELETE("/widgets/:id", h.DeleteWidget)

	// Areas
	r.GET("/areas", h.ListAreas)
	r.GET("/areas/:id", h.GetArea)
	r.POST("/areas/add", h.AddWidgetToArea)
	r.POST("/areas/reorder", h.ReorderWidget)
	r.DELETE("/areas/:id/widgets/:widgetId", h.RemoveWidgetFromArea)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}
