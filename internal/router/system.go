package router

import (
	"github.com/deppfellow/blogtemplates/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers the routes outside the versioned API.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/docs/openapi.json", h.OpenAPI.ServeOpenAPISpec)
}
