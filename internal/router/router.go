// Package router builds the echo instance: global middleware, the admin
// API routes and the system routes.
package router

import (
	"net/http"

	"github.com/deppfellow/blogtemplates/internal/handler"
	"github.com/deppfellow/blogtemplates/internal/middleware"
	"github.com/deppfellow/blogtemplates/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter wires middleware and routes. Middleware order matters:
// request IDs come first so every later layer can log them, and New
// Relic wraps everything after it.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
		middlewares.Global.BodyLimit(),
	)

	registerSystemRoutes(router, h)
	registerAPIRoutes(router.Group("/api/v1"), h)

	return router
}

func registerAPIRoutes(api *echo.Group, h *handler.Handlers) {
	templates := api.Group("/templates")
	templates.GET("", handler.Handle(h.Templates.ListTemplates, http.StatusOK))
	templates.POST("", handler.Handle(h.Templates.CreateTemplate, http.StatusCreated))
	templates.DELETE("/default", handler.HandleNoContent(h.Templates.RemoveDefaultTemplate, http.StatusNoContent))
	templates.GET("/:id", handler.Handle(h.Templates.GetTemplate, http.StatusOK))
	templates.PUT("/:id", handler.Handle(h.Templates.UpdateTemplate, http.StatusOK))
	templates.DELETE("/:id", handler.HandleNoContent(h.Templates.DeleteTemplate, http.StatusNoContent))
	templates.PUT("/:id/default", handler.HandleNoContent(h.Templates.SetDefaultTemplate, http.StatusNoContent))
	templates.GET("/:id/categories", handler.Handle(h.Templates.GetTemplateCategories, http.StatusOK))
	templates.PUT("/:id/categories", handler.Handle(h.Templates.SetTemplateCategories, http.StatusOK))
	templates.GET("/:id/categories/:category_id", handler.Handle(h.Templates.GetMembership, http.StatusOK))

	categories := api.Group("/categories")
	categories.GET("", handler.Handle(h.Categories.ListCategories, http.StatusOK))
	categories.POST("", handler.Handle(h.Categories.CreateCategory, http.StatusCreated))
	categories.GET("/default", handler.Handle(h.Categories.GetDefaultCategory, http.StatusOK))
	categories.POST("/recount", handler.HandleNoContent(h.Categories.RecountCategories, http.StatusNoContent))
	categories.GET("/:id", handler.Handle(h.Categories.GetCategory, http.StatusOK))
	categories.PUT("/:id", handler.Handle(h.Categories.UpdateCategory, http.StatusOK))
	categories.DELETE("/:id", handler.HandleNoContent(h.Categories.DeleteCategory, http.StatusNoContent))
	categories.GET("/:id/templates", handler.Handle(h.Categories.ListCategoryTemplates, http.StatusOK))
}
