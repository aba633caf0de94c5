package handler

import (
	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/server"
	"github.com/deppfellow/blogtemplates/internal/service"
	"github.com/labstack/echo/v4"
)

// CategoryHandler serves /api/v1/categories.
type CategoryHandler struct {
	Handler
	templates *service.TemplateService
}

func NewCategoryHandler(s *server.Server, templates *service.TemplateService) *CategoryHandler {
	return &CategoryHandler{
		Handler:   NewHandler(s),
		templates: templates,
	}
}

func (h *CategoryHandler) ListCategories(c echo.Context, _ *EmptyRequest) ([]model.Category, error) {
	return h.templates.ListCategories(c.Request().Context())
}

// GetDefaultCategory also repairs duplicate default flags.
func (h *CategoryHandler) GetDefaultCategory(c echo.Context, _ *EmptyRequest) (*model.Category, error) {
	return h.templates.DefaultCategory(c.Request().Context())
}

func (h *CategoryHandler) GetCategory(c echo.Context, req *IDRequest) (*model.Category, error) {
	return h.templates.GetCategory(c.Request().Context(), req.ID)
}

func (h *CategoryHandler) CreateCategory(c echo.Context, req *CreateCategoryRequest) (*model.Category, error) {
	return h.templates.CreateCategory(c.Request().Context(), req.Name, req.Description, req.IsDefault)
}

func (h *CategoryHandler) UpdateCategory(c echo.Context, req *UpdateCategoryRequest) (*model.Category, error) {
	return h.templates.UpdateCategory(c.Request().Context(), req.ID, req.Name, req.Description)
}

func (h *CategoryHandler) DeleteCategory(c echo.Context, req *IDRequest) error {
	return h.templates.DeleteCategory(c.Request().Context(), req.ID)
}

func (h *CategoryHandler) ListCategoryTemplates(c echo.Context, req *IDRequest) ([]map[string]any, error) {
	return h.templates.ListTemplates(c.Request().Context(), req.ID)
}

func (h *CategoryHandler) RecountCategories(c echo.Context, _ *EmptyRequest) error {
	return h.templates.RecountCategories(c.Request().Context())
}
