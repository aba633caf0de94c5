package handler

import (
	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/server"
	"github.com/deppfellow/blogtemplates/internal/service"
	"github.com/labstack/echo/v4"
)

// TemplateHandler serves /api/v1/templates.
type TemplateHandler struct {
	Handler
	templates *service.TemplateService
}

func NewTemplateHandler(s *server.Server, templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		Handler:   NewHandler(s),
		templates: templates,
	}
}

// ListTemplates answers GET /templates. With ?category_id it returns the
// category's templates flattened, without it every template with nested
// options.
func (h *TemplateHandler) ListTemplates(c echo.Context, req *ListTemplatesRequest) ([]map[string]any, error) {
	return h.templates.ListTemplates(c.Request().Context(), req.CategoryID)
}

func (h *TemplateHandler) GetTemplate(c echo.Context, req *IDRequest) (map[string]any, error) {
	return h.templates.GetTemplate(c.Request().Context(), req.ID)
}

func (h *TemplateHandler) CreateTemplate(c echo.Context, req *CreateTemplateRequest) (*model.Template, error) {
	return h.templates.CreateTemplate(c.Request().Context(), req.SiteID, req.UpdateTemplateInput, req.CategoryIDs)
}

func (h *TemplateHandler) UpdateTemplate(c echo.Context, req *UpdateTemplateRequest) (*model.Template, error) {
	return h.templates.SaveTemplate(c.Request().Context(), req.ID, req.UpdateTemplateInput, req.CategoryIDs)
}

func (h *TemplateHandler) DeleteTemplate(c echo.Context, req *IDRequest) error {
	return h.templates.DeleteTemplate(c.Request().Context(), req.ID)
}

func (h *TemplateHandler) SetDefaultTemplate(c echo.Context, req *IDRequest) error {
	return h.templates.SetDefaultTemplate(c.Request().Context(), req.ID)
}

func (h *TemplateHandler) RemoveDefaultTemplate(c echo.Context, _ *EmptyRequest) error {
	return h.templates.RemoveDefaultTemplate(c.Request().Context())
}

func (h *TemplateHandler) GetTemplateCategories(c echo.Context, req *IDRequest) ([]model.Category, error) {
	return h.templates.TemplateCategories(c.Request().Context(), req.ID)
}

// GetMembership answers GET /templates/:id/categories/:category_id.
func (h *TemplateHandler) GetMembership(c echo.Context, req *MembershipRequest) (*service.Membership, error) {
	return h.templates.TemplateMembership(c.Request().Context(), req.ID, req.CategoryID)
}

func (h *TemplateHandler) SetTemplateCategories(c echo.Context, req *SetTemplateCategoriesRequest) ([]model.Category, error) {
	return h.templates.SetTemplateCategories(c.Request().Context(), req.ID, req.CategoryIDs)
}
