package handler

import (
	"github.com/deppfellow/blogtemplates/internal/server"
	"github.com/deppfellow/blogtemplates/internal/service"
)

// Handlers groups the HTTP handlers so the router takes a single value.
type Handlers struct {
	Health     *HealthHandler
	OpenAPI    *OpenAPIHandler
	Templates  *TemplateHandler
	Categories *CategoryHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(s, services.Templates),
		OpenAPI:    NewOpenAPIHandler(s),
		Templates:  NewTemplateHandler(s, services.Templates),
		Categories: NewCategoryHandler(s, services.Templates),
	}
}
