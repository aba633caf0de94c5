package service

import (
	"github.com/deppfellow/blogtemplates/internal/repository"
	"github.com/deppfellow/blogtemplates/internal/server"
)

type Services struct {
	Templates *TemplateService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		Templates: NewTemplateService(s.Logger, repos.Templates),
	}, nil
}
