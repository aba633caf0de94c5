package repository

import (
	"github.com/deppfellow/blogtemplates/internal/server"
)

// Repositories is the container the service layer is built from.
type Repositories struct {
	Templates *TemplateStore
}

// NewRepositories builds the repositories on the server's pool and
// configured table prefix.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Templates: NewTemplateStore(s.DB.Pool, s.Migrator(), s.Tables, s.Logger),
	}
}
