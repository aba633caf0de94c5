package service

import (
	"context"
	"fmt"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/repository"
	"github.com/rs/zerolog"
)

// TemplateService is what the HTTP handlers call. It turns missing rows
// into errs.ErrNotFound and keeps category counts current after
// template changes.
type TemplateService struct {
	store *repository.TemplateStore
	log   *zerolog.Logger
}

// NewTemplateService wraps store. logger is used when a request carries none.
func NewTemplateService(logger *zerolog.Logger, store *repository.TemplateStore) *TemplateService {
	return &TemplateService{
		store: store,
		log:   logger,
	}
}

// logger prefers the request-scoped logger carried by ctx.
func (s *TemplateService) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.log
}

func notFound(op, what string, id int64) error {
	return errs.NewStoreError(op, errs.ErrNotFound, fmt.Errorf("%s %d", what, id))
}

// Install creates or migrates the tables, seeds the default category and
// files every uncategorized template under it.
func (s *TemplateService) Install(ctx context.Context) error {
	if err := s.store.CreateTables(ctx); err != nil {
		return err
	}

	defaultID, created, err := s.store.EnsureDefaultCategory(ctx)
	if err != nil {
		return err
	}

	moved, err := s.store.CheckForUncategorizedTemplates(ctx)
	if err != nil {
		return err
	}

	s.logger(ctx).Info().
		Str("prefix", s.store.Tables().Prefix).
		Int64("default_category_id", defaultID).
		Bool("default_category_created", created).
		Int("uncategorized_templates", moved).
		Msg("templates store installed")
	return nil
}

// Uninstall drops every store table.
func (s *TemplateService) Uninstall(ctx context.Context) error {
	if err := s.store.DropTables(ctx); err != nil {
		return err
	}
	s.logger(ctx).Warn().Str("prefix", s.store.Tables().Prefix).Msg("templates store uninstalled")
	return nil
}

// Upgrade migrates the tables and rebuilds categories. Category
// assignments are reset.
func (s *TemplateService) Upgrade(ctx context.Context) error {
	if err := s.store.CreateTables(ctx); err != nil {
		return err
	}
	return s.store.UpgradeToV20(ctx)
}

// CreateTemplate stores a template and files it under categoryIDs. With no
// categories it stays uncategorized and reads fall back to the default.
// The template and its categories are written together or not at all.
func (s *TemplateService) CreateTemplate(ctx context.Context, siteID int64, in model.UpdateTemplateInput, categoryIDs []int64) (*model.Template, error) {
	id, err := s.store.AddTemplateWithCategories(ctx, siteID, in.Name, in.Description, in.Options(), categoryIDs)
	if err != nil {
		return nil, err
	}
	return s.GetTemplateRecord(ctx, id)
}

// SaveTemplate replaces a template's fields and, when categoryIDs is not
// nil, its categories, in one transaction.
func (s *TemplateService) SaveTemplate(ctx context.Context, id int64, in model.UpdateTemplateInput, categoryIDs []int64) (*model.Template, error) {
	if err := s.store.UpdateTemplateWithCategories(ctx, id, in, categoryIDs); err != nil {
		return nil, err
	}
	return s.GetTemplateRecord(ctx, id)
}

// GetTemplate returns the flattened template.
func (s *TemplateService) GetTemplate(ctx context.Context, id int64) (map[string]any, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFound("GetTemplate", "template", id)
	}
	return t, nil
}

// GetTemplateRecord is GetTemplate with the options kept typed.
func (s *TemplateService) GetTemplateRecord(ctx context.Context, id int64) (*model.Template, error) {
	t, err := s.store.GetTemplateRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFound("GetTemplate", "template", id)
	}
	return t, nil
}

// ListTemplates lists all templates (categoryID 0, nested options) or the
// templates of one category (flattened).
func (s *TemplateService) ListTemplates(ctx context.Context, categoryID int64) ([]map[string]any, error) {
	if categoryID != 0 {
		if _, err := s.GetCategory(ctx, categoryID); err != nil {
			return nil, err
		}
	}
	return s.store.ListTemplatesByCategory(ctx, categoryID)
}

// DeleteTemplate deletes a template and brings category counts back in
// line, including categories it was the last member of.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id int64) error {
	if _, err := s.GetTemplateRecord(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	return s.RecountCategories(ctx)
}

// SetDefaultTemplate makes id the only default template.
func (s *TemplateService) SetDefaultTemplate(ctx context.Context, id int64) error {
	return s.store.SetDefaultTemplate(ctx, id)
}

// RemoveDefaultTemplate clears the default flag from every template.
func (s *TemplateService) RemoveDefaultTemplate(ctx context.Context) error {
	return s.store.RemoveDefaultTemplate(ctx)
}

// TemplateCategories returns the template's categories, or the default
// category for an uncategorized template.
func (s *TemplateService) TemplateCategories(ctx context.Context, id int64) ([]model.Category, error) {
	if _, err := s.GetTemplateRecord(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetTemplateCategories(ctx, id)
}

// SetTemplateCategories replaces the template's categories. Unknown
// category ids are rejected with errs.ErrNotFound.
func (s *TemplateService) SetTemplateCategories(ctx context.Context, id int64, categoryIDs []int64) ([]model.Category, error) {
	if _, err := s.GetTemplateRecord(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.AssignTemplateCategories(ctx, id, categoryIDs); err != nil {
		return nil, err
	}
	return s.store.GetTemplateCategories(ctx, id)
}

// CreateCategory adds a category. A new default category takes the flag
// from every other category right away.
func (s *TemplateService) CreateCategory(ctx context.Context, name, description string, isDefault bool) (*model.Category, error) {
	id, err := s.store.AddCategory(ctx, name, description, isDefault)
	if err != nil {
		return nil, err
	}

	if isDefault {
		if _, err := s.store.RepairDefaultCategory(ctx, id); err != nil {
			return nil, err
		}
	}

	return s.GetCategory(ctx, id)
}

// GetCategory returns errs.ErrNotFound for an unknown id.
func (s *TemplateService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("GetCategory", "category", id)
	}
	return c, nil
}

func (s *TemplateService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.store.ListCategories(ctx)
}

// DefaultCategory returns the default category, repairing duplicate
// default flags on the way.
func (s *TemplateService) DefaultCategory(ctx context.Context) (*model.Category, error) {
	c, err := s.store.GetDefaultCategory(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errs.NewStoreError("GetDefaultCategory", errs.ErrNotFound, fmt.Errorf("no default category"))
	}
	return c, nil
}

// UpdateCategory renames a category and returns it as stored.
func (s *TemplateService) UpdateCategory(ctx context.Context, id int64, name, description string) (*model.Category, error) {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, id, name, description); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory removes a category and unlinks its templates. Templates
// left without a category fall back to the default one when read.
func (s *TemplateService) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteCategory(ctx, id)
}

// RecountCategories refreshes every category count, resetting the counts
// of categories that no longer have templates.
func (s *TemplateService) RecountCategories(ctx context.Context) error {
	if err := s.store.RecountCategories(ctx); err != nil {
		return err
	}
	zeroed, err := s.store.ZeroEmptyCategoryCounts(ctx)
	if err != nil {
		return err
	}
	if zeroed > 0 {
		s.logger(ctx).Debug().Int64("zeroed", zeroed).Msg("reset counts of empty categories")
	}
	return nil
}

// Status summarizes the store for the admin UI.
type Status struct {
	Prefix            string `json:"prefix"`
	Categories        int64  `json:"categories"`
	DefaultCategoryID *int64 `json:"default_category_id"`
}

// Status reads the store summary. DefaultCategoryID stays nil without a
// default category.
func (s *TemplateService) Status(ctx context.Context) (*Status, error) {
	count, err := s.store.CountCategories(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{Prefix: s.store.Tables().Prefix, Categories: count}
	if id, ok, err := s.store.GetDefaultCategoryID(ctx); err != nil {
		return nil, err
	} else if ok {
		status.DefaultCategoryID = &id
	}
	return status, nil
}

// Membership says whether a template is filed under a category.
type Membership struct {
	TemplateID int64 `json:"template_id"`
	CategoryID int64 `json:"category_id"`
	Member     bool  `json:"member"`
}

// TemplateMembership reports whether the template is filed under the
// category. Both must exist. Membership is by relationship row only: an
// uncategorized template is not a member of the default category.
func (s *TemplateService) TemplateMembership(ctx context.Context, templateID, categoryID int64) (*Membership, error) {
	if _, err := s.GetTemplateRecord(ctx, templateID); err != nil {
		return nil, err
	}
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	member, err := s.store.ExistsRelation(ctx, templateID, categoryID)
	if err != nil {
		return nil, err
	}
	return &Membership{TemplateID: templateID, CategoryID: categoryID, Member: member}, nil
}
