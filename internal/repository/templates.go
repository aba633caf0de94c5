package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/sqlerr"
	"github.com/deppfellow/blogtemplates/internal/validation"

	"github.com/jackc/pgx/v5"
)

const maxTemplateNameLength = 255

func scanTemplate(row rowScanner) (model.Template, error) {
	var (
		t   model.Template
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.SiteID, &t.Name, &t.Description, &t.IsDefault, &raw); err != nil {
		return model.Template{}, err
	}

	opts, err := model.DecodeOptions(raw)
	if err != nil {
		return model.Template{}, fmt.Errorf("template %d: %w", t.ID, err)
	}
	t.Options = opts
	return t, nil
}

func collectTemplate(row pgx.CollectableRow) (model.Template, error) {
	return scanTemplate(row)
}

func validateTemplateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return validation.CustomValidationErrors{{Field: model.FieldName, Message: "is required"}}
	case utf8.RuneCountInString(name) > maxTemplateNameLength:
		return validation.CustomValidationErrors{{
			Field:   model.FieldName,
			Message: fmt.Sprintf("must not exceed %d characters", maxTemplateNameLength),
		}}
	}
	return nil
}

// AddTemplate stores a new template and returns its id.
func (s *TemplateStore) AddTemplate(ctx context.Context, siteID int64, name, description string, options model.TemplateOptions) (int64, error) {
	payload, err := templatePayload("AddTemplate", name, options)
	if err != nil {
		return 0, err
	}

	id, err := s.insertTemplate(ctx, s.db, siteID, name, description, payload)
	if err != nil {
		return 0, sqlerr.Classify("AddTemplate", err)
	}
	return id, nil
}

// AddTemplateWithCategories stores a new template and files it under
// categoryIDs in one transaction. Every category must exist; otherwise,
// or when an id repeats, nothing is stored. An empty categoryIDs leaves
// the template uncategorized.
func (s *TemplateStore) AddTemplateWithCategories(ctx context.Context, siteID int64, name, description string, options model.TemplateOptions, categoryIDs []int64) (int64, error) {
	const op = "AddTemplateWithCategories"

	payload, err := templatePayload(op, name, options)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, op, func(q Querier) error {
		var err error
		if id, err = s.insertTemplate(ctx, q, siteID, name, description, payload); err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		return s.assignCategories(ctx, q, op, id, categoryIDs)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func templatePayload(op, name string, options model.TemplateOptions) ([]byte, error) {
	if err := validateTemplateName(name); err != nil {
		return nil, errs.NewStoreError(op, errs.ErrValidation, err)
	}
	payload, err := model.EncodeOptions(options)
	if err != nil {
		return nil, errs.NewStoreError(op, errs.ErrValidation, err)
	}
	return payload, nil
}

func (s *TemplateStore) insertTemplate(ctx context.Context, q Querier, siteID int64, name, description string, payload []byte) (int64, error) {
	var id int64
	if err := q.QueryRow(ctx, s.q.insertTemplate, siteID, name, description, payload).Scan(&id); err != nil {
		return 0, err
	}

	s.log.Debug().Str("operation", "AddTemplate").Int64("template_id", id).Int64("site_id", siteID).Msg("template added")
	return id, nil
}

// UpdateTemplate replaces the editable fields of a template. Invalid input
// is rejected before any SQL runs. Updating a missing id is a no-op.
func (s *TemplateStore) UpdateTemplate(ctx context.Context, id int64, in model.UpdateTemplateInput) error {
	payload, err := updatePayload("UpdateTemplate", in)
	if err != nil {
		return err
	}

	if _, err := s.updateTemplate(ctx, s.db, id, in, payload); err != nil {
		return sqlerr.Classify("UpdateTemplate", err)
	}
	return nil
}

// UpdateTemplateWithCategories replaces the editable fields of a template
// and, when categoryIDs is not nil, its categories, in one transaction.
// Unlike UpdateTemplate, a missing template is an errs.ErrNotFound, as is
// a category id that does not exist. On any error nothing changes.
func (s *TemplateStore) UpdateTemplateWithCategories(ctx context.Context, id int64, in model.UpdateTemplateInput, categoryIDs []int64) error {
	const op = "UpdateTemplateWithCategories"

	payload, err := updatePayload(op, in)
	if err != nil {
		return err
	}

	return s.withTx(ctx, op, func(q Querier) error {
		updated, err := s.updateTemplate(ctx, q, id, in, payload)
		if err != nil {
			return err
		}
		if updated == 0 {
			return errs.NewStoreError(op, errs.ErrNotFound, fmt.Errorf("template %d", id))
		}
		if categoryIDs == nil {
			return nil
		}
		return s.assignCategories(ctx, q, op, id, categoryIDs)
	})
}

func updatePayload(op string, in model.UpdateTemplateInput) ([]byte, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return nil, errs.NewStoreError(op, errs.ErrValidation, err)
	}
	payload, err := model.EncodeOptions(in.Options())
	if err != nil {
		return nil, errs.NewStoreError(op, errs.ErrValidation, err)
	}
	return payload, nil
}

func (s *TemplateStore) updateTemplate(ctx context.Context, q Querier, id int64, in model.UpdateTemplateInput, payload []byte) (int64, error) {
	updated, err := exec(ctx, q, s.q.updateTemplate, in.Name, in.Description, payload, id)
	if err != nil {
		return 0, err
	}

	s.log.Debug().Str("operation", "UpdateTemplate").Int64("template_id", id).Int64("updated", updated).Msg("template updated")
	return updated, nil
}

// GetTemplate returns the template flattened (see model.Template.Flatten),
// or nil if it does not exist.
func (s *TemplateStore) GetTemplate(ctx context.Context, id int64) (map[string]any, error) {
	t, err := s.GetTemplateRecord(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	return t.Flatten(), nil
}

// GetTemplateRecord is GetTemplate without the flattening.
func (s *TemplateStore) GetTemplateRecord(ctx context.Context, id int64) (*model.Template, error) {
	t, err := scanTemplate(s.db.QueryRow(ctx, s.q.selectTemplate, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, sqlerr.Classify("GetTemplate", err)
	}
	return &t, nil
}

// ListTemplates returns every template keyed by id, options kept nested.
func (s *TemplateStore) ListTemplates(ctx context.Context) (map[int64]model.Template, error) {
	list, err := s.listTemplates(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.Template, len(list))
	for _, t := range list {
		byID[t.ID] = t
	}
	return byID, nil
}

func (s *TemplateStore) listTemplates(ctx context.Context) ([]model.Template, error) {
	rows, err := s.db.Query(ctx, s.q.selectTemplates)
	if err != nil {
		return nil, sqlerr.Classify("ListTemplates", err)
	}
	list, err := pgx.CollectRows(rows, collectTemplate)
	if err != nil {
		return nil, sqlerr.Classify("ListTemplates", err)
	}
	return list, nil
}

// DeleteTemplate removes a template and its relationship rows. Category
// counts are left as they are; call RecountCategories afterwards.
func (s *TemplateStore) DeleteTemplate(ctx context.Context, id int64) error {
	return s.withTx(ctx, "DeleteTemplate", func(q Querier) error {
		if _, err := exec(ctx, q, s.q.deleteTemplate, id); err != nil {
			return err
		}
		unlinked, err := exec(ctx, q, s.q.deleteTemplateRelations, id)
		if err != nil {
			return err
		}

		s.log.Debug().Str("operation", "DeleteTemplate").Int64("template_id", id).Int64("unlinked", unlinked).Msg("template deleted")
		return nil
	})
}

// SetDefaultTemplate makes id the only default template. Both steps run in
// one transaction; if id does not exist nothing changes and the error is
// of kind errs.ErrNotFound.
func (s *TemplateStore) SetDefaultTemplate(ctx context.Context, id int64) error {
	return s.withTx(ctx, "SetDefaultTemplate", func(q Querier) error {
		if _, err := exec(ctx, q, s.q.clearDefaultTemplate); err != nil {
			return err
		}
		set, err := exec(ctx, q, s.q.setDefaultTemplate, id)
		if err != nil {
			return err
		}
		if set == 0 {
			return errs.NewStoreError("SetDefaultTemplate", errs.ErrNotFound, fmt.Errorf("template %d", id))
		}

		s.log.Debug().Str("operation", "SetDefaultTemplate").Int64("template_id", id).Msg("default template set")
		return nil
	})
}

// RemoveDefaultTemplate clears the default flag on every template.
func (s *TemplateStore) RemoveDefaultTemplate(ctx context.Context) error {
	if _, err := exec(ctx, s.db, s.q.clearDefaultTemplate); err != nil {
		return sqlerr.Classify("RemoveDefaultTemplate", err)
	}
	return nil
}

// ListTemplatesByCategory returns the templates of one category, ordered
// by id and flattened.
//
// A zero categoryID lists every template instead, in the nested form of
// ListTemplates.
func (s *TemplateStore) ListTemplatesByCategory(ctx context.Context, categoryID int64) ([]map[string]any, error) {
	if categoryID == 0 {
		list, err := s.listTemplates(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(list))
		for _, t := range list {
			out = append(out, t.Nested())
		}
		return out, nil
	}

	rows, err := s.db.Query(ctx, s.q.selectByCategory, categoryID)
	if err != nil {
		return nil, sqlerr.Classify("ListTemplatesByCategory", err)
	}
	list, err := pgx.CollectRows(rows, collectTemplate)
	if err != nil {
		return nil, sqlerr.Classify("ListTemplatesByCategory", err)
	}

	out := make([]map[string]any, 0, len(list))
	for _, t := range list {
		out = append(out, t.Flatten())
	}
	return out, nil
}
