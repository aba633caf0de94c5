package repository

import (
	"context"
	"fmt"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/sqlerr"

	"github.com/jackc/pgx/v5"
)

// GetTemplateCategories returns the categories a template belongs to.
//
// A template without any category resolves to the default category alone.
// If there is no default either, the result is empty.
func (s *TemplateStore) GetTemplateCategories(ctx context.Context, templateID int64) ([]model.Category, error) {
	rows, err := s.db.Query(ctx, s.q.selectTemplateCategories, templateID)
	if err != nil {
		return nil, sqlerr.Classify("GetTemplateCategories", err)
	}
	categories, err := pgx.CollectRows(rows, collectCategory)
	if err != nil {
		return nil, sqlerr.Classify("GetTemplateCategories", err)
	}
	if len(categories) > 0 {
		return categories, nil
	}

	defaultID, ok, err := s.defaultCategoryID(ctx, s.db)
	if err != nil {
		return nil, sqlerr.Classify("GetTemplateCategories", err)
	}
	if !ok {
		return []model.Category{}, nil
	}

	fallback, err := s.getCategory(ctx, s.db, defaultID)
	if err != nil {
		return nil, sqlerr.Classify("GetTemplateCategories", err)
	}
	if fallback == nil {
		return []model.Category{}, nil
	}
	return []model.Category{*fallback}, nil
}

// UpdateTemplateCategories replaces the template's categories with
// categoryIDs and recounts every category, all in one transaction. A
// repeated id violates the relationships key and nothing is changed.
func (s *TemplateStore) UpdateTemplateCategories(ctx context.Context, templateID int64, categoryIDs []int64) error {
	return s.withTx(ctx, "UpdateTemplateCategories", func(q Querier) error {
		if err := s.replaceTemplateCategories(ctx, q, templateID, categoryIDs); err != nil {
			return err
		}
		if _, err := exec(ctx, q, s.q.recountCategories); err != nil {
			return err
		}

		s.log.Debug().
			Str("operation", "UpdateTemplateCategories").
			Int64("template_id", templateID).
			Ints64("category_ids", categoryIDs).
			Msg("template categories replaced")
		return nil
	})
}

// AssignTemplateCategories is UpdateTemplateCategories for untrusted
// input: every category must exist, or the call fails with
// errs.ErrNotFound and the template keeps its categories.
func (s *TemplateStore) AssignTemplateCategories(ctx context.Context, templateID int64, categoryIDs []int64) error {
	const op = "AssignTemplateCategories"
	return s.withTx(ctx, op, func(q Querier) error {
		return s.assignCategories(ctx, q, op, templateID, categoryIDs)
	})
}

// assignCategories checks that the categories exist, then replaces the
// template's categories and recounts.
func (s *TemplateStore) assignCategories(ctx context.Context, q Querier, op string, templateID int64, categoryIDs []int64) error {
	missing, err := s.missingCategories(ctx, q, categoryIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return errs.NewStoreError(op, errs.ErrNotFound, fmt.Errorf("categories %v", missing))
	}

	if err := s.replaceTemplateCategories(ctx, q, templateID, categoryIDs); err != nil {
		return err
	}
	if _, err := exec(ctx, q, s.q.recountCategories); err != nil {
		return err
	}

	s.log.Debug().
		Str("operation", op).
		Int64("template_id", templateID).
		Ints64("category_ids", categoryIDs).
		Msg("template categories replaced")
	return nil
}

// missingCategories returns the ids in categoryIDs that match no category.
func (s *TemplateStore) missingCategories(ctx context.Context, q Querier, categoryIDs []int64) ([]int64, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	rows, err := q.Query(ctx, s.q.selectCategoryIDs, categoryIDs)
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}

	exists := make(map[int64]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}

	var missing []int64
	for _, id := range categoryIDs {
		if !exists[id] {
			missing = append(missing, id)
			exists[id] = true
		}
	}
	return missing, nil
}

func (s *TemplateStore) replaceTemplateCategories(ctx context.Context, q Querier, templateID int64, categoryIDs []int64) error {
	if _, err := exec(ctx, q, s.q.deleteTemplateRelations, templateID); err != nil {
		return err
	}
	return s.insertRelationships(ctx, q, membership(templateID, categoryIDs))
}

func membership(templateID int64, categoryIDs []int64) []model.CategoryRelationship {
	rels := make([]model.CategoryRelationship, 0, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		rels = append(rels, model.CategoryRelationship{CategoryID: categoryID, TemplateID: templateID})
	}
	return rels
}

func (s *TemplateStore) insertRelationships(ctx context.Context, q Querier, rels []model.CategoryRelationship) error {
	for _, rel := range rels {
		if _, err := exec(ctx, q, s.q.insertRelationship, rel.CategoryID, rel.TemplateID); err != nil {
			return err
		}
	}
	return nil
}

// ExistsRelation reports whether the template is filed under the category.
func (s *TemplateStore) ExistsRelation(ctx context.Context, templateID, categoryID int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, s.q.existsRelation, templateID, categoryID).Scan(&exists); err != nil {
		return false, sqlerr.Classify("ExistsRelation", err)
	}
	return exists, nil
}

// RecountCategories refreshes templates_count from the relationship rows.
//
// Only categories with at least one template are touched: a category that
// lost its last template keeps its previous count. ZeroEmptyCategoryCounts
// resets those.
func (s *TemplateStore) RecountCategories(ctx context.Context) error {
	updated, err := exec(ctx, s.db, s.q.recountCategories)
	if err != nil {
		return sqlerr.Classify("RecountCategories", err)
	}
	s.log.Debug().Str("operation", "RecountCategories").Int64("updated", updated).Msg("categories recounted")
	return nil
}

// ZeroEmptyCategoryCounts sets templates_count to 0 on every category
// without templates and returns how many it changed.
func (s *TemplateStore) ZeroEmptyCategoryCounts(ctx context.Context) (int64, error) {
	zeroed, err := exec(ctx, s.db, s.q.zeroEmptyCategoryCounts)
	if err != nil {
		return 0, sqlerr.Classify("ZeroEmptyCategoryCounts", err)
	}
	return zeroed, nil
}

// CheckForUncategorizedTemplates puts every template that has no category
// into the default category and returns how many it moved. Without a
// default category it does nothing.
//
// Each template is assigned in its own UpdateTemplateCategories call, so
// a failure part way leaves the earlier templates assigned.
func (s *TemplateStore) CheckForUncategorizedTemplates(ctx context.Context) (int, error) {
	ids, err := s.uncategorizedTemplateIDs(ctx, s.db)
	if err != nil {
		return 0, sqlerr.Classify("CheckForUncategorizedTemplates", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	defaultID, ok, err := s.GetDefaultCategoryID(ctx)
	if err != nil || !ok {
		return 0, err
	}

	for i, id := range ids {
		if err := s.UpdateTemplateCategories(ctx, id, []int64{defaultID}); err != nil {
			return i, err
		}
	}

	s.log.Info().Int("templates", len(ids)).Int64("category_id", defaultID).Msg("assigned uncategorized templates to default category")
	return len(ids), nil
}

func (s *TemplateStore) uncategorizedTemplateIDs(ctx context.Context, q Querier) ([]int64, error) {
	rows, err := q.Query(ctx, s.q.selectUncategorized)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
