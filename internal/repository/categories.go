package repository

import (
	"context"
	"errors"

	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/sqlerr"

	"github.com/jackc/pgx/v5"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsDefault, &c.TemplatesCount)
	return c, err
}

func collectCategory(row pgx.CollectableRow) (model.Category, error) {
	return scanCategory(row)
}

// AddCategory inserts a category and returns its id. Flagging it default
// does not clear other defaults; GetDefaultCategory repairs that.
func (s *TemplateStore) AddCategory(ctx context.Context, name, description string, isDefault bool) (int64, error) {
	var id int64
	if err := s.db.QueryRow(ctx, s.q.insertCategory, name, description, isDefault).Scan(&id); err != nil {
		return 0, sqlerr.Classify("AddCategory", err)
	}

	s.log.Debug().Str("operation", "AddCategory").Int64("category_id", id).Bool("is_default", isDefault).Msg("category added")
	return id, nil
}

// GetDefaultCategory returns the default category, or nil if there is none.
//
// If several categories are flagged default, the one with the lowest id
// is kept and the flag is cleared on the others before returning.
func (s *TemplateStore) GetDefaultCategory(ctx context.Context) (*model.Category, error) {
	var found *model.Category
	err := s.withTx(ctx, "GetDefaultCategory", func(q Querier) error {
		c, err := scanCategory(q.QueryRow(ctx, s.q.selectDefaultCategory))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		cleared, err := exec(ctx, q, s.q.repairDefaultCategory, c.ID)
		if err != nil {
			return err
		}
		if cleared > 0 {
			s.log.Warn().Int64("category_id", c.ID).Int64("cleared", cleared).Msg("cleared extra default categories")
		}

		found = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// RepairDefaultCategory clears the default flag on every category except
// keepID and reports how many rows it changed. Running it twice is a no-op.
func (s *TemplateStore) RepairDefaultCategory(ctx context.Context, keepID int64) (int64, error) {
	cleared, err := exec(ctx, s.db, s.q.repairDefaultCategory, keepID)
	if err != nil {
		return 0, sqlerr.Classify("RepairDefaultCategory", err)
	}
	return cleared, nil
}

// GetDefaultCategoryID returns the default category's id; ok is false
// when no category is flagged default.
func (s *TemplateStore) GetDefaultCategoryID(ctx context.Context) (id int64, ok bool, err error) {
	id, ok, err = s.defaultCategoryID(ctx, s.db)
	if err != nil {
		return 0, false, sqlerr.Classify("GetDefaultCategoryID", err)
	}
	return id, ok, nil
}

func (s *TemplateStore) defaultCategoryID(ctx context.Context, q Querier) (int64, bool, error) {
	var id int64
	err := q.QueryRow(ctx, s.q.selectDefaultID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// UpdateCategory sets name and description. The default flag and count
// are left alone, and a missing id is not an error.
func (s *TemplateStore) UpdateCategory(ctx context.Context, id int64, name, description string) error {
	if _, err := exec(ctx, s.db, s.q.updateCategory, name, description, id); err != nil {
		return sqlerr.Classify("UpdateCategory", err)
	}
	s.log.Debug().Str("operation", "UpdateCategory").Int64("category_id", id).Msg("category updated")
	return nil
}

// DeleteCategory removes a category and its relationship rows. Counts of
// other categories are unaffected, so no recount runs.
func (s *TemplateStore) DeleteCategory(ctx context.Context, id int64) error {
	return s.withTx(ctx, "DeleteCategory", func(q Querier) error {
		if _, err := exec(ctx, q, s.q.deleteCategory, id); err != nil {
			return err
		}
		unlinked, err := exec(ctx, q, s.q.deleteCategoryRelations, id)
		if err != nil {
			return err
		}

		s.log.Debug().Str("operation", "DeleteCategory").Int64("category_id", id).Int64("unlinked", unlinked).Msg("category deleted")
		return nil
	})
}

// ListCategories returns every category ordered by id.
func (s *TemplateStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.Query(ctx, s.q.selectCategories)
	if err != nil {
		return nil, sqlerr.Classify("ListCategories", err)
	}
	categories, err := pgx.CollectRows(rows, collectCategory)
	if err != nil {
		return nil, sqlerr.Classify("ListCategories", err)
	}
	return categories, nil
}

// GetCategory returns the category with id, or nil if it does not exist.
func (s *TemplateStore) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.getCategory(ctx, s.db, id)
	if err != nil {
		return nil, sqlerr.Classify("GetCategory", err)
	}
	return c, nil
}

func (s *TemplateStore) getCategory(ctx context.Context, q Querier, id int64) (*model.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx, s.q.selectCategory, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountCategories returns the number of categories.
func (s *TemplateStore) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, s.q.countCategories).Scan(&n); err != nil {
		return 0, sqlerr.Classify("CountCategories", err)
	}
	return n, nil
}

// IsDefaultCategory reports the default flag of one category. A missing
// category is not default.
func (s *TemplateStore) IsDefaultCategory(ctx context.Context, id int64) (bool, error) {
	var isDefault bool
	err := s.db.QueryRow(ctx, s.q.isDefaultCategory, id).Scan(&isDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, sqlerr.Classify("IsDefaultCategory", err)
	}
	return isDefault, nil
}
