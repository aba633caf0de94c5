package repository

import (
	"context"
	"errors"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/model"

	"github.com/jackc/pgx/v5"
)

// CreateTables creates the store tables, or migrates existing ones in
// place. It is safe to call on every start.
func (s *TemplateStore) CreateTables(ctx context.Context) error {
	if err := s.schema.Migrate(ctx); err != nil {
		return errs.NewStoreError("CreateTables", errs.ErrSchema, err)
	}
	return nil
}

// DropTables drops every store table. There is no way back.
func (s *TemplateStore) DropTables(ctx context.Context) error {
	if err := s.schema.DropTables(ctx); err != nil {
		return errs.NewStoreError("DropTables", errs.ErrSchema, err)
	}
	return nil
}

// UpgradeToV20 rebuilds categories from scratch: all categories and
// relationships are deleted, a single default category is seeded, and
// every template is put in it. Existing category assignments are lost.
func (s *TemplateStore) UpgradeToV20(ctx context.Context) error {
	return s.withTx(ctx, "UpgradeToV20", func(q Querier) error {
		if _, err := exec(ctx, q, s.q.deleteAllCategories); err != nil {
			return err
		}
		if _, err := exec(ctx, q, s.q.deleteAllRelationships); err != nil {
			return err
		}

		defaultID, _, err := s.ensureDefaultCategory(ctx, q)
		if err != nil {
			return err
		}

		uncategorized, err := s.uncategorizedTemplateIDs(ctx, q)
		if err != nil {
			return err
		}
		rels := make([]model.CategoryRelationship, 0, len(uncategorized))
		for _, id := range uncategorized {
			rels = append(rels, model.CategoryRelationship{CategoryID: defaultID, TemplateID: id})
		}
		if err := s.insertRelationships(ctx, q, rels); err != nil {
			return err
		}

		if _, err := exec(ctx, q, s.q.recountCategories); err != nil {
			return err
		}

		s.log.Info().
			Int64("default_category_id", defaultID).
			Int("templates", len(uncategorized)).
			Msg("upgraded template categories")
		return nil
	})
}

// EnsureDefaultCategory seeds the default category unless a default
// already exists. It returns the default's id and whether it was created.
func (s *TemplateStore) EnsureDefaultCategory(ctx context.Context) (int64, bool, error) {
	var (
		id      int64
		created bool
	)
	err := s.withTx(ctx, "EnsureDefaultCategory", func(q Querier) error {
		var err error
		id, created, err = s.ensureDefaultCategory(ctx, q)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

func (s *TemplateStore) ensureDefaultCategory(ctx context.Context, q Querier) (int64, bool, error) {
	var id int64
	err := q.QueryRow(ctx, s.q.selectDefaultID).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, false, err
	}

	if err := q.QueryRow(ctx, s.q.insertCategory, model.DefaultCategoryName, "", true).Scan(&id); err != nil {
		return 0, false, err
	}
	s.log.Debug().Int64("category_id", id).Msg("seeded default category")
	return id, true, nil
}
