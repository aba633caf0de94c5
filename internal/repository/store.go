package repository

import (
	"context"

	"github.com/deppfellow/blogtemplates/internal/database"
	"github.com/deppfellow/blogtemplates/internal/sqlerr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Querier is what single statements need. Both a pool and a pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Querier that can also open transactions: *pgxpool.Pool in
// production, pgxmock.PgxPoolIface in tests.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SchemaManager creates and drops the store tables.
type SchemaManager interface {
	Migrate(ctx context.Context) error
	DropTables(ctx context.Context) error
}

// TemplateStore owns the three templates store tables for one prefix.
//
// It is safe for concurrent use; it holds no state besides the pool.
// Multi-statement operations run in a single transaction.
type TemplateStore struct {
	db     DB
	schema SchemaManager
	tables database.Tables
	q      queries
	log    *zerolog.Logger
}

// NewTemplateStore returns a store over the tables. Nothing is created
// until CreateTables runs.
func NewTemplateStore(db DB, schema SchemaManager, tables database.Tables, logger *zerolog.Logger) *TemplateStore {
	return &TemplateStore{
		db:     db,
		schema: schema,
		tables: tables,
		q:      newQueries(tables),
		log:    logger,
	}
}

// Tables returns the table names the store operates on.
func (s *TemplateStore) Tables() database.Tables {
	return s.tables
}

// withTx runs fn in a transaction, committing if it returns nil and
// rolling back otherwise. The returned error is classified under op.
func (s *TemplateStore) withTx(ctx context.Context, op string, fn func(q Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return sqlerr.Classify(op, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.log.Warn().Err(rbErr).Str("operation", op).Msg("rollback failed")
		}
		return sqlerr.Classify(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return sqlerr.Classify(op, err)
	}
	return nil
}

// exec runs a statement and reports the rows it touched.
func exec(ctx context.Context, q Querier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
