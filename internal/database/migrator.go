package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

// Embed all SQL files under migrations/ at compile time so the binary
// carries its schema.
//
// The files are text/template sources: tern renders them with the
// Migrator's Data map, which is how the configured table prefix reaches
// the DDL.
//
//go:embed migrations/*.sql
var migrations embed.FS

// Migrator brings the templates store schema up to date for one prefix.
//
// Each prefix gets its own tern version table, so several tenants can
// share a database without stepping on each other's migration state.
type Migrator struct {
	pool   *pgxpool.Pool
	tables Tables
	log    *zerolog.Logger
}

// NewMigrator constructs a Migrator over a pool.
func NewMigrator(pool *pgxpool.Pool, tables Tables, logger *zerolog.Logger) *Migrator {
	return &Migrator{
		pool:   pool,
		tables: tables,
		log:    logger,
	}
}

// Migrate runs the embedded migrations to the latest version.
//
// Behavior:
//   - Acquire a single connection from the pool (tern needs a *pgx.Conn)
//   - Create the tern migrator with the prefixed version table
//   - Render and load the embedded migrations with the table names
//   - Run migrations to latest and log whether anything changed
func (m *Migrator) Migrate(ctx context.Context) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection for migrations: %w", err)
	}
	defer conn.Release()

	return Migrate(ctx, conn.Conn(), m.log, m.tables)
}

// DropTables drops the store tables and the version table.
//
// It does not go through the down migrations: an uninstall must succeed
// even when the version table is missing or out of sync.
func (m *Migrator) DropTables(ctx context.Context) error {
	for _, table := range []string{m.tables.Relationships, m.tables.Categories, m.tables.Templates, m.tables.Version} {
		sql := "DROP TABLE IF EXISTS " + pgx.Identifier{table}.Sanitize()
		if _, err := m.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}

	m.log.Info().Str("prefix", m.tables.Prefix).Msg("dropped templates store tables")
	return nil
}

// Migrate runs the templates store migrations on a single connection.
func Migrate(ctx context.Context, conn *pgx.Conn, logger *zerolog.Logger, tables Tables) error {
	m, err := tern.NewMigrator(ctx, conn, tables.Version)
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	// Data must be set before LoadMigrations: rendering happens at load time.
	m.Data = tables.templateData()

	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("applying database migrations: %w", err)
	}

	if from == int32(len(m.Migrations)) {
		logger.Info().
			Str("prefix", tables.Prefix).
			Msgf("templates schema up to date, version %d", len(m.Migrations))
	} else {
		logger.Info().
			Str("prefix", tables.Prefix).
			Msgf("migrated templates schema, from %d to %d", from, len(m.Migrations))
	}
	return nil
}
