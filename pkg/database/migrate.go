package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrMigrationFailed wraps any failure while applying a schema migration.
var ErrMigrationFailed = errors.New("migration failed")

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Migrator applies embedded migrations in version order, each inside its own transaction.
type Migrator struct {
	db         *sqlx.DB
	migrations []Migration
	logger     *zap.Logger
}

// NewMigrator constructs a migrator over the embedded migration set.
func NewMigrator(db *sqlx.DB, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, migrations: Migrations(), logger: logger}
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Migrate applies every migration that is not yet recorded and returns how many ran.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}

	var versions []int
	if err := m.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations ORDER BY version"); err != nil {
		return 0, fmt.Errorf("query applied migrations: %w", err)
	}
	applied := make(map[int]struct{}, len(versions))
	for _, v := range versions {
		applied[v] = struct{}{}
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		m.logger.Info("migration applied", zap.Int("version", mig.Version), zap.String("name", mig.Name))
		count++
	}
	return count, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, mig.UpSQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Migrations returns the embedded schema history.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_lookups", UpSQL: migration001},
		{Version: 2, Name: "create_students", UpSQL: migration002},
		{Version: 3, Name: "create_export_jobs", UpSQL: migration003},
		{Version: 4, Name: "seed_lookups", UpSQL: migration004},
	}
}

const migration001 = `
CREATE TABLE IF NOT EXISTS plan_types (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    color TEXT NOT NULL DEFAULT '#3B82F6',
    sort_order INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS training_phases (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    color TEXT NOT NULL DEFAULT '#10B981',
    sort_order INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migration002 = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT,
    plan_type_id TEXT NOT NULL REFERENCES plan_types(id) ON DELETE RESTRICT,
    plan_start_date TIMESTAMPTZ NOT NULL,
    plan_expiry_date TIMESTAMPTZ NOT NULL,
    training_start_date TIMESTAMPTZ,
    training_expiry_date TIMESTAMPTZ,
    training_phase_id TEXT REFERENCES training_phases(id) ON DELETE SET NULL,
    training_status TEXT NOT NULL DEFAULT 'Não Iniciado',
    payment_status TEXT NOT NULL DEFAULT 'Pendente',
    payment_method TEXT,
    payment_date TIMESTAMPTZ,
    discount NUMERIC(12,2) NOT NULL DEFAULT 0,
    discount_type TEXT NOT NULL DEFAULT 'valor',
    training_access_id TEXT,
    observations TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_name ON students(name);
CREATE INDEX IF NOT EXISTS idx_students_plan_expiry ON students(plan_expiry_date);
CREATE INDEX IF NOT EXISTS idx_students_payment_status ON students(payment_status);
`

const migration003 = `
CREATE TABLE IF NOT EXISTS export_jobs (
    id TEXT PRIMARY KEY,
    params JSONB NOT NULL,
    status TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    result_path TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    finished_at TIMESTAMPTZ,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_export_jobs_status ON export_jobs(status, created_at);
`

const migration004 = `
INSERT INTO plan_types (id, name, color, sort_order) VALUES
    ('plan-mensal', 'Mensal', '#3B82F6', 1),
    ('plan-trimestral', 'Trimestral', '#8B5CF6', 2),
    ('plan-semestral', 'Semestral', '#F59E0B', 3),
    ('plan-anual', 'Anual', '#10B981', 4)
ON CONFLICT (name) DO NOTHING;

INSERT INTO training_phases (id, name, color, sort_order) VALUES
    ('phase-adaptacao', 'Adaptação', '#10B981', 1),
    ('phase-hipertrofia', 'Hipertrofia', '#3B82F6', 2),
    ('phase-definicao', 'Definição', '#EF4444', 3)
ON CONFLICT (name) DO NOTHING;
`
