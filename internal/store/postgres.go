package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// EnsureSchema creates all tables and constraints if they do not exist.
// The partial unique indexes carry the write-time invariants: active-only
// name uniqueness, one active descriptor per (sector, dimension, level),
// and at most one non-deleted default scheme.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sectors (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sectors_active_name
			ON sectors (name) WHERE deleted_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS categories_active_name
			ON categories (name) WHERE deleted_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS dimensions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			category_id UUID REFERENCES categories(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS dimensions_active_name
			ON dimensions (name) WHERE deleted_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS maturity_descriptors (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			sector_id UUID NOT NULL REFERENCES sectors(id),
			dimension_id UUID NOT NULL REFERENCES dimensions(id),
			level INT NOT NULL CHECK (level BETWEEN 1 AND 5),
			description TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (sector_id, dimension_id, level)
		)`,
		`CREATE TABLE IF NOT EXISTS deleted_maturity_descriptors (
			original_id UUID PRIMARY KEY,
			sector_id UUID NOT NULL,
			dimension_id UUID NOT NULL,
			level INT NOT NULL,
			description TEXT NOT NULL,
			deleted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS weighting_schemes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS schemes_active_name
			ON weighting_schemes (name) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS schemes_single_default
			ON weighting_schemes ((is_default)) WHERE is_default AND deleted_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS category_weights (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			scheme_id UUID NOT NULL REFERENCES weighting_schemes(id) ON DELETE CASCADE,
			category_id UUID NOT NULL REFERENCES categories(id),
			weight DOUBLE PRECISION NOT NULL CHECK (weight >= 0 AND weight <= 1),
			UNIQUE (scheme_id, category_id)
		)`,
		`CREATE TABLE IF NOT EXISTS dimension_weights (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			category_weight_id UUID NOT NULL REFERENCES category_weights(id) ON DELETE CASCADE,
			dimension_id UUID NOT NULL REFERENCES dimensions(id),
			weight DOUBLE PRECISION NOT NULL CHECK (weight >= 0 AND weight <= 1),
			UNIQUE (category_weight_id, dimension_id)
		)`,
		`CREATE TABLE IF NOT EXISTS companies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			sector_id UUID NOT NULL REFERENCES sectors(id),
			department TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id UUID NOT NULL REFERENCES companies(id),
			department TEXT NOT NULL DEFAULT '',
			expert_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			weighting_scheme_id UUID REFERENCES weighting_schemes(id),
			weighted_average_score DOUBLE PRECISION,
			calculation_used TEXT NOT NULL DEFAULT 'no_scores',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			assessment_id UUID NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
			dimension_id UUID NOT NULL REFERENCES dimensions(id),
			level INT NOT NULL CHECK (level BETWEEN 1 AND 5),
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (assessment_id, dimension_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- Sectors ---

func (s *PostgresStore) CreateSector(ctx context.Context, sec *Sector) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sectors (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at`,
		sec.Name,
	).Scan(&sec.ID, &sec.CreatedAt, &sec.UpdatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Entity: "sector", Constraint: fmt.Sprintf("name %q already in use", sec.Name)}
	}
	return err
}

func (s *PostgresStore) ListSectors(ctx context.Context) ([]*Sector, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM sectors WHERE deleted_at IS NULL
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sectors []*Sector
	for rows.Next() {
		sec := &Sector{}
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.CreatedAt, &sec.UpdatedAt); err != nil {
			return nil, err
		}
		sectors = append(sectors, sec)
	}
	return sectors, rows.Err()
}

func (s *PostgresStore) SoftDeleteSector(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sectors SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "sector", ID: id}
	}
	return nil
}

// --- Categories ---

func (s *PostgresStore) CreateCategory(ctx context.Context, c *Category) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at`,
		c.Name,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Entity: "category", Constraint: fmt.Sprintf("name %q already in use", c.Name)}
	}
	return err
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories WHERE deleted_at IS NULL
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) SoftDeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE categories SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "category", ID: id}
	}
	return nil
}

// --- Dimensions ---

func (s *PostgresStore) CreateDimension(ctx context.Context, d *Dimension) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dimensions (name, category_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		d.Name, d.CategoryID,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Entity: "dimension", Constraint: fmt.Sprintf("name %q already in use", d.Name)}
	}
	return err
}

func (s *PostgresStore) ListDimensions(ctx context.Context) ([]*Dimension, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, category_id, created_at, updated_at
		FROM dimensions WHERE deleted_at IS NULL
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dims []*Dimension
	for rows.Next() {
		d := &Dimension{}
		if err := rows.Scan(&d.ID, &d.Name, &d.CategoryID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, rows.Err()
}

func (s *PostgresStore) SoftDeleteDimension(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dimensions SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "dimension", ID: id}
	}
	return nil
}

func (s *PostgresStore) GetDimensionNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name FROM dimensions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
