package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertDescriptor creates or updates the descriptor at
// (sector, dimension, level). When d.ID is set it must match the
// descriptor already holding that slot; a different occupant is a
// ConflictError. Sector and dimension must resolve to active rows.
func (s *PostgresStore) UpsertDescriptor(ctx context.Context, d *MaturityDescriptor) error {
	if d.Level < MinLevel || d.Level > MaxLevel {
		return Validationf("level must be between %d and %d, got %d", MinLevel, MaxLevel, d.Level)
	}
	if d.Description == "" {
		return Validationf("description required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sectors WHERE id = $1 AND deleted_at IS NULL)`,
		d.SectorID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Entity: "sector", ID: d.SectorID}
	}
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM dimensions WHERE id = $1 AND deleted_at IS NULL)`,
		d.DimensionID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Entity: "dimension", ID: d.DimensionID}
	}

	var existingID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM maturity_descriptors
		WHERE sector_id = $1 AND dimension_id = $2 AND level = $3
		FOR UPDATE`,
		d.SectorID, d.DimensionID, d.Level,
	).Scan(&existingID)

	switch {
	case err == pgx.ErrNoRows:
		if err := tx.QueryRow(ctx, `
			INSERT INTO maturity_descriptors (sector_id, dimension_id, level, description)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			d.SectorID, d.DimensionID, d.Level, d.Description,
		).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if d.ID != uuid.Nil && d.ID != existingID {
			return &ConflictError{
				Entity:        "maturity descriptor",
				Constraint:    fmt.Sprintf("another active descriptor holds (sector %s, dimension %s, level %d)", d.SectorID, d.DimensionID, d.Level),
				ConflictingID: existingID,
			}
		}
		if err := tx.QueryRow(ctx, `
			UPDATE maturity_descriptors SET description = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			existingID, d.Description,
		).Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		d.ID = existingID
	}

	return tx.Commit(ctx)
}

// SoftDeleteDescriptor moves the descriptor into the archive table keyed
// by its original id and removes it from the active table, as one
// transaction.
func (s *PostgresStore) SoftDeleteDescriptor(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	d := &MaturityDescriptor{ID: id}
	err = tx.QueryRow(ctx, `
		SELECT sector_id, dimension_id, level, description
		FROM maturity_descriptors WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&d.SectorID, &d.DimensionID, &d.Level, &d.Description)
	if err == pgx.ErrNoRows {
		return &NotFoundError{Entity: "maturity descriptor", ID: id}
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO deleted_maturity_descriptors (original_id, sector_id, dimension_id, level, description)
		VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.SectorID, d.DimensionID, d.Level, d.Description,
	); err != nil {
		return fmt.Errorf("archive descriptor: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM maturity_descriptors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove active descriptor: %w", err)
	}

	return tx.Commit(ctx)
}

// RestoreDescriptor re-creates an active descriptor from its archive entry
// under a new id, then removes the archive entry. If the slot has been
// refilled since deletion the restore fails with ConflictError and the
// archive entry is kept.
func (s *PostgresStore) RestoreDescriptor(ctx context.Context, originalID uuid.UUID) (*MaturityDescriptor, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	a := &ArchivedDescriptor{OriginalID: originalID}
	err = tx.QueryRow(ctx, `
		SELECT sector_id, dimension_id, level, description
		FROM deleted_maturity_descriptors WHERE original_id = $1
		FOR UPDATE`, originalID,
	).Scan(&a.SectorID, &a.DimensionID, &a.Level, &a.Description)
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "archived descriptor", ID: originalID}
	}
	if err != nil {
		return nil, err
	}

	var occupantID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM maturity_descriptors
		WHERE sector_id = $1 AND dimension_id = $2 AND level = $3`,
		a.SectorID, a.DimensionID, a.Level,
	).Scan(&occupantID)
	if err == nil {
		return nil, &ConflictError{
			Entity:        "maturity descriptor",
			Constraint:    fmt.Sprintf("slot (sector %s, dimension %s, level %d) was refilled after deletion", a.SectorID, a.DimensionID, a.Level),
			ConflictingID: occupantID,
		}
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	d := &MaturityDescriptor{
		SectorID:    a.SectorID,
		DimensionID: a.DimensionID,
		Level:       a.Level,
		Description: a.Description,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO maturity_descriptors (sector_id, dimension_id, level, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		d.SectorID, d.DimensionID, d.Level, d.Description,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if isUniqueViolation(err) {
		// Raced with a concurrent insert into the same slot.
		return nil, &ConflictError{
			Entity:     "maturity descriptor",
			Constraint: fmt.Sprintf("slot (sector %s, dimension %s, level %d) was refilled after deletion", d.SectorID, d.DimensionID, d.Level),
		}
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM deleted_maturity_descriptors WHERE original_id = $1`, originalID); err != nil {
		return nil, fmt.Errorf("remove archive entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDescriptors(ctx context.Context, sectorID uuid.UUID) ([]*MaturityDescriptor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sector_id, dimension_id, level, description, created_at, updated_at
		FROM maturity_descriptors
		WHERE sector_id = $1
		ORDER BY dimension_id ASC, level ASC`, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descriptors []*MaturityDescriptor
	for rows.Next() {
		d := &MaturityDescriptor{}
		if err := rows.Scan(&d.ID, &d.SectorID, &d.DimensionID, &d.Level, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, rows.Err()
}

// ResolveTemplate returns the set of dimensions assessable for a sector: a
// dimension is in the template iff it is active and has at least one
// active descriptor for that sector.
func (s *PostgresStore) ResolveTemplate(ctx context.Context, sectorID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT md.dimension_id
		FROM maturity_descriptors md
		JOIN dimensions d ON d.id = md.dimension_id AND d.deleted_at IS NULL
		WHERE md.sector_id = $1`, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	template := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		template[id] = true
	}
	return template, rows.Err()
}

// ListTemplate is ResolveTemplate with display names attached. Categories
// are joined through Dimension.CategoryID for presentation only and do not
// gate membership.
func (s *PostgresStore) ListTemplate(ctx context.Context, sectorID uuid.UUID) ([]*TemplateDimension, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT d.id, d.name, d.category_id, COALESCE(c.name, '')
		FROM maturity_descriptors md
		JOIN dimensions d ON d.id = md.dimension_id AND d.deleted_at IS NULL
		LEFT JOIN categories c ON c.id = d.category_id AND c.deleted_at IS NULL
		WHERE md.sector_id = $1
		ORDER BY d.name ASC`, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dims []*TemplateDimension
	for rows.Next() {
		td := &TemplateDimension{}
		if err := rows.Scan(&td.DimensionID, &td.Name, &td.CategoryID, &td.CategoryName); err != nil {
			return nil, err
		}
		dims = append(dims, td)
	}
	return dims, rows.Err()
}
