package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateScheme inserts a new weighting scheme. When IsDefault is set the
// previous default is unset in the same transaction. Weights are
// auto-populated as equal weights: each active category gets 1/N, each
// active dimension under a category gets 1/M within it. A category with no
// active dimensions still receives a CategoryWeight and no
// DimensionWeights.
func (s *PostgresStore) CreateScheme(ctx context.Context, sch *WeightingScheme) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if sch.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE weighting_schemes SET is_default = FALSE, updated_at = NOW()
			WHERE is_default AND deleted_at IS NULL`); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO weighting_schemes (name, description, is_default)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		sch.Name, sch.Description, sch.IsDefault,
	).Scan(&sch.ID, &sch.CreatedAt, &sch.UpdatedAt)
	if isUniqueViolation(err) {
		return &ConflictError{Entity: "weighting scheme", Constraint: fmt.Sprintf("name %q already in use", sch.Name)}
	}
	if err != nil {
		return err
	}

	// Equal-weight auto-population.
	catRows, err := tx.Query(ctx, `
		SELECT id FROM categories WHERE deleted_at IS NULL ORDER BY name ASC`)
	if err != nil {
		return err
	}
	var categoryIDs []uuid.UUID
	for catRows.Next() {
		var id uuid.UUID
		if err := catRows.Scan(&id); err != nil {
			catRows.Close()
			return err
		}
		categoryIDs = append(categoryIDs, id)
	}
	catRows.Close()
	if err := catRows.Err(); err != nil {
		return err
	}

	dimsByCategory := make(map[uuid.UUID][]uuid.UUID)
	dimRows, err := tx.Query(ctx, `
		SELECT id, category_id FROM dimensions
		WHERE deleted_at IS NULL AND category_id IS NOT NULL
		ORDER BY name ASC`)
	if err != nil {
		return err
	}
	for dimRows.Next() {
		var id, catID uuid.UUID
		if err := dimRows.Scan(&id, &catID); err != nil {
			dimRows.Close()
			return err
		}
		dimsByCategory[catID] = append(dimsByCategory[catID], id)
	}
	dimRows.Close()
	if err := dimRows.Err(); err != nil {
		return err
	}

	if len(categoryIDs) > 0 {
		catWeight := 1.0 / float64(len(categoryIDs))
		for _, catID := range categoryIDs {
			cw := &CategoryWeight{SchemeID: sch.ID, CategoryID: catID, Weight: catWeight}
			if err := tx.QueryRow(ctx, `
				INSERT INTO category_weights (scheme_id, category_id, weight)
				VALUES ($1, $2, $3)
				RETURNING id`,
				cw.SchemeID, cw.CategoryID, cw.Weight,
			).Scan(&cw.ID); err != nil {
				return err
			}

			dims := dimsByCategory[catID]
			if len(dims) > 0 {
				dimWeight := 1.0 / float64(len(dims))
				for _, dimID := range dims {
					dw := &DimensionWeight{CategoryWeightID: cw.ID, DimensionID: dimID, Weight: dimWeight}
					if err := tx.QueryRow(ctx, `
						INSERT INTO dimension_weights (category_weight_id, dimension_id, weight)
						VALUES ($1, $2, $3)
						RETURNING id`,
						dw.CategoryWeightID, dw.DimensionID, dw.Weight,
					).Scan(&dw.ID); err != nil {
						return err
					}
					cw.DimensionWeights = append(cw.DimensionWeights, dw)
				}
			}
			sch.CategoryWeights = append(sch.CategoryWeights, cw)
		}
	}

	return tx.Commit(ctx)
}

// SetWeights validates and replaces the full weight map of a scheme.
// Validation order: category weights sum to 1, then each category's
// dimension weights sum to 1, then every key must resolve to an active
// category/dimension. Nothing is written unless all checks pass.
func (s *PostgresStore) SetWeights(ctx context.Context, schemeID uuid.UUID, weights WeightMap, epsilon float64) error {
	if err := weights.Validate(epsilon); err != nil {
		return err
	}
	categoryIDs := weights.SortedCategoryIDs()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM weighting_schemes WHERE id = $1 AND deleted_at IS NULL)`,
		schemeID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Entity: "weighting scheme", ID: schemeID}
	}

	activeCategories := make(map[uuid.UUID]bool)
	catRows, err := tx.Query(ctx, `SELECT id FROM categories WHERE deleted_at IS NULL`)
	if err != nil {
		return err
	}
	for catRows.Next() {
		var id uuid.UUID
		if err := catRows.Scan(&id); err != nil {
			catRows.Close()
			return err
		}
		activeCategories[id] = true
	}
	catRows.Close()
	if err := catRows.Err(); err != nil {
		return err
	}

	dimCategory := make(map[uuid.UUID]uuid.UUID)
	dimRows, err := tx.Query(ctx, `
		SELECT id, COALESCE(category_id, '00000000-0000-0000-0000-000000000000'::uuid)
		FROM dimensions WHERE deleted_at IS NULL`)
	if err != nil {
		return err
	}
	for dimRows.Next() {
		var id, catID uuid.UUID
		if err := dimRows.Scan(&id, &catID); err != nil {
			dimRows.Close()
			return err
		}
		dimCategory[id] = catID
	}
	dimRows.Close()
	if err := dimRows.Err(); err != nil {
		return err
	}

	for _, catID := range categoryIDs {
		if !activeCategories[catID] {
			return Validationf("unknown or deleted category %s", catID)
		}
		for dimID := range weights[catID].Dimensions {
			owner, ok := dimCategory[dimID]
			if !ok {
				return Validationf("unknown or deleted dimension %s in category %s", dimID, catID)
			}
			if owner != catID {
				return Validationf("dimension %s does not belong to category %s", dimID, catID)
			}
		}
	}

	// Full replace: the weight map is the unit of update.
	if _, err := tx.Exec(ctx, `
		DELETE FROM dimension_weights
		WHERE category_weight_id IN (SELECT id FROM category_weights WHERE scheme_id = $1)`,
		schemeID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM category_weights WHERE scheme_id = $1`, schemeID); err != nil {
		return err
	}

	for _, catID := range categoryIDs {
		spec := weights[catID]
		var cwID uuid.UUID
		if err := tx.QueryRow(ctx, `
			INSERT INTO category_weights (scheme_id, category_id, weight)
			VALUES ($1, $2, $3)
			RETURNING id`,
			schemeID, catID, spec.Weight,
		).Scan(&cwID); err != nil {
			return err
		}

		dimIDs := make([]uuid.UUID, 0, len(spec.Dimensions))
		for dimID := range spec.Dimensions {
			dimIDs = append(dimIDs, dimID)
		}
		sort.Slice(dimIDs, func(i, j int) bool { return dimIDs[i].String() < dimIDs[j].String() })
		for _, dimID := range dimIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO dimension_weights (category_weight_id, dimension_id, weight)
				VALUES ($1, $2, $3)`,
				cwID, dimID, spec.Dimensions[dimID]); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE weighting_schemes SET updated_at = NOW() WHERE id = $1`, schemeID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetDefaultScheme unsets the previous default and sets the new one in a
// single transaction. Concurrent calls serialize on the scheme row lock;
// the last committed writer wins and the single-default invariant holds.
func (s *PostgresStore) SetDefaultScheme(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT TRUE FROM weighting_schemes
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, id).Scan(&exists)
	if err == pgx.ErrNoRows {
		return &NotFoundError{Entity: "weighting scheme", ID: id}
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE weighting_schemes SET is_default = FALSE, updated_at = NOW()
		WHERE is_default AND deleted_at IS NULL AND id <> $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE weighting_schemes SET is_default = TRUE, updated_at = NOW()
		WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SoftDeleteScheme soft-deletes a scheme. The current default cannot be
// deleted; promote another scheme first.
func (s *PostgresStore) SoftDeleteScheme(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var isDefault bool
	err = tx.QueryRow(ctx, `
		SELECT is_default FROM weighting_schemes
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, id).Scan(&isDefault)
	if err == pgx.ErrNoRows {
		return &NotFoundError{Entity: "weighting scheme", ID: id}
	}
	if err != nil {
		return err
	}
	if isDefault {
		return &InvalidOperationError{Reason: "cannot delete the default weighting scheme"}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE weighting_schemes SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const schemeColumns = `id, name, description, is_default, created_at, updated_at`

func (s *PostgresStore) GetScheme(ctx context.Context, id uuid.UUID) (*WeightingScheme, error) {
	sch := &WeightingScheme{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+schemeColumns+`
		FROM weighting_schemes WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&sch.ID, &sch.Name, &sch.Description, &sch.IsDefault, &sch.CreatedAt, &sch.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "weighting scheme", ID: id}
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadSchemeWeights(ctx, sch); err != nil {
		return nil, err
	}
	return sch, nil
}

func (s *PostgresStore) GetDefaultScheme(ctx context.Context) (*WeightingScheme, error) {
	sch := &WeightingScheme{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+schemeColumns+`
		FROM weighting_schemes WHERE is_default AND deleted_at IS NULL`,
	).Scan(&sch.ID, &sch.Name, &sch.Description, &sch.IsDefault, &sch.CreatedAt, &sch.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "default weighting scheme"}
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadSchemeWeights(ctx, sch); err != nil {
		return nil, err
	}
	return sch, nil
}

func (s *PostgresStore) ListSchemes(ctx context.Context) ([]*WeightingScheme, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+schemeColumns+`
		FROM weighting_schemes WHERE deleted_at IS NULL
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemes []*WeightingScheme
	for rows.Next() {
		sch := &WeightingScheme{}
		if err := rows.Scan(&sch.ID, &sch.Name, &sch.Description, &sch.IsDefault, &sch.CreatedAt, &sch.UpdatedAt); err != nil {
			return nil, err
		}
		schemes = append(schemes, sch)
	}
	return schemes, rows.Err()
}

func (s *PostgresStore) loadSchemeWeights(ctx context.Context, sch *WeightingScheme) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, scheme_id, category_id, weight
		FROM category_weights WHERE scheme_id = $1
		ORDER BY category_id ASC`, sch.ID)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*CategoryWeight)
	for rows.Next() {
		cw := &CategoryWeight{}
		if err := rows.Scan(&cw.ID, &cw.SchemeID, &cw.CategoryID, &cw.Weight); err != nil {
			rows.Close()
			return err
		}
		byID[cw.ID] = cw
		sch.CategoryWeights = append(sch.CategoryWeights, cw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	dimRows, err := s.pool.Query(ctx, `
		SELECT dw.id, dw.category_weight_id, dw.dimension_id, dw.weight
		FROM dimension_weights dw
		JOIN category_weights cw ON cw.id = dw.category_weight_id
		WHERE cw.scheme_id = $1
		ORDER BY dw.dimension_id ASC`, sch.ID)
	if err != nil {
		return err
	}
	defer dimRows.Close()

	for dimRows.Next() {
		dw := &DimensionWeight{}
		if err := dimRows.Scan(&dw.ID, &dw.CategoryWeightID, &dw.DimensionID, &dw.Weight); err != nil {
			return err
		}
		if cw, ok := byID[dw.CategoryWeightID]; ok {
			cw.DimensionWeights = append(cw.DimensionWeights, dw)
		}
	}
	return dimRows.Err()
}
