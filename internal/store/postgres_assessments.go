package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Companies ---

func (s *PostgresStore) CreateCompany(ctx context.Context, c *Company) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO companies (name, sector_id, department)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		c.Name, c.SectorID, c.Department,
	).Scan(&c.ID, &c.CreatedAt)
	return err
}

func (s *PostgresStore) GetCompanySector(ctx context.Context, companyID uuid.UUID) (uuid.UUID, error) {
	var sectorID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT sector_id FROM companies WHERE id = $1`, companyID,
	).Scan(&sectorID)
	if err == pgx.ErrNoRows {
		return uuid.Nil, &NotFoundError{Entity: "company", ID: companyID}
	}
	return sectorID, err
}

// --- Assessments ---

const assessmentColumns = `id, company_id, department, expert_id, status,
	weighting_scheme_id, weighted_average_score, calculation_used,
	created_at, updated_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	a := &Assessment{}
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.Department, &a.ExpertID, &a.Status,
		&a.WeightingSchemeID, &a.WeightedAverageScore, &a.CalculationUsed,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) CreateAssessment(ctx context.Context, a *Assessment) error {
	if a.ExpertID == "" {
		return Validationf("expert_id required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, a.CompanyID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Entity: "company", ID: a.CompanyID}
	}
	if a.WeightingSchemeID != nil {
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM weighting_schemes WHERE id = $1 AND deleted_at IS NULL)`,
			*a.WeightingSchemeID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return &NotFoundError{Entity: "weighting scheme", ID: *a.WeightingSchemeID}
		}
	}

	a.Status = StatusDraft
	a.CalculationUsed = MethodNoScores
	if err := tx.QueryRow(ctx, `
		INSERT INTO assessments (company_id, department, expert_id, status, weighting_scheme_id, calculation_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		a.CompanyID, a.Department, a.ExpertID, a.Status, a.WeightingSchemeID, a.CalculationUsed,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	a, err := scanAssessment(s.pool.QueryRow(ctx, `
		SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "assessment", ID: id}
	}
	return a, err
}

func (s *PostgresStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]*Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.CompanyID != nil {
		n++
		query += fmt.Sprintf(" AND company_id = $%d", n)
		args = append(args, *filter.CompanyID)
	}
	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.ExpertID != "" {
		n++
		query += fmt.Sprintf(" AND expert_id = $%d", n)
		args = append(args, filter.ExpertID)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*Assessment
	for rows.Next() {
		a := &Assessment{}
		if err := rows.Scan(
			&a.ID, &a.CompanyID, &a.Department, &a.ExpertID, &a.Status,
			&a.WeightingSchemeID, &a.WeightedAverageScore, &a.CalculationUsed,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func (s *PostgresStore) ListScores(ctx context.Context, assessmentID uuid.UUID) ([]*Score, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, assessment_id, dimension_id, level, notes, created_at, updated_at
		FROM scores WHERE assessment_id = $1
		ORDER BY dimension_id ASC`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*Score
	for rows.Next() {
		sc := &Score{}
		if err := rows.Scan(&sc.ID, &sc.AssessmentID, &sc.DimensionID, &sc.Level, &sc.Notes, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// UpsertScore writes one per-dimension score and recomputes the derived
// weighted score in the same transaction. Scores are editable only while
// the assessment is in draft, and only for dimensions in the template of
// the company's sector.
func (s *PostgresStore) UpsertScore(ctx context.Context, assessmentID uuid.UUID, sc *Score, aggregate AggregateFn) (*Assessment, error) {
	if sc.Level < MinLevel || sc.Level > MaxLevel {
		return nil, Validationf("level must be between %d and %d, got %d", MinLevel, MaxLevel, sc.Level)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var companyID uuid.UUID
	var status AssessmentStatus
	var schemeID *uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT company_id, status, weighting_scheme_id
		FROM assessments WHERE id = $1
		FOR UPDATE`, assessmentID,
	).Scan(&companyID, &status, &schemeID)
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "assessment", ID: assessmentID}
	}
	if err != nil {
		return nil, err
	}
	if status != StatusDraft {
		return nil, &InvalidOperationError{Reason: fmt.Sprintf("scores are immutable once %s", status)}
	}

	var sectorID uuid.UUID
	if err := tx.QueryRow(ctx, `
		SELECT sector_id FROM companies WHERE id = $1`, companyID).Scan(&sectorID); err != nil {
		return nil, err
	}

	template, err := resolveTemplateTx(ctx, tx, sectorID)
	if err != nil {
		return nil, err
	}
	if !template[sc.DimensionID] {
		return nil, Validationf("dimension %s is not assessable for this sector", sc.DimensionID)
	}

	sc.AssessmentID = assessmentID
	if err := tx.QueryRow(ctx, `
		INSERT INTO scores (assessment_id, dimension_id, level, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (assessment_id, dimension_id)
		DO UPDATE SET level = EXCLUDED.level, notes = EXCLUDED.notes, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		sc.AssessmentID, sc.DimensionID, sc.Level, sc.Notes,
	).Scan(&sc.ID, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return nil, err
	}

	a, err := recomputeAssessmentTx(ctx, tx, assessmentID, schemeID, template, aggregate)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// AssignScheme sets or clears the assessment's weighting scheme and
// recomputes the derived score in the same transaction. Reviewed
// assessments are closed to scheme changes.
func (s *PostgresStore) AssignScheme(ctx context.Context, assessmentID uuid.UUID, schemeID *uuid.UUID, aggregate AggregateFn) (*Assessment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var companyID uuid.UUID
	var status AssessmentStatus
	err = tx.QueryRow(ctx, `
		SELECT company_id, status FROM assessments WHERE id = $1
		FOR UPDATE`, assessmentID,
	).Scan(&companyID, &status)
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "assessment", ID: assessmentID}
	}
	if err != nil {
		return nil, err
	}
	if status == StatusReviewed {
		return nil, &InvalidOperationError{Reason: "cannot change the weighting scheme of a reviewed assessment"}
	}

	if schemeID != nil {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM weighting_schemes WHERE id = $1 AND deleted_at IS NULL)`,
			*schemeID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, &NotFoundError{Entity: "weighting scheme", ID: *schemeID}
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE assessments SET weighting_scheme_id = $2, updated_at = NOW()
		WHERE id = $1`, assessmentID, schemeID); err != nil {
		return nil, err
	}

	var sectorID uuid.UUID
	if err := tx.QueryRow(ctx, `
		SELECT sector_id FROM companies WHERE id = $1`, companyID).Scan(&sectorID); err != nil {
		return nil, err
	}
	template, err := resolveTemplateTx(ctx, tx, sectorID)
	if err != nil {
		return nil, err
	}

	a, err := recomputeAssessmentTx(ctx, tx, assessmentID, schemeID, template, aggregate)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// TransitionAssessment advances the lifecycle: draft → submitted →
// reviewed. Any other transition is rejected.
func (s *PostgresStore) TransitionAssessment(ctx context.Context, id uuid.UUID, next AssessmentStatus) (*Assessment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current AssessmentStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM assessments WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, &NotFoundError{Entity: "assessment", ID: id}
	}
	if err != nil {
		return nil, err
	}

	valid := (current == StatusDraft && next == StatusSubmitted) ||
		(current == StatusSubmitted && next == StatusReviewed)
	if !valid {
		return nil, &InvalidOperationError{Reason: fmt.Sprintf("cannot transition assessment from %s to %s", current, next)}
	}

	a, err := scanAssessment(tx.QueryRow(ctx, `
		UPDATE assessments SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+assessmentColumns, id, next))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// --- transaction helpers ---

func resolveTemplateTx(ctx context.Context, tx pgx.Tx, sectorID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := tx.Query(ctx, `
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

func loadScoresTx(ctx context.Context, tx pgx.Tx, assessmentID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT dimension_id, level FROM scores WHERE assessment_id = $1`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var level int
		if err := rows.Scan(&id, &level); err != nil {
			return nil, err
		}
		scores[id] = level
	}
	return scores, rows.Err()
}

func loadSchemeTx(ctx context.Context, tx pgx.Tx, schemeID uuid.UUID) (*WeightingScheme, error) {
	sch := &WeightingScheme{}
	err := tx.QueryRow(ctx, `
		SELECT `+schemeColumns+`
		FROM weighting_schemes WHERE id = $1 AND deleted_at IS NULL`, schemeID,
	).Scan(&sch.ID, &sch.Name, &sch.Description, &sch.IsDefault, &sch.CreatedAt, &sch.UpdatedAt)
	if err == pgx.ErrNoRows {
		// Scheme deleted out from under the assessment: degrade to unweighted.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, scheme_id, category_id, weight
		FROM category_weights WHERE scheme_id = $1
		ORDER BY category_id ASC`, schemeID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*CategoryWeight)
	for rows.Next() {
		cw := &CategoryWeight{}
		if err := rows.Scan(&cw.ID, &cw.SchemeID, &cw.CategoryID, &cw.Weight); err != nil {
			rows.Close()
			return nil, err
		}
		byID[cw.ID] = cw
		sch.CategoryWeights = append(sch.CategoryWeights, cw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dimRows, err := tx.Query(ctx, `
		SELECT dw.id, dw.category_weight_id, dw.dimension_id, dw.weight
		FROM dimension_weights dw
		JOIN category_weights cw ON cw.id = dw.category_weight_id
		WHERE cw.scheme_id = $1
		ORDER BY dw.dimension_id ASC`, schemeID)
	if err != nil {
		return nil, err
	}
	defer dimRows.Close()

	for dimRows.Next() {
		dw := &DimensionWeight{}
		if err := dimRows.Scan(&dw.ID, &dw.CategoryWeightID, &dw.DimensionID, &dw.Weight); err != nil {
			return nil, err
		}
		if cw, ok := byID[dw.CategoryWeightID]; ok {
			cw.DimensionWeights = append(cw.DimensionWeights, dw)
		}
	}
	return sch, dimRows.Err()
}

func recomputeAssessmentTx(ctx context.Context, tx pgx.Tx, assessmentID uuid.UUID, schemeID *uuid.UUID, template map[uuid.UUID]bool, aggregate AggregateFn) (*Assessment, error) {
	if aggregate == nil {
		return scanAssessment(tx.QueryRow(ctx, `
			SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, assessmentID))
	}

	scores, err := loadScoresTx(ctx, tx, assessmentID)
	if err != nil {
		return nil, err
	}

	var scheme *WeightingScheme
	if schemeID != nil {
		scheme, err = loadSchemeTx(ctx, tx, *schemeID)
		if err != nil {
			return nil, err
		}
	}

	value, method := aggregate(scores, scheme, template)
	return scanAssessment(tx.QueryRow(ctx, `
		UPDATE assessments SET weighted_average_score = $2, calculation_used = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+assessmentColumns, assessmentID, value, string(method)))
}
