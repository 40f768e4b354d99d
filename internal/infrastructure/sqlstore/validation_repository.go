package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

const validationColumns = `id, tenant_id, version, status, description, created_at, updated_at, published_at, published_by,
	data_schema_id`

// validationRepository implements domain.ValidationRepository.
type validationRepository struct {
	q runner
}

var _ domain.ValidationRepository = (*validationRepository)(nil)

func scanValidation(scanner interface{ Scan(...any) error }) (*ValidationModel, error) {
	var m ValidationModel
	err := scanner.Scan(
		&m.ID, &m.TenantID, &m.Version, &m.Status, &m.Description,
		&m.CreatedAt, &m.UpdatedAt, &m.PublishedAt, &m.PublishedBy,
		&m.DataSchemaID,
	)
	return &m, err
}

func (r *validationRepository) Get(ctx context.Context, id string) (*domain.ValidationSpec, error) {
	row := r.q.queryRow(ctx, `SELECT `+validationColumns+` FROM validation_specs WHERE id = ?`, id)
	m, err := scanValidation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindValidation, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validation spec: %w", err)
	}

	rows, err := r.q.query(ctx,
		`SELECT id, rule_type, severity, parameters FROM validation_rules WHERE spec_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation rules: %w", err)
	}
	var rules []domain.ValidationRule
	for rows.Next() {
		var rule domain.ValidationRule
		if err := rows.Scan(&rule.ID, &rule.RuleType, &rule.Severity, &rule.Parameters); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan validation rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = r.q.query(ctx,
		`SELECT id, field_path, child_spec_id FROM validation_references WHERE spec_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation references: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var refs []domain.ValidationReference
	for rows.Next() {
		var ref domain.ValidationReference
		if err := rows.Scan(&ref.ID, &ref.FieldPath, &ref.ChildValidationSpecID); err != nil {
			return nil, fmt.Errorf("failed to scan validation reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return domain.ReconstituteValidationSpec(m.toDomain(), m.DataSchemaID, rules, refs), nil
}

// Save upserts the spec row and rewrites its rules and references.
func (r *validationRepository) Save(ctx context.Context, v *domain.ValidationSpec) error {
	m := toVersionModel(v.Info())
	_, err := r.q.exec(ctx,
		`INSERT INTO validation_specs (`+validationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, description = excluded.description, updated_at = excluded.updated_at,
			published_at = excluded.published_at, published_by = excluded.published_by`,
		m.ID, m.TenantID, m.Version, m.Status, m.Description, m.CreatedAt, m.UpdatedAt, m.PublishedAt, m.PublishedBy,
		v.DataSchemaID(),
	)
	if err != nil {
		return fmt.Errorf("failed to save validation spec: %w", classify(err))
	}

	for _, stmt := range []string{
		`DELETE FROM validation_rules WHERE spec_id = ?`,
		`DELETE FROM validation_references WHERE spec_id = ?`,
	} {
		if _, err := r.q.exec(ctx, stmt, v.ID()); err != nil {
			return fmt.Errorf("failed to clear validation children: %w", classify(err))
		}
	}
	for pos, rule := range v.Rules() {
		if _, err := r.q.exec(ctx,
			`INSERT INTO validation_rules (id, spec_id, rule_type, severity, parameters, position) VALUES (?, ?, ?, ?, ?, ?)`,
			rule.ID, v.ID(), string(rule.RuleType), string(rule.Severity), rule.Parameters, pos,
		); err != nil {
			return fmt.Errorf("failed to save validation rule: %w", classify(err))
		}
	}
	for pos, ref := range v.References() {
		if _, err := r.q.exec(ctx,
			`INSERT INTO validation_references (id, spec_id, field_path, child_spec_id, position) VALUES (?, ?, ?, ?, ?)`,
			ref.ID, v.ID(), ref.FieldPath, ref.ChildValidationSpecID, pos,
		); err != nil {
			return fmt.Errorf("failed to save validation reference: %w", classify(err))
		}
	}
	return nil
}

func (r *validationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx, `DELETE FROM validation_specs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete validation spec: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: domain.KindValidation, ID: id}
	}
	return nil
}

func (r *validationRepository) MaxVersion(ctx context.Context, dataSchemaID string) (int, error) {
	var v int
	err := r.q.queryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM validation_specs WHERE data_schema_id = ?`, dataSchemaID,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read max validation version: %w", err)
	}
	return v, nil
}

func (r *validationRepository) ListVersions(ctx context.Context, dataSchemaID string) ([]*domain.ValidationSpec, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT id FROM validation_specs WHERE data_schema_id = ? ORDER BY version`, dataSchemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation versions: %w", err)
	}
	out := make([]*domain.ValidationSpec, 0, len(ids))
	for _, id := range ids {
		v, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *validationRepository) ReferencingSpecIDs(ctx context.Context, childID string) ([]string, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT DISTINCT spec_id FROM validation_references WHERE child_spec_id = ? ORDER BY spec_id`, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to find referencing validation specs: %w", err)
	}
	return ids, nil
}

func (r *validationRepository) IDsBySchema(ctx context.Context, schemaID string) ([]string, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT id FROM validation_specs WHERE data_schema_id = ? ORDER BY version`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list validation specs by schema: %w", err)
	}
	return ids, nil
}
