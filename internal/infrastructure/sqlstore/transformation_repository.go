package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

const transformationColumns = `id, tenant_id, version, status, description, created_at, updated_at, published_at, published_by,
	source_schema_id, target_schema_id, mode, cardinality`

// transformationRepository implements domain.TransformationRepository.
type transformationRepository struct {
	q runner
}

var _ domain.TransformationRepository = (*transformationRepository)(nil)

func scanTransformation(scanner interface{ Scan(...any) error }) (*TransformationModel, error) {
	var m TransformationModel
	err := scanner.Scan(
		&m.ID, &m.TenantID, &m.Version, &m.Status, &m.Description,
		&m.CreatedAt, &m.UpdatedAt, &m.PublishedAt, &m.PublishedBy,
		&m.SourceSchemaID, &m.TargetSchemaID, &m.Mode, &m.Cardinality,
	)
	return &m, err
}

func (r *transformationRepository) Get(ctx context.Context, id string) (*domain.TransformationSpec, error) {
	row := r.q.queryRow(ctx, `SELECT `+transformationColumns+` FROM transformation_specs WHERE id = ?`, id)
	m, err := scanTransformation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindTransformation, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transformation spec: %w", err)
	}

	var body domain.TransformBody
	switch domain.TransformMode(m.Mode) {
	case domain.ModeSimple:
		rules, err := r.loadRules(ctx, id)
		if err != nil {
			return nil, err
		}
		body = &domain.SimpleBody{Rules: rules}
	case domain.ModeAdvanced:
		adv, err := r.loadGraph(ctx, id)
		if err != nil {
			return nil, err
		}
		body = adv
	default:
		return nil, fmt.Errorf("transformation spec %s has unknown mode %q", id, m.Mode)
	}

	refs, err := r.loadReferences(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteTransformationSpec(m.toDomain(), m.SourceSchemaID, m.TargetSchemaID,
		domain.Cardinality(m.Cardinality), body, refs), nil
}

func (r *transformationRepository) loadRules(ctx context.Context, specID string) ([]domain.SimpleTransformRule, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, source_path, target_path, converter_id, required, ord
		 FROM simple_rules WHERE spec_id = ? ORDER BY position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to load simple rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []domain.SimpleTransformRule
	for rows.Next() {
		var rule domain.SimpleTransformRule
		if err := rows.Scan(&rule.ID, &rule.SourcePath, &rule.TargetPath, &rule.ConverterID, &rule.Required, &rule.Order); err != nil {
			return nil, fmt.Errorf("failed to scan simple rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *transformationRepository) loadGraph(ctx context.Context, specID string) (*domain.AdvancedBody, error) {
	body := &domain.AdvancedBody{}

	rows, err := r.q.query(ctx,
		`SELECT id, node_key, node_type, output_type, config FROM graph_nodes WHERE spec_id = ? ORDER BY position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph nodes: %w", err)
	}
	for rows.Next() {
		var n domain.TransformGraphNode
		if err := rows.Scan(&n.ID, &n.Key, &n.NodeType, &n.OutputType, &n.Config); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan graph node: %w", err)
		}
		body.Nodes = append(body.Nodes, n)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = r.q.query(ctx,
		`SELECT id, from_node_id, to_node_id, input_name, ord FROM graph_edges WHERE spec_id = ? ORDER BY position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph edges: %w", err)
	}
	for rows.Next() {
		var e domain.TransformGraphEdge
		if err := rows.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.InputName, &e.Order); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan graph edge: %w", err)
		}
		body.Edges = append(body.Edges, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	rows, err = r.q.query(ctx,
		`SELECT id, target_path, from_node_id FROM output_bindings WHERE spec_id = ? ORDER BY position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to load output bindings: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var b domain.TransformOutputBinding
		if err := rows.Scan(&b.ID, &b.TargetPath, &b.FromNodeID); err != nil {
			return nil, fmt.Errorf("failed to scan output binding: %w", err)
		}
		body.Bindings = append(body.Bindings, b)
	}
	return body, rows.Err()
}

func (r *transformationRepository) loadReferences(ctx context.Context, specID string) ([]domain.TransformReference, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, source_field_path, target_field_path, child_spec_id
		 FROM transform_references WHERE spec_id = ? ORDER BY position`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transform references: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []domain.TransformReference
	for rows.Next() {
		var ref domain.TransformReference
		if err := rows.Scan(&ref.ID, &ref.SourceFieldPath, &ref.TargetFieldPath, &ref.ChildTransformationSpecID); err != nil {
			return nil, fmt.Errorf("failed to scan transform reference: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Save upserts the spec row and rewrites its body and references.
func (r *transformationRepository) Save(ctx context.Context, t *domain.TransformationSpec) error {
	v := toVersionModel(t.Info())
	_, err := r.q.exec(ctx,
		`INSERT INTO transformation_specs (`+transformationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, description = excluded.description, updated_at = excluded.updated_at,
			published_at = excluded.published_at, published_by = excluded.published_by,
			cardinality = excluded.cardinality`,
		v.ID, v.TenantID, v.Version, v.Status, v.Description, v.CreatedAt, v.UpdatedAt, v.PublishedAt, v.PublishedBy,
		t.SourceSchemaID(), t.TargetSchemaID(), string(t.Mode()), string(t.Cardinality()),
	)
	if err != nil {
		return fmt.Errorf("failed to save transformation spec: %w", classify(err))
	}

	for _, stmt := range []string{
		`DELETE FROM simple_rules WHERE spec_id = ?`,
		`DELETE FROM graph_nodes WHERE spec_id = ?`,
		`DELETE FROM transform_references WHERE spec_id = ?`,
	} {
		if _, err := r.q.exec(ctx, stmt, t.ID()); err != nil {
			return fmt.Errorf("failed to clear transformation children: %w", classify(err))
		}
	}

	switch body := t.Body().(type) {
	case *domain.SimpleBody:
		for pos, rule := range body.Rules {
			if _, err := r.q.exec(ctx,
				`INSERT INTO simple_rules (id, spec_id, source_path, target_path, converter_id, required, ord, position)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rule.ID, t.ID(), rule.SourcePath, rule.TargetPath, rule.ConverterID, rule.Required, rule.Order, pos,
			); err != nil {
				return fmt.Errorf("failed to save simple rule: %w", classify(err))
			}
		}
	case *domain.AdvancedBody:
		if err := r.saveGraph(ctx, t.ID(), body); err != nil {
			return err
		}
	}

	for pos, ref := range t.References() {
		if _, err := r.q.exec(ctx,
			`INSERT INTO transform_references (id, spec_id, source_field_path, target_field_path, child_spec_id, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ref.ID, t.ID(), ref.SourceFieldPath, ref.TargetFieldPath, ref.ChildTransformationSpecID, pos,
		); err != nil {
			return fmt.Errorf("failed to save transform reference: %w", classify(err))
		}
	}
	return nil
}

func (r *transformationRepository) saveGraph(ctx context.Context, specID string, body *domain.AdvancedBody) error {
	for pos, n := range body.Nodes {
		if _, err := r.q.exec(ctx,
			`INSERT INTO graph_nodes (id, spec_id, node_key, node_type, output_type, config, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.ID, specID, n.Key, string(n.NodeType), n.OutputType, n.Config, pos,
		); err != nil {
			return fmt.Errorf("failed to save graph node %q: %w", n.Key, classify(err))
		}
	}
	for pos, e := range body.Edges {
		if _, err := r.q.exec(ctx,
			`INSERT INTO graph_edges (id, spec_id, from_node_id, to_node_id, input_name, ord, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, specID, e.FromNodeID, e.ToNodeID, e.InputName, e.Order, pos,
		); err != nil {
			return fmt.Errorf("failed to save graph edge: %w", classify(err))
		}
	}
	for pos, b := range body.Bindings {
		if _, err := r.q.exec(ctx,
			`INSERT INTO output_bindings (id, spec_id, target_path, from_node_id, position) VALUES (?, ?, ?, ?, ?)`,
			b.ID, specID, b.TargetPath, b.FromNodeID, pos,
		); err != nil {
			return fmt.Errorf("failed to save output binding %q: %w", b.TargetPath, classify(err))
		}
	}
	return nil
}

func (r *transformationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx, `DELETE FROM transformation_specs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transformation spec: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: domain.KindTransformation, ID: id}
	}
	return nil
}

func (r *transformationRepository) MaxVersion(ctx context.Context, g domain.TransformationGroup) (int, error) {
	var v int
	err := r.q.queryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM transformation_specs WHERE source_schema_id = ? AND target_schema_id = ?`,
		g.SourceSchemaID, g.TargetSchemaID,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read max transformation version: %w", err)
	}
	return v, nil
}

func (r *transformationRepository) ListVersions(ctx context.Context, g domain.TransformationGroup) ([]*domain.TransformationSpec, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT id FROM transformation_specs WHERE source_schema_id = ? AND target_schema_id = ? ORDER BY version`,
		g.SourceSchemaID, g.TargetSchemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformation versions: %w", err)
	}
	out := make([]*domain.TransformationSpec, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *transformationRepository) ReferencingSpecIDs(ctx context.Context, childID string) ([]string, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT DISTINCT spec_id FROM transform_references WHERE child_spec_id = ? ORDER BY spec_id`, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to find referencing transformation specs: %w", err)
	}
	return ids, nil
}

func (r *transformationRepository) IDsBySchema(ctx context.Context, schemaID string) ([]string, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT id FROM transformation_specs WHERE source_schema_id = ? OR target_schema_id = ? ORDER BY id`,
		schemaID, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformation specs by schema: %w", err)
	}
	return ids, nil
}
