package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

const schemaColumns = `id, tenant_id, version, status, description, created_at, updated_at, published_at, published_by,
	data_model_id, role, schema_key`

// schemaRepository implements domain.SchemaRepository.
type schemaRepository struct {
	q runner
}

var _ domain.SchemaRepository = (*schemaRepository)(nil)

func scanSchema(scanner interface{ Scan(...any) error }) (*SchemaModel, error) {
	var m SchemaModel
	err := scanner.Scan(
		&m.ID, &m.TenantID, &m.Version, &m.Status, &m.Description,
		&m.CreatedAt, &m.UpdatedAt, &m.PublishedAt, &m.PublishedBy,
		&m.DataModelID, &m.Role, &m.Key,
	)
	return &m, err
}

// Get loads the schema row and all of its children.
func (r *schemaRepository) Get(ctx context.Context, id string) (*domain.DataSchema, error) {
	row := r.q.queryRow(ctx, `SELECT `+schemaColumns+` FROM data_schemas WHERE id = ?`, id)
	m, err := scanSchema(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindSchema, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	fields, err := r.loadFields(ctx, id)
	if err != nil {
		return nil, err
	}
	keys, err := r.loadKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := r.loadTags(ctx, id)
	if err != nil {
		return nil, err
	}

	return domain.ReconstituteDataSchema(m.toDomain(), derefString(m.DataModelID),
		domain.SchemaRole(m.Role), m.Key, fields, keys, tags), nil
}

func (r *schemaRepository) loadFields(ctx context.Context, schemaID string) ([]domain.FieldDefinition, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, path, field_type, scalar_type, element_schema_id, required, description, position
		 FROM field_definitions WHERE schema_id = ? ORDER BY position`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fields []domain.FieldDefinition
	for rows.Next() {
		var m FieldModel
		if err := rows.Scan(&m.ID, &m.Path, &m.FieldType, &m.ScalarType, &m.ElementSchemaID,
			&m.Required, &m.Description, &m.Position); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		f, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("corrupt field %s: %w", m.ID, err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *schemaRepository) loadKeys(ctx context.Context, schemaID string) ([]domain.KeyDefinition, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, name, is_primary FROM key_definitions WHERE schema_id = ? ORDER BY position`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}
	var keys []domain.KeyDefinition
	for rows.Next() {
		var k domain.KeyDefinition
		if err := rows.Scan(&k.ID, &k.Name, &k.IsPrimary); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err = r.q.query(ctx,
		`SELECT kf.key_id, kf.id, kf.field_path, kf.ord, kf.normalization
		 FROM key_fields kf JOIN key_definitions kd ON kd.id = kf.key_id
		 WHERE kd.schema_id = ? ORDER BY kf.ord`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load key fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k.ID] = i
	}
	for rows.Next() {
		var keyID string
		var kf domain.KeyField
		if err := rows.Scan(&keyID, &kf.ID, &kf.FieldPath, &kf.Order, &kf.Normalization); err != nil {
			return nil, fmt.Errorf("failed to scan key field: %w", err)
		}
		if i, ok := index[keyID]; ok {
			keys[i].Fields = append(keys[i].Fields, kf)
		}
	}
	return keys, rows.Err()
}

func (r *schemaRepository) loadTags(ctx context.Context, schemaID string) ([]domain.SchemaTag, error) {
	rows, err := r.q.query(ctx, `SELECT id, tag FROM schema_tags WHERE schema_id = ? ORDER BY position`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []domain.SchemaTag
	for rows.Next() {
		var t domain.SchemaTag
		if err := rows.Scan(&t.ID, &t.Tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Save upserts the schema row and rewrites its children.
func (r *schemaRepository) Save(ctx context.Context, s *domain.DataSchema) error {
	v := toVersionModel(s.Info())
	_, err := r.q.exec(ctx,
		`INSERT INTO data_schemas (`+schemaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, description = excluded.description, updated_at = excluded.updated_at,
			published_at = excluded.published_at, published_by = excluded.published_by,
			data_model_id = excluded.data_model_id`,
		v.ID, v.TenantID, v.Version, v.Status, v.Description, v.CreatedAt, v.UpdatedAt, v.PublishedAt, v.PublishedBy,
		nullableString(s.DataModelID()), string(s.Role()), s.Key(),
	)
	if err != nil {
		return fmt.Errorf("failed to save schema: %w", classify(err))
	}

	for _, stmt := range []string{
		`DELETE FROM key_definitions WHERE schema_id = ?`,
		`DELETE FROM schema_tags WHERE schema_id = ?`,
		`DELETE FROM field_definitions WHERE schema_id = ?`,
	} {
		if _, err := r.q.exec(ctx, stmt, s.ID()); err != nil {
			return fmt.Errorf("failed to clear schema children: %w", classify(err))
		}
	}

	for _, f := range s.Fields() {
		m := toFieldModel(f)
		if _, err := r.q.exec(ctx,
			`INSERT INTO field_definitions (id, schema_id, path, field_type, scalar_type, element_schema_id, required, description, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, s.ID(), m.Path, m.FieldType, m.ScalarType, m.ElementSchemaID, m.Required, m.Description, m.Position,
		); err != nil {
			return fmt.Errorf("failed to save field %q: %w", f.Path, classify(err))
		}
	}
	for pos, k := range s.Keys() {
		if _, err := r.q.exec(ctx,
			`INSERT INTO key_definitions (id, schema_id, name, is_primary, position) VALUES (?, ?, ?, ?, ?)`,
			k.ID, s.ID(), k.Name, k.IsPrimary, pos,
		); err != nil {
			return fmt.Errorf("failed to save key %q: %w", k.Name, classify(err))
		}
		for _, kf := range k.Fields {
			if _, err := r.q.exec(ctx,
				`INSERT INTO key_fields (id, key_id, field_path, ord, normalization) VALUES (?, ?, ?, ?, ?)`,
				kf.ID, k.ID, kf.FieldPath, kf.Order, kf.Normalization,
			); err != nil {
				return fmt.Errorf("failed to save key field %q: %w", kf.FieldPath, classify(err))
			}
		}
	}
	for pos, t := range s.Tags() {
		if _, err := r.q.exec(ctx,
			`INSERT INTO schema_tags (id, schema_id, tag, position) VALUES (?, ?, ?, ?)`,
			t.ID, s.ID(), t.Tag, pos,
		); err != nil {
			return fmt.Errorf("failed to save tag %q: %w", t.Tag, classify(err))
		}
	}
	return nil
}

func (r *schemaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx, `DELETE FROM data_schemas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schema: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: domain.KindSchema, ID: id}
	}
	return nil
}

func (r *schemaRepository) MaxVersion(ctx context.Context, g domain.SchemaGroup) (int, error) {
	var v int
	err := r.q.queryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM data_schemas WHERE tenant_id = ? AND schema_key = ? AND role = ?`,
		g.TenantID, g.Key, string(g.Role),
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read max schema version: %w", err)
	}
	return v, nil
}

func (r *schemaRepository) ListVersions(ctx context.Context, g domain.SchemaGroup) ([]*domain.DataSchema, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT id FROM data_schemas WHERE tenant_id = ? AND schema_key = ? AND role = ? ORDER BY version`,
		g.TenantID, g.Key, string(g.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to list schema versions: %w", err)
	}
	out := make([]*domain.DataSchema, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *schemaRepository) ListByDataModel(ctx context.Context, dataModelID string) ([]string, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT id FROM data_schemas WHERE data_model_id = ? ORDER BY schema_key, role, version`, dataModelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas by data model: %w", err)
	}
	return ids, nil
}

func (r *schemaRepository) ReferencingSchemaIDs(ctx context.Context, elementSchemaID string) ([]string, error) {
	ids, err := r.q.queryStrings(ctx,
		`SELECT DISTINCT schema_id FROM field_definitions WHERE element_schema_id = ? ORDER BY schema_id`, elementSchemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to find referencing schemas: %w", err)
	}
	return ids, nil
}

func (r *schemaRepository) SchemaIDForKeyDefinition(ctx context.Context, keyID string) (string, error) {
	var schemaID string
	err := r.q.queryRow(ctx, `SELECT schema_id FROM key_definitions WHERE id = ?`, keyID).Scan(&schemaID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &domain.NotFoundError{Kind: domain.KindKeyDefinition, ID: keyID}
	}
	if err != nil {
		return "", fmt.Errorf("failed to find schema for key: %w", err)
	}
	return schemaID, nil
}
