package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

const dataModelColumns = `id, tenant_id, model_key, name, description, created_at, updated_at`

// dataModelRepository implements domain.DataModelRepository.
type dataModelRepository struct {
	q runner
}

var _ domain.DataModelRepository = (*dataModelRepository)(nil)

func scanDataModel(scanner interface{ Scan(...any) error }) (*DataModelModel, error) {
	var m DataModelModel
	err := scanner.Scan(&m.ID, &m.TenantID, &m.Key, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *dataModelRepository) Get(ctx context.Context, id string) (*domain.DataModel, error) {
	row := r.q.queryRow(ctx, `SELECT `+dataModelColumns+` FROM data_models WHERE id = ?`, id)
	m, err := scanDataModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindDataModel, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data model: %w", err)
	}
	return m.toDomain(), nil
}

func (r *dataModelRepository) FindByKey(ctx context.Context, tenantID, key string) (*domain.DataModel, error) {
	row := r.q.queryRow(ctx,
		`SELECT `+dataModelColumns+` FROM data_models WHERE tenant_id = ? AND model_key = ?`, tenantID, key)
	m, err := scanDataModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: domain.KindDataModel, ID: tenantID + "/" + key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find data model: %w", err)
	}
	return m.toDomain(), nil
}

func (r *dataModelRepository) Save(ctx context.Context, dm *domain.DataModel) error {
	m := toDataModelModel(dm)
	_, err := r.q.exec(ctx,
		`INSERT INTO data_models (`+dataModelColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, description = excluded.description, updated_at = excluded.updated_at`,
		m.ID, m.TenantID, m.Key, m.Name, m.Description, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save data model: %w", classify(err))
	}
	return nil
}

func (r *dataModelRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx, `DELETE FROM data_models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data model: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: domain.KindDataModel, ID: id}
	}
	return nil
}
