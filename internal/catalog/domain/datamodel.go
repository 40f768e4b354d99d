package domain

import (
	"strings"
	"time"
)

// DataModel groups related schemas for a tenant under a stable key.
// It is not versioned.
type DataModel struct {
	id          string
	tenantID    string
	key         string
	name        string
	description string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewDataModel creates a data model with a generated id.
func NewDataModel(tenantID, key, name, description string) (*DataModel, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, InvalidArgument("tenant id is required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, InvalidArgument("data model key is required")
	}
	if strings.TrimSpace(name) == "" {
		name = key
	}
	now := time.Now()
	return &DataModel{
		id:          NewID(),
		tenantID:    tenantID,
		key:         key,
		name:        name,
		description: description,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstituteDataModel rebuilds a data model from persisted state.
func ReconstituteDataModel(id, tenantID, key, name, description string, createdAt, updatedAt time.Time) *DataModel {
	return &DataModel{
		id:          id,
		tenantID:    tenantID,
		key:         key,
		name:        name,
		description: description,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (m *DataModel) ID() string           { return m.id }
func (m *DataModel) TenantID() string     { return m.tenantID }
func (m *DataModel) Key() string          { return m.key }
func (m *DataModel) Name() string         { return m.name }
func (m *DataModel) Description() string  { return m.description }
func (m *DataModel) CreatedAt() time.Time { return m.createdAt }
func (m *DataModel) UpdatedAt() time.Time { return m.updatedAt }

// Update applies the supplied attributes; nil leaves a value unchanged.
func (m *DataModel) Update(name, description *string) error {
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return InvalidArgument("data model name must not be empty")
		}
		m.name = *name
	}
	if description != nil {
		m.description = *description
	}
	m.updatedAt = time.Now()
	return nil
}
