package sqlstore

import (
	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// versionModel holds the header columns shared by the versioned tables.
// Timestamps are Unix milliseconds.
type versionModel struct {
	ID          string
	TenantID    string
	Version     int
	Status      string
	Description string
	CreatedAt   int64
	UpdatedAt   int64
	PublishedAt *int64  // nullable
	PublishedBy *string // nullable
}

func toVersionModel(info domain.VersionInfo) versionModel {
	m := versionModel{
		ID:          info.ID,
		TenantID:    info.TenantID,
		Version:     info.Version,
		Status:      string(info.Status),
		Description: info.Description,
		CreatedAt:   toMillis(info.CreatedAt),
		UpdatedAt:   toMillis(info.UpdatedAt),
		PublishedBy: nullableString(info.PublishedBy),
	}
	if info.PublishedAt != nil {
		ts := toMillis(*info.PublishedAt)
		m.PublishedAt = &ts
	}
	return m
}

func (m versionModel) toDomain() domain.VersionInfo {
	info := domain.VersionInfo{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Version:     m.Version,
		Status:      domain.Status(m.Status),
		Description: m.Description,
		CreatedAt:   fromMillis(m.CreatedAt),
		UpdatedAt:   fromMillis(m.UpdatedAt),
		PublishedBy: derefString(m.PublishedBy),
	}
	if m.PublishedAt != nil {
		t := fromMillis(*m.PublishedAt)
		info.PublishedAt = &t
	}
	return info
}

// DataModelModel is a data_models row.
type DataModelModel struct {
	ID          string
	TenantID    string
	Key         string
	Name        string
	Description string
	CreatedAt   int64
	UpdatedAt   int64
}

func toDataModelModel(m *domain.DataModel) DataModelModel {
	return DataModelModel{
		ID:          m.ID(),
		TenantID:    m.TenantID(),
		Key:         m.Key(),
		Name:        m.Name(),
		Description: m.Description(),
		CreatedAt:   toMillis(m.CreatedAt()),
		UpdatedAt:   toMillis(m.UpdatedAt()),
	}
}

func (m DataModelModel) toDomain() *domain.DataModel {
	return domain.ReconstituteDataModel(m.ID, m.TenantID, m.Key, m.Name, m.Description,
		fromMillis(m.CreatedAt), fromMillis(m.UpdatedAt))
}

// SchemaModel is a data_schemas row.
type SchemaModel struct {
	versionModel
	DataModelID *string // nullable
	Role        string
	Key         string
}

// FieldModel is a field_definitions row.
type FieldModel struct {
	ID              string
	Path            string
	FieldType       string
	ScalarType      *string // nullable
	ElementSchemaID *string // nullable
	Required        bool
	Description     string
	Position        int
}

func toFieldModel(f domain.FieldDefinition) FieldModel {
	ft, st, el := domain.ShapeParts(f.Shape)
	return FieldModel{
		ID:              f.ID,
		Path:            f.Path,
		FieldType:       string(ft),
		ScalarType:      nullableString(string(st)),
		ElementSchemaID: nullableString(el),
		Required:        f.Required,
		Description:     f.Description,
		Position:        f.Position,
	}
}

func (m FieldModel) toDomain() (domain.FieldDefinition, error) {
	shape, err := domain.NewFieldShape(domain.FieldType(m.FieldType),
		domain.ScalarType(derefString(m.ScalarType)), derefString(m.ElementSchemaID))
	if err != nil {
		return domain.FieldDefinition{}, err
	}
	return domain.FieldDefinition{
		ID:          m.ID,
		Path:        m.Path,
		Shape:       shape,
		Required:    m.Required,
		Description: m.Description,
		Position:    m.Position,
	}, nil
}

// TransformationModel is a transformation_specs row.
type TransformationModel struct {
	versionModel
	SourceSchemaID string
	TargetSchemaID string
	Mode           string
	Cardinality    string
}

// ValidationModel is a validation_specs row.
type ValidationModel struct {
	versionModel
	DataSchemaID string
}
