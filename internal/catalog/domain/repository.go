package domain

import "context"

// DataModelRepository persists DataModel entities.
type DataModelRepository interface {
	// Get returns NotFoundError if no data model has the id.
	Get(ctx context.Context, id string) (*DataModel, error)

	// FindByKey returns NotFoundError if the tenant has no data model with the key.
	FindByKey(ctx context.Context, tenantID, key string) (*DataModel, error)

	// Save inserts or updates the data model. A second model with the same
	// (tenant, key) fails with ErrDuplicate.
	Save(ctx context.Context, m *DataModel) error

	Delete(ctx context.Context, id string) error
}

// SchemaRepository persists DataSchema aggregates with their fields, keys and tags.
type SchemaRepository interface {
	// Get loads the full aggregate. Returns NotFoundError if missing.
	Get(ctx context.Context, id string) (*DataSchema, error)

	// Save upserts the schema row and replaces its children. Storage
	// uniqueness violations surface as ErrDuplicate.
	Save(ctx context.Context, s *DataSchema) error

	// Delete removes the schema; children cascade.
	Delete(ctx context.Context, id string) error

	// MaxVersion returns the highest version in the group, 0 if empty.
	MaxVersion(ctx context.Context, g SchemaGroup) (int, error)

	// ListVersions returns every member of the group ordered by version.
	ListVersions(ctx context.Context, g SchemaGroup) ([]*DataSchema, error)

	// ListByDataModel returns the ids of schemas attached to a data model.
	ListByDataModel(ctx context.Context, dataModelID string) ([]string, error)

	// ReferencingSchemaIDs returns ids of schemas with a field whose element
	// schema is elementSchemaID.
	ReferencingSchemaIDs(ctx context.Context, elementSchemaID string) ([]string, error)

	// SchemaIDForKeyDefinition returns the id of the schema owning keyID,
	// or NotFoundError.
	SchemaIDForKeyDefinition(ctx context.Context, keyID string) (string, error)
}

// TransformationRepository persists TransformationSpec aggregates.
type TransformationRepository interface {
	Get(ctx context.Context, id string) (*TransformationSpec, error)
	Save(ctx context.Context, t *TransformationSpec) error
	Delete(ctx context.Context, id string) error
	MaxVersion(ctx context.Context, g TransformationGroup) (int, error)
	ListVersions(ctx context.Context, g TransformationGroup) ([]*TransformationSpec, error)

	// ReferencingSpecIDs returns ids of specs holding a reference to childID.
	ReferencingSpecIDs(ctx context.Context, childID string) ([]string, error)

	// IDsBySchema returns ids of specs whose source or target is schemaID.
	IDsBySchema(ctx context.Context, schemaID string) ([]string, error)
}

// ValidationRepository persists ValidationSpec aggregates.
type ValidationRepository interface {
	Get(ctx context.Context, id string) (*ValidationSpec, error)
	Save(ctx context.Context, v *ValidationSpec) error
	Delete(ctx context.Context, id string) error
	MaxVersion(ctx context.Context, dataSchemaID string) (int, error)
	ListVersions(ctx context.Context, dataSchemaID string) ([]*ValidationSpec, error)

	// ReferencingSpecIDs returns ids of specs holding a reference to childID.
	ReferencingSpecIDs(ctx context.Context, childID string) ([]string, error)

	// IDsBySchema returns ids of specs over schemaID.
	IDsBySchema(ctx context.Context, schemaID string) ([]string, error)
}

// Store groups the repositories bound to one connection or transaction.
type Store interface {
	DataModels() DataModelRepository
	Schemas() SchemaRepository
	Transformations() TransformationRepository
	Validations() ValidationRepository
}

// UnitOfWork runs fn inside a single transaction. fn's Store is bound to
// that transaction; returning an error rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
