package command

import (
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// ===========================================================================
// Data Model Commands
// ===========================================================================

// CreateDataModelCommand registers a tenant-scoped data model.
type CreateDataModelCommand struct {
	*BaseCommand
	TenantID    string
	Key         string
	Name        string
	Description string
}

// NewCreateDataModelCommand creates a new CreateDataModelCommand.
func NewCreateDataModelCommand(source CommandSource, tenantID, key, name, description string) *CreateDataModelCommand {
	return &CreateDataModelCommand{
		BaseCommand: newBase(CmdCreateDataModel, source),
		TenantID:    tenantID,
		Key:         key,
		Name:        name,
		Description: description,
	}
}

// Validate checks that tenant, key and name are provided.
func (c *CreateDataModelCommand) Validate() error {
	return required("tenant_id", c.TenantID, "key", c.Key, "name", c.Name)
}

// UpdateDataModelCommand renames or re-describes a data model.
type UpdateDataModelCommand struct {
	*BaseCommand
	DataModelID string
	Name        *string
	Description *string
}

// NewUpdateDataModelCommand creates a new UpdateDataModelCommand.
func NewUpdateDataModelCommand(source CommandSource, dataModelID string, name, description *string) *UpdateDataModelCommand {
	return &UpdateDataModelCommand{
		BaseCommand: newBase(CmdUpdateDataModel, source),
		DataModelID: dataModelID,
		Name:        name,
		Description: description,
	}
}

// Validate checks that the data model id is provided.
func (c *UpdateDataModelCommand) Validate() error {
	return required("data_model_id", c.DataModelID)
}

// DeleteDataModelCommand removes a data model no schema is attached to.
type DeleteDataModelCommand struct {
	*BaseCommand
	DataModelID string
}

// NewDeleteDataModelCommand creates a new DeleteDataModelCommand.
func NewDeleteDataModelCommand(source CommandSource, dataModelID string) *DeleteDataModelCommand {
	return &DeleteDataModelCommand{
		BaseCommand: newBase(CmdDeleteDataModel, source),
		DataModelID: dataModelID,
	}
}

// Validate checks that the data model id is provided.
func (c *DeleteDataModelCommand) Validate() error {
	return required("data_model_id", c.DataModelID)
}

// ===========================================================================
// Schema Commands
// ===========================================================================

// CreateSchemaCommand creates the next Draft version in (tenant, key, role).
type CreateSchemaCommand struct {
	*BaseCommand
	TenantID    string
	DataModelID string // Optional
	Role        domain.SchemaRole
	Key         string
	Description string
}

// NewCreateSchemaCommand creates a new CreateSchemaCommand.
func NewCreateSchemaCommand(source CommandSource, tenantID string, role domain.SchemaRole, key string) *CreateSchemaCommand {
	return &CreateSchemaCommand{
		BaseCommand: newBase(CmdCreateSchema, source),
		TenantID:    tenantID,
		Role:        role,
		Key:         key,
	}
}

// Validate checks identity fields and the role.
func (c *CreateSchemaCommand) Validate() error {
	if err := required("tenant_id", c.TenantID, "key", c.Key); err != nil {
		return err
	}
	if !c.Role.IsValid() {
		return domain.InvalidArgument("role must be Incoming, Master or Outgoing, got: %s", c.Role)
	}
	return nil
}

// String returns a readable representation of the command.
func (c *CreateSchemaCommand) String() string {
	return fmt.Sprintf("CreateSchema{tenant=%s, key=%s, role=%s}", c.TenantID, c.Key, c.Role)
}

// UpdateSchemaCommand changes a Draft schema's description or data model.
// An empty DataModelID detaches the schema.
type UpdateSchemaCommand struct {
	*BaseCommand
	SchemaID    string
	Description *string
	DataModelID *string
}

// NewUpdateSchemaCommand creates a new UpdateSchemaCommand.
func NewUpdateSchemaCommand(source CommandSource, schemaID string) *UpdateSchemaCommand {
	return &UpdateSchemaCommand{
		BaseCommand: newBase(CmdUpdateSchema, source),
		SchemaID:    schemaID,
	}
}

// Validate checks that the schema id is provided.
func (c *UpdateSchemaCommand) Validate() error {
	return required("schema_id", c.SchemaID)
}

// AddFieldCommand appends a field to a Draft schema.
type AddFieldCommand struct {
	*BaseCommand
	SchemaID        string
	Path            string
	FieldType       domain.FieldType
	ScalarType      domain.ScalarType // Scalar fields and scalar arrays
	ElementSchemaID string            // Object fields and object arrays
	Required        bool
	Description     string
}

// NewAddFieldCommand creates a new AddFieldCommand.
func NewAddFieldCommand(source CommandSource, schemaID, path string, fieldType domain.FieldType) *AddFieldCommand {
	return &AddFieldCommand{
		BaseCommand: newBase(CmdAddField, source),
		SchemaID:    schemaID,
		Path:        path,
		FieldType:   fieldType,
	}
}

// Validate checks ids, the path syntax and the shape.
func (c *AddFieldCommand) Validate() error {
	if err := required("schema_id", c.SchemaID, "path", c.Path); err != nil {
		return err
	}
	if err := domain.ValidatePath(c.Path); err != nil {
		return err
	}
	_, err := c.Shape()
	return err
}

// Shape builds the field shape from the command's type columns.
func (c *AddFieldCommand) Shape() (domain.FieldShape, error) {
	return domain.NewFieldShape(c.FieldType, c.ScalarType, c.ElementSchemaID)
}

// String returns a readable representation of the command.
func (c *AddFieldCommand) String() string {
	return fmt.Sprintf("AddField{schema=%s, path=%s, type=%s}", c.SchemaID, c.Path, c.FieldType)
}

// UpdateFieldCommand partially updates a field. The shape is replaced only
// when FieldType is set; ScalarType and ElementSchemaID then describe it.
type UpdateFieldCommand struct {
	*BaseCommand
	SchemaID        string
	FieldID         string
	Path            *string
	FieldType       *domain.FieldType
	ScalarType      domain.ScalarType
	ElementSchemaID string
	Required        *bool
	Description     *string
}

// NewUpdateFieldCommand creates a new UpdateFieldCommand.
func NewUpdateFieldCommand(source CommandSource, schemaID, fieldID string) *UpdateFieldCommand {
	return &UpdateFieldCommand{
		BaseCommand: newBase(CmdUpdateField, source),
		SchemaID:    schemaID,
		FieldID:     fieldID,
	}
}

// Validate checks ids and, when present, the new path and shape.
func (c *UpdateFieldCommand) Validate() error {
	if err := required("schema_id", c.SchemaID, "field_id", c.FieldID); err != nil {
		return err
	}
	if c.Path != nil {
		if err := domain.ValidatePath(*c.Path); err != nil {
			return err
		}
	}
	_, err := c.Shape()
	return err
}

// Shape returns the replacement shape, or nil when the shape is unchanged.
func (c *UpdateFieldCommand) Shape() (domain.FieldShape, error) {
	if c.FieldType == nil {
		return nil, nil
	}
	return domain.NewFieldShape(*c.FieldType, c.ScalarType, c.ElementSchemaID)
}

// RemoveFieldCommand deletes a field no key depends on.
type RemoveFieldCommand struct {
	*BaseCommand
	SchemaID string
	FieldID  string
}

// NewRemoveFieldCommand creates a new RemoveFieldCommand.
func NewRemoveFieldCommand(source CommandSource, schemaID, fieldID string) *RemoveFieldCommand {
	return &RemoveFieldCommand{
		BaseCommand: newBase(CmdRemoveField, source),
		SchemaID:    schemaID,
		FieldID:     fieldID,
	}
}

// Validate checks that both ids are provided.
func (c *RemoveFieldCommand) Validate() error {
	return required("schema_id", c.SchemaID, "field_id", c.FieldID)
}

// SchemaTagCommand adds or removes a tag; Type tells which.
type SchemaTagCommand struct {
	*BaseCommand
	SchemaID string
	Tag      string
}

// NewAddSchemaTagCommand creates a tag-adding command.
func NewAddSchemaTagCommand(source CommandSource, schemaID, tag string) *SchemaTagCommand {
	return &SchemaTagCommand{BaseCommand: newBase(CmdAddSchemaTag, source), SchemaID: schemaID, Tag: tag}
}

// NewRemoveSchemaTagCommand creates a tag-removing command.
func NewRemoveSchemaTagCommand(source CommandSource, schemaID, tag string) *SchemaTagCommand {
	return &SchemaTagCommand{BaseCommand: newBase(CmdRemoveSchemaTag, source), SchemaID: schemaID, Tag: tag}
}

// Validate checks that the schema id and tag are provided.
func (c *SchemaTagCommand) Validate() error {
	return required("schema_id", c.SchemaID, "tag", c.Tag)
}

// ===========================================================================
// Key Commands
// ===========================================================================

// AddKeyDefinitionCommand declares a key on a Draft Master schema.
type AddKeyDefinitionCommand struct {
	*BaseCommand
	SchemaID  string
	Name      string
	IsPrimary bool
}

// NewAddKeyDefinitionCommand creates a new AddKeyDefinitionCommand.
func NewAddKeyDefinitionCommand(source CommandSource, schemaID, name string, isPrimary bool) *AddKeyDefinitionCommand {
	return &AddKeyDefinitionCommand{
		BaseCommand: newBase(CmdAddKeyDefinition, source),
		SchemaID:    schemaID,
		Name:        name,
		IsPrimary:   isPrimary,
	}
}

// Validate checks that the schema id and name are provided.
func (c *AddKeyDefinitionCommand) Validate() error {
	return required("schema_id", c.SchemaID, "name", c.Name)
}

// RemoveKeyDefinitionCommand deletes a key and its fields.
type RemoveKeyDefinitionCommand struct {
	*BaseCommand
	SchemaID string
	KeyID    string
}

// NewRemoveKeyDefinitionCommand creates a new RemoveKeyDefinitionCommand.
func NewRemoveKeyDefinitionCommand(source CommandSource, schemaID, keyID string) *RemoveKeyDefinitionCommand {
	return &RemoveKeyDefinitionCommand{
		BaseCommand: newBase(CmdRemoveKeyDefinition, source),
		SchemaID:    schemaID,
		KeyID:       keyID,
	}
}

// Validate checks that both ids are provided.
func (c *RemoveKeyDefinitionCommand) Validate() error {
	return required("schema_id", c.SchemaID, "key_id", c.KeyID)
}

// AddKeyFieldCommand appends a scalar field path to a key.
type AddKeyFieldCommand struct {
	*BaseCommand
	KeyID         string
	FieldPath     string
	Order         int
	Normalization string
}

// NewAddKeyFieldCommand creates a new AddKeyFieldCommand.
func NewAddKeyFieldCommand(source CommandSource, keyID, fieldPath string, order int) *AddKeyFieldCommand {
	return &AddKeyFieldCommand{
		BaseCommand: newBase(CmdAddKeyField, source),
		KeyID:       keyID,
		FieldPath:   fieldPath,
		Order:       order,
	}
}

// Validate checks ids and that the order is non-negative.
func (c *AddKeyFieldCommand) Validate() error {
	if err := required("key_id", c.KeyID, "field_path", c.FieldPath); err != nil {
		return err
	}
	if c.Order < 0 {
		return domain.InvalidArgument("order must be >= 0, got: %d", c.Order)
	}
	return nil
}

// RemoveKeyFieldCommand removes a key field and compacts the remaining orders.
type RemoveKeyFieldCommand struct {
	*BaseCommand
	KeyID      string
	KeyFieldID string
}

// NewRemoveKeyFieldCommand creates a new RemoveKeyFieldCommand.
func NewRemoveKeyFieldCommand(source CommandSource, keyID, keyFieldID string) *RemoveKeyFieldCommand {
	return &RemoveKeyFieldCommand{
		BaseCommand: newBase(CmdRemoveKeyField, source),
		KeyID:       keyID,
		KeyFieldID:  keyFieldID,
	}
}

// Validate checks that both ids are provided.
func (c *RemoveKeyFieldCommand) Validate() error {
	return required("key_id", c.KeyID, "key_field_id", c.KeyFieldID)
}

// ReorderKeyFieldsCommand rewrites key field orders to the given permutation.
type ReorderKeyFieldsCommand struct {
	*BaseCommand
	KeyID      string
	IDsInOrder []string
}

// NewReorderKeyFieldsCommand creates a new ReorderKeyFieldsCommand.
func NewReorderKeyFieldsCommand(source CommandSource, keyID string, idsInOrder []string) *ReorderKeyFieldsCommand {
	return &ReorderKeyFieldsCommand{
		BaseCommand: newBase(CmdReorderKeyFields, source),
		KeyID:       keyID,
		IDsInOrder:  idsInOrder,
	}
}

// Validate checks that the key id is provided.
func (c *ReorderKeyFieldsCommand) Validate() error {
	return required("key_id", c.KeyID)
}

// ===========================================================================
// Schema Version Commands
// ===========================================================================

// DeleteSchemaVersionCommand deletes the latest version of a schema group.
type DeleteSchemaVersionCommand struct {
	*BaseCommand
	SchemaID string
}

// NewDeleteSchemaVersionCommand creates a new DeleteSchemaVersionCommand.
func NewDeleteSchemaVersionCommand(source CommandSource, schemaID string) *DeleteSchemaVersionCommand {
	return &DeleteSchemaVersionCommand{
		BaseCommand: newBase(CmdDeleteSchemaVersion, source),
		SchemaID:    schemaID,
	}
}

// Validate checks that the schema id is provided.
func (c *DeleteSchemaVersionCommand) Validate() error {
	return required("schema_id", c.SchemaID)
}

// DeleteSchemaKeyCommand deletes every version of (tenant, key, role).
type DeleteSchemaKeyCommand struct {
	*BaseCommand
	TenantID string
	Key      string
	Role     domain.SchemaRole
}

// NewDeleteSchemaKeyCommand creates a new DeleteSchemaKeyCommand.
func NewDeleteSchemaKeyCommand(source CommandSource, tenantID, key string, role domain.SchemaRole) *DeleteSchemaKeyCommand {
	return &DeleteSchemaKeyCommand{
		BaseCommand: newBase(CmdDeleteSchemaKey, source),
		TenantID:    tenantID,
		Key:         key,
		Role:        role,
	}
}

// Validate checks the group identity.
func (c *DeleteSchemaKeyCommand) Validate() error {
	if err := required("tenant_id", c.TenantID, "key", c.Key); err != nil {
		return err
	}
	if !c.Role.IsValid() {
		return domain.InvalidArgument("role must be Incoming, Master or Outgoing, got: %s", c.Role)
	}
	return nil
}

// PublishSchemaCommand publishes one Draft schema.
type PublishSchemaCommand struct {
	*BaseCommand
	SchemaID    string
	PublishedBy string
}

// NewPublishSchemaCommand creates a new PublishSchemaCommand.
func NewPublishSchemaCommand(source CommandSource, schemaID, publishedBy string) *PublishSchemaCommand {
	return &PublishSchemaCommand{
		BaseCommand: newBase(CmdPublishSchema, source),
		SchemaID:    schemaID,
		PublishedBy: publishedBy,
	}
}

// Validate checks that the schema id and publisher are provided.
func (c *PublishSchemaCommand) Validate() error {
	return required("schema_id", c.SchemaID, "published_by", c.PublishedBy)
}

// PublishRelatedSchemasCommand publishes RelatedSchemaIDs in order, one
// transaction each.
type PublishRelatedSchemasCommand struct {
	*BaseCommand
	RootSchemaID     string
	PublishedBy      string
	RelatedSchemaIDs []string
}

// NewPublishRelatedSchemasCommand creates a new PublishRelatedSchemasCommand.
func NewPublishRelatedSchemasCommand(source CommandSource, rootSchemaID, publishedBy string, relatedIDs []string) *PublishRelatedSchemasCommand {
	return &PublishRelatedSchemasCommand{
		BaseCommand:      newBase(CmdPublishRelatedSchemas, source),
		RootSchemaID:     rootSchemaID,
		PublishedBy:      publishedBy,
		RelatedSchemaIDs: relatedIDs,
	}
}

// Validate checks ids, the publisher and that no id is blank.
func (c *PublishRelatedSchemasCommand) Validate() error {
	if err := required("root_schema_id", c.RootSchemaID, "published_by", c.PublishedBy); err != nil {
		return err
	}
	for i, id := range c.RelatedSchemaIDs {
		if id == "" {
			return domain.InvalidArgument("related_schema_ids[%d] is empty", i)
		}
	}
	return nil
}

// required checks name/value pairs and reports the first empty value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return domain.InvalidArgument("%s is required", pairs[i])
		}
	}
	return nil
}
