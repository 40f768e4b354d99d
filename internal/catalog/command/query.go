package command

import (
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// ===========================================================================
// Queries
// ===========================================================================

// GetCommand loads one entity by id. Type selects the entity kind.
type GetCommand struct {
	*BaseCommand
	EntityID string
}

// NewGetCommand creates a lookup for one of the Get command types.
func NewGetCommand(source CommandSource, cmdType CommandType, id string) *GetCommand {
	return &GetCommand{BaseCommand: newBase(cmdType, source), EntityID: id}
}

// Validate checks the id and that Type is a lookup.
func (c *GetCommand) Validate() error {
	switch c.Type() {
	case CmdGetDataModel, CmdGetSchema, CmdGetTransformation, CmdGetValidation:
	default:
		return domain.InvalidArgument("%s is not a lookup command", c.Type())
	}
	return required("id", c.EntityID)
}

// FindDataModelCommand looks a data model up by its tenant-unique key.
type FindDataModelCommand struct {
	*BaseCommand
	TenantID string
	Key      string
}

// NewFindDataModelCommand creates a new FindDataModelCommand.
func NewFindDataModelCommand(source CommandSource, tenantID, key string) *FindDataModelCommand {
	return &FindDataModelCommand{
		BaseCommand: newBase(CmdFindDataModel, source),
		TenantID:    tenantID,
		Key:         key,
	}
}

// Validate checks the tenant and key.
func (c *FindDataModelCommand) Validate() error {
	return required("tenant_id", c.TenantID, "key", c.Key)
}

// ListSchemaVersionsCommand lists every version of (tenant, key, role).
type ListSchemaVersionsCommand struct {
	*BaseCommand
	Group domain.SchemaGroup
}

// NewListSchemaVersionsCommand creates a new ListSchemaVersionsCommand.
func NewListSchemaVersionsCommand(source CommandSource, tenantID, key string, role domain.SchemaRole) *ListSchemaVersionsCommand {
	return &ListSchemaVersionsCommand{
		BaseCommand: newBase(CmdListSchemaVersions, source),
		Group:       domain.SchemaGroup{TenantID: tenantID, Key: key, Role: role},
	}
}

// Validate checks the group identity.
func (c *ListSchemaVersionsCommand) Validate() error {
	if err := required("tenant_id", c.Group.TenantID, "key", c.Group.Key); err != nil {
		return err
	}
	if !c.Group.Role.IsValid() {
		return domain.InvalidArgument("role must be Incoming, Master or Outgoing, got: %s", c.Group.Role)
	}
	return nil
}

// ListTransformationVersionsCommand lists every version in (source, target).
type ListTransformationVersionsCommand struct {
	*BaseCommand
	Group domain.TransformationGroup
}

// NewListTransformationVersionsCommand creates a new ListTransformationVersionsCommand.
func NewListTransformationVersionsCommand(source CommandSource, sourceSchemaID, targetSchemaID string) *ListTransformationVersionsCommand {
	return &ListTransformationVersionsCommand{
		BaseCommand: newBase(CmdListTransformationVersions, source),
		Group:       domain.TransformationGroup{SourceSchemaID: sourceSchemaID, TargetSchemaID: targetSchemaID},
	}
}

// Validate checks both schema ids.
func (c *ListTransformationVersionsCommand) Validate() error {
	return required("source_schema_id", c.Group.SourceSchemaID, "target_schema_id", c.Group.TargetSchemaID)
}

// ListValidationVersionsCommand lists every validation spec over a schema.
type ListValidationVersionsCommand struct {
	*BaseCommand
	DataSchemaID string
}

// NewListValidationVersionsCommand creates a new ListValidationVersionsCommand.
func NewListValidationVersionsCommand(source CommandSource, dataSchemaID string) *ListValidationVersionsCommand {
	return &ListValidationVersionsCommand{
		BaseCommand:  newBase(CmdListValidationVersions, source),
		DataSchemaID: dataSchemaID,
	}
}

// Validate checks the schema id.
func (c *ListValidationVersionsCommand) Validate() error {
	return required("data_schema_id", c.DataSchemaID)
}

// ValidateEntityCommand runs the static validator without changing anything.
type ValidateEntityCommand struct {
	*BaseCommand
	Kind       domain.EntityKind
	EntityID   string
	ForPublish bool
}

// NewValidateEntityCommand creates a new ValidateEntityCommand.
func NewValidateEntityCommand(source CommandSource, kind domain.EntityKind, id string, forPublish bool) *ValidateEntityCommand {
	return &ValidateEntityCommand{
		BaseCommand: newBase(CmdValidateEntity, source),
		Kind:        kind,
		EntityID:    id,
		ForPublish:  forPublish,
	}
}

// Validate checks the id and that Kind is a versioned entity.
func (c *ValidateEntityCommand) Validate() error {
	switch c.Kind {
	case domain.KindSchema, domain.KindTransformation, domain.KindValidation:
	default:
		return domain.InvalidArgument("cannot validate a %s", c.Kind)
	}
	return required("id", c.EntityID)
}

// String returns a readable representation of the command.
func (c *ValidateEntityCommand) String() string {
	return fmt.Sprintf("Validate{kind=%s, id=%s, for_publish=%t}", c.Kind, c.EntityID, c.ForPublish)
}

// CompileTransformationCommand projects a Published spec into its plan.
type CompileTransformationCommand struct {
	*BaseCommand
	SpecID string
}

// NewCompileTransformationCommand creates a new CompileTransformationCommand.
func NewCompileTransformationCommand(source CommandSource, specID string) *CompileTransformationCommand {
	return &CompileTransformationCommand{
		BaseCommand: newBase(CmdCompileTransformation, source),
		SpecID:      specID,
	}
}

// Validate checks that the spec id is provided.
func (c *CompileTransformationCommand) Validate() error {
	return required("spec_id", c.SpecID)
}
