package command

import (
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// ===========================================================================
// Transformation Spec Commands
// ===========================================================================

// CreateTransformationCommand creates the next Draft version in (source, target).
type CreateTransformationCommand struct {
	*BaseCommand
	TenantID       string
	SourceSchemaID string
	TargetSchemaID string
	Mode           domain.TransformMode
	Cardinality    domain.Cardinality
	Description    string
}

// NewCreateTransformationCommand creates a new CreateTransformationCommand.
func NewCreateTransformationCommand(source CommandSource, tenantID, sourceSchemaID, targetSchemaID string,
	mode domain.TransformMode, cardinality domain.Cardinality) *CreateTransformationCommand {
	return &CreateTransformationCommand{
		BaseCommand:    newBase(CmdCreateTransformation, source),
		TenantID:       tenantID,
		SourceSchemaID: sourceSchemaID,
		TargetSchemaID: targetSchemaID,
		Mode:           mode,
		Cardinality:    cardinality,
	}
}

// Validate checks ids and the enumerations.
func (c *CreateTransformationCommand) Validate() error {
	if err := required("tenant_id", c.TenantID, "source_schema_id", c.SourceSchemaID,
		"target_schema_id", c.TargetSchemaID); err != nil {
		return err
	}
	if !c.Mode.IsValid() {
		return domain.InvalidArgument("mode must be Simple or Advanced, got: %s", c.Mode)
	}
	if !c.Cardinality.IsValid() {
		return domain.InvalidArgument("invalid cardinality: %s", c.Cardinality)
	}
	return nil
}

// String returns a readable representation of the command.
func (c *CreateTransformationCommand) String() string {
	return fmt.Sprintf("CreateTransformation{source=%s, target=%s, mode=%s}", c.SourceSchemaID, c.TargetSchemaID, c.Mode)
}

// UpdateTransformationCommand changes a Draft spec's description or cardinality.
type UpdateTransformationCommand struct {
	*BaseCommand
	SpecID      string
	Description *string
	Cardinality *domain.Cardinality
}

// NewUpdateTransformationCommand creates a new UpdateTransformationCommand.
func NewUpdateTransformationCommand(source CommandSource, specID string) *UpdateTransformationCommand {
	return &UpdateTransformationCommand{
		BaseCommand: newBase(CmdUpdateTransformation, source),
		SpecID:      specID,
	}
}

// Validate checks the spec id and, when set, the cardinality.
func (c *UpdateTransformationCommand) Validate() error {
	if err := required("spec_id", c.SpecID); err != nil {
		return err
	}
	if c.Cardinality != nil && !c.Cardinality.IsValid() {
		return domain.InvalidArgument("invalid cardinality: %s", *c.Cardinality)
	}
	return nil
}

// ===========================================================================
// Simple Rule Commands
// ===========================================================================

// AddSimpleRuleCommand appends a rule to a Draft Simple spec. A nil Order
// places the rule after the current last rule.
type AddSimpleRuleCommand struct {
	*BaseCommand
	SpecID      string
	SourcePath  string
	TargetPath  string
	ConverterID string
	Required    bool
	Order       *int
}

// NewAddSimpleRuleCommand creates a new AddSimpleRuleCommand.
func NewAddSimpleRuleCommand(source CommandSource, specID, sourcePath, targetPath string) *AddSimpleRuleCommand {
	return &AddSimpleRuleCommand{
		BaseCommand: newBase(CmdAddSimpleRule, source),
		SpecID:      specID,
		SourcePath:  sourcePath,
		TargetPath:  targetPath,
	}
}

// Validate checks the spec id and both paths.
func (c *AddSimpleRuleCommand) Validate() error {
	if err := required("spec_id", c.SpecID, "source_path", c.SourcePath, "target_path", c.TargetPath); err != nil {
		return err
	}
	if c.Order != nil && *c.Order < 0 {
		return domain.InvalidArgument("order must be >= 0, got: %d", *c.Order)
	}
	return nil
}

// UpdateSimpleRuleCommand partially updates a rule.
type UpdateSimpleRuleCommand struct {
	*BaseCommand
	SpecID string
	RuleID string
	Update domain.SimpleRuleUpdate
}

// NewUpdateSimpleRuleCommand creates a new UpdateSimpleRuleCommand.
func NewUpdateSimpleRuleCommand(source CommandSource, specID, ruleID string, upd domain.SimpleRuleUpdate) *UpdateSimpleRuleCommand {
	return &UpdateSimpleRuleCommand{
		BaseCommand: newBase(CmdUpdateSimpleRule, source),
		SpecID:      specID,
		RuleID:      ruleID,
		Update:      upd,
	}
}

// Validate checks that both ids are provided.
func (c *UpdateSimpleRuleCommand) Validate() error {
	return required("spec_id", c.SpecID, "rule_id", c.RuleID)
}

// ===========================================================================
// Graph Commands
// ===========================================================================

// AddGraphNodeCommand adds an operator node to a Draft Advanced spec.
type AddGraphNodeCommand struct {
	*BaseCommand
	SpecID     string
	Key        string
	NodeType   domain.NodeType
	OutputType string
	Config     string
}

// NewAddGraphNodeCommand creates a new AddGraphNodeCommand.
func NewAddGraphNodeCommand(source CommandSource, specID, key string, nodeType domain.NodeType) *AddGraphNodeCommand {
	return &AddGraphNodeCommand{
		BaseCommand: newBase(CmdAddGraphNode, source),
		SpecID:      specID,
		Key:         key,
		NodeType:    nodeType,
	}
}

// Validate checks the spec id, key and node type.
func (c *AddGraphNodeCommand) Validate() error {
	if err := required("spec_id", c.SpecID, "key", c.Key); err != nil {
		return err
	}
	if !c.NodeType.IsValid() {
		return domain.InvalidArgument("invalid node type: %s", c.NodeType)
	}
	return nil
}

// UpdateGraphNodeCommand partially updates a node.
type UpdateGraphNodeCommand struct {
	*BaseCommand
	SpecID string
	NodeID string
	Update domain.GraphNodeUpdate
}

// NewUpdateGraphNodeCommand creates a new UpdateGraphNodeCommand.
func NewUpdateGraphNodeCommand(source CommandSource, specID, nodeID string, upd domain.GraphNodeUpdate) *UpdateGraphNodeCommand {
	return &UpdateGraphNodeCommand{
		BaseCommand: newBase(CmdUpdateGraphNode, source),
		SpecID:      specID,
		NodeID:      nodeID,
		Update:      upd,
	}
}

// Validate checks both ids and, when set, the node type.
func (c *UpdateGraphNodeCommand) Validate() error {
	if err := required("spec_id", c.SpecID, "node_id", c.NodeID); err != nil {
		return err
	}
	if c.Update.NodeType != nil && !c.Update.NodeType.IsValid() {
		return domain.InvalidArgument("invalid node type: %s", *c.Update.NodeType)
	}
	return nil
}

// AddGraphEdgeCommand connects two nodes of the same spec.
type AddGraphEdgeCommand struct {
	*BaseCommand
	SpecID     string
	FromNodeID string
	ToNodeID   string
	InputName  string
	Order      int
}

// NewAddGraphEdgeCommand creates a new AddGraphEdgeCommand.
func NewAddGraphEdgeCommand(source CommandSource, specID, fromNodeID, toNodeID, inputName string, order int) *AddGraphEdgeCommand {
	return &AddGraphEdgeCommand{
		BaseCommand: newBase(CmdAddGraphEdge, source),
		SpecID:      specID,
		FromNodeID:  fromNodeID,
		ToNodeID:    toNodeID,
		InputName:   inputName,
		Order:       order,
	}
}

// Validate checks ids, the input name and rejects self-loops early.
func (c *AddGraphEdgeCommand) Validate() error {
	if err := required("spec_id", c.SpecID, "from_node_id", c.FromNodeID, "to_node_id", c.ToNodeID,
		"input_name", c.InputName); err != nil {
		return err
	}
	if c.FromNodeID == c.ToNodeID {
		return domain.InvalidArgument("edge cannot connect node %s to itself", c.FromNodeID)
	}
	if c.Order < 0 {
		return domain.InvalidArgument("order must be >= 0, got: %d", c.Order)
	}
	return nil
}

// AddOutputBindingCommand writes a node's output to a target path.
type AddOutputBindingCommand struct {
	*BaseCommand
	SpecID     string
	TargetPath string
	FromNodeID string
}

// NewAddOutputBindingCommand creates a new AddOutputBindingCommand.
func NewAddOutputBindingCommand(source CommandSource, specID, targetPath, fromNodeID string) *AddOutputBindingCommand {
	return &AddOutputBindingCommand{
		BaseCommand: newBase(CmdAddOutputBinding, source),
		SpecID:      specID,
		TargetPath:  targetPath,
		FromNodeID:  fromNodeID,
	}
}

// Validate checks ids and the target path.
func (c *AddOutputBindingCommand) Validate() error {
	return required("spec_id", c.SpecID, "target_path", c.TargetPath, "from_node_id", c.FromNodeID)
}

// AddTransformReferenceCommand delegates a structured field pair to a
// Published child spec.
type AddTransformReferenceCommand struct {
	*BaseCommand
	ParentSpecID    string
	SourceFieldPath string
	TargetFieldPath string
	ChildSpecID     string
}

// NewAddTransformReferenceCommand creates a new AddTransformReferenceCommand.
func NewAddTransformReferenceCommand(source CommandSource, parentSpecID, sourceFieldPath, targetFieldPath, childSpecID string) *AddTransformReferenceCommand {
	return &AddTransformReferenceCommand{
		BaseCommand:     newBase(CmdAddTransformReference, source),
		ParentSpecID:    parentSpecID,
		SourceFieldPath: sourceFieldPath,
		TargetFieldPath: targetFieldPath,
		ChildSpecID:     childSpecID,
	}
}

// Validate checks ids, both paths and rejects self-reference.
func (c *AddTransformReferenceCommand) Validate() error {
	if err := required("parent_spec_id", c.ParentSpecID, "source_field_path", c.SourceFieldPath,
		"target_field_path", c.TargetFieldPath, "child_spec_id", c.ChildSpecID); err != nil {
		return err
	}
	if c.ParentSpecID == c.ChildSpecID {
		return domain.InvalidReference("spec %s cannot reference itself", c.ParentSpecID)
	}
	return nil
}

// ===========================================================================
// Spec Child Removal
// ===========================================================================

// RemoveSpecChildCommand removes one child entity of a transformation or
// validation spec. Type selects which collection ChildID belongs to.
type RemoveSpecChildCommand struct {
	*BaseCommand
	SpecID  string
	ChildID string
}

// NewRemoveSpecChildCommand creates a removal command for one of the
// child-removal command types.
func NewRemoveSpecChildCommand(source CommandSource, cmdType CommandType, specID, childID string) *RemoveSpecChildCommand {
	return &RemoveSpecChildCommand{
		BaseCommand: newBase(cmdType, source),
		SpecID:      specID,
		ChildID:     childID,
	}
}

// Validate checks both ids and that Type is a child-removal type.
func (c *RemoveSpecChildCommand) Validate() error {
	switch c.Type() {
	case CmdRemoveSimpleRule, CmdRemoveGraphNode, CmdRemoveGraphEdge, CmdRemoveOutputBinding,
		CmdRemoveTransformRef, CmdRemoveValidationRule, CmdRemoveValidationReference:
	default:
		return domain.InvalidArgument("%s is not a child removal command", c.Type())
	}
	return required("spec_id", c.SpecID, "child_id", c.ChildID)
}

// String returns a readable representation of the command.
func (c *RemoveSpecChildCommand) String() string {
	return fmt.Sprintf("%s{spec=%s, child=%s}", c.Type(), c.SpecID, c.ChildID)
}

// ===========================================================================
// Spec Version Commands
// ===========================================================================

// SpecVersionCommand deletes or publishes a transformation or validation
// spec version; Type tells which.
type SpecVersionCommand struct {
	*BaseCommand
	SpecID      string
	PublishedBy string // Publish commands only
}

// NewDeleteTransformationCommand creates a transformation delete command.
func NewDeleteTransformationCommand(source CommandSource, specID string) *SpecVersionCommand {
	return &SpecVersionCommand{BaseCommand: newBase(CmdDeleteTransformation, source), SpecID: specID}
}

// NewPublishTransformationCommand creates a transformation publish command.
func NewPublishTransformationCommand(source CommandSource, specID, publishedBy string) *SpecVersionCommand {
	return &SpecVersionCommand{BaseCommand: newBase(CmdPublishTransformation, source), SpecID: specID, PublishedBy: publishedBy}
}

// NewDeleteValidationCommand creates a validation spec delete command.
func NewDeleteValidationCommand(source CommandSource, specID string) *SpecVersionCommand {
	return &SpecVersionCommand{BaseCommand: newBase(CmdDeleteValidation, source), SpecID: specID}
}

// NewPublishValidationCommand creates a validation spec publish command.
func NewPublishValidationCommand(source CommandSource, specID, publishedBy string) *SpecVersionCommand {
	return &SpecVersionCommand{BaseCommand: newBase(CmdPublishValidation, source), SpecID: specID, PublishedBy: publishedBy}
}

// Validate checks the spec id, and the publisher for publish commands.
func (c *SpecVersionCommand) Validate() error {
	switch c.Type() {
	case CmdPublishTransformation, CmdPublishValidation:
		return required("spec_id", c.SpecID, "published_by", c.PublishedBy)
	case CmdDeleteTransformation, CmdDeleteValidation:
		return required("spec_id", c.SpecID)
	default:
		return domain.InvalidArgument("%s is not a spec version command", c.Type())
	}
}
