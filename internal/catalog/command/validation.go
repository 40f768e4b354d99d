package command

import "github.com/zjrosen/specforge/internal/catalog/domain"

// ===========================================================================
// Validation Spec Commands
// ===========================================================================

// CreateValidationCommand creates the next Draft validation spec over a schema.
type CreateValidationCommand struct {
	*BaseCommand
	TenantID     string
	DataSchemaID string
	Description  string
}

// NewCreateValidationCommand creates a new CreateValidationCommand.
func NewCreateValidationCommand(source CommandSource, tenantID, dataSchemaID, description string) *CreateValidationCommand {
	return &CreateValidationCommand{
		BaseCommand:  newBase(CmdCreateValidation, source),
		TenantID:     tenantID,
		DataSchemaID: dataSchemaID,
		Description:  description,
	}
}

// Validate checks that tenant and schema are provided.
func (c *CreateValidationCommand) Validate() error {
	return required("tenant_id", c.TenantID, "data_schema_id", c.DataSchemaID)
}

// UpdateValidationCommand changes a Draft validation spec's description.
type UpdateValidationCommand struct {
	*BaseCommand
	SpecID      string
	Description string
}

// NewUpdateValidationCommand creates a new UpdateValidationCommand.
func NewUpdateValidationCommand(source CommandSource, specID, description string) *UpdateValidationCommand {
	return &UpdateValidationCommand{
		BaseCommand: newBase(CmdUpdateValidation, source),
		SpecID:      specID,
		Description: description,
	}
}

// Validate checks that the spec id is provided.
func (c *UpdateValidationCommand) Validate() error {
	return required("spec_id", c.SpecID)
}

// AddValidationRuleCommand appends a rule. Empty Parameters default to "{}".
type AddValidationRuleCommand struct {
	*BaseCommand
	SpecID     string
	RuleType   domain.RuleType
	Severity   domain.Severity
	Parameters string
}

// NewAddValidationRuleCommand creates a new AddValidationRuleCommand.
func NewAddValidationRuleCommand(source CommandSource, specID string, ruleType domain.RuleType,
	severity domain.Severity, parameters string) *AddValidationRuleCommand {
	return &AddValidationRuleCommand{
		BaseCommand: newBase(CmdAddValidationRule, source),
		SpecID:      specID,
		RuleType:    ruleType,
		Severity:    severity,
		Parameters:  parameters,
	}
}

// Validate checks the spec id and the enumerations.
func (c *AddValidationRuleCommand) Validate() error {
	if err := required("spec_id", c.SpecID); err != nil {
		return err
	}
	if !c.RuleType.IsValid() {
		return domain.InvalidArgument("invalid rule type: %s", c.RuleType)
	}
	if !c.Severity.IsValid() {
		return domain.InvalidArgument("severity must be Error or Warning, got: %s", c.Severity)
	}
	return nil
}

// UpdateValidationRuleCommand partially updates a rule.
type UpdateValidationRuleCommand struct {
	*BaseCommand
	SpecID string
	RuleID string
	Update domain.ValidationRuleUpdate
}

// NewUpdateValidationRuleCommand creates a new UpdateValidationRuleCommand.
func NewUpdateValidationRuleCommand(source CommandSource, specID, ruleID string, upd domain.ValidationRuleUpdate) *UpdateValidationRuleCommand {
	return &UpdateValidationRuleCommand{
		BaseCommand: newBase(CmdUpdateValidationRule, source),
		SpecID:      specID,
		RuleID:      ruleID,
		Update:      upd,
	}
}

// Validate checks ids and any enumerations being changed.
func (c *UpdateValidationRuleCommand) Validate() error {
	if err := required("spec_id", c.SpecID, "rule_id", c.RuleID); err != nil {
		return err
	}
	if c.Update.RuleType != nil && !c.Update.RuleType.IsValid() {
		return domain.InvalidArgument("invalid rule type: %s", *c.Update.RuleType)
	}
	if c.Update.Severity != nil && !c.Update.Severity.IsValid() {
		return domain.InvalidArgument("severity must be Error or Warning, got: %s", *c.Update.Severity)
	}
	return nil
}

// AddValidationReferenceCommand delegates a structured field to a Published
// child validation spec.
type AddValidationReferenceCommand struct {
	*BaseCommand
	SpecID      string
	FieldPath   string
	ChildSpecID string
}

// NewAddValidationReferenceCommand creates a new AddValidationReferenceCommand.
func NewAddValidationReferenceCommand(source CommandSource, specID, fieldPath, childSpecID string) *AddValidationReferenceCommand {
	return &AddValidationReferenceCommand{
		BaseCommand: newBase(CmdAddValidationReference, source),
		SpecID:      specID,
		FieldPath:   fieldPath,
		ChildSpecID: childSpecID,
	}
}

// Validate checks ids, the path and rejects self-reference.
func (c *AddValidationReferenceCommand) Validate() error {
	if err := required("spec_id", c.SpecID, "field_path", c.FieldPath, "child_spec_id", c.ChildSpecID); err != nil {
		return err
	}
	if c.SpecID == c.ChildSpecID {
		return domain.InvalidReference("spec %s cannot reference itself", c.SpecID)
	}
	return nil
}
