package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/lifecycle"
	"github.com/zjrosen/specforge/internal/log"
)

// emptyParameters is stored for rules created without parameters.
const emptyParameters = "{}"

func editValidation(ctx context.Context, tx domain.Store, id string, fn func(*domain.ValidationSpec) error) error {
	spec, err := tx.Validations().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(spec); err != nil {
		return err
	}
	return tx.Validations().Save(ctx, spec)
}

// CreateValidation creates a Draft validation spec at the next version for
// its data schema and returns its id.
func (h *Handlers) CreateValidation(ctx context.Context, cmd *command.CreateValidationCommand) (*command.CommandResult, error) {
	var spec *domain.ValidationSpec
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		if _, err := tx.Schemas().Get(ctx, cmd.DataSchemaID); err != nil {
			if domain.IsNotFound(err) {
				return domain.InvalidReference("schema %s does not exist", cmd.DataSchemaID)
			}
			return err
		}
		version, err := lifecycle.NextValidationVersion(ctx, tx, cmd.DataSchemaID)
		if err != nil {
			return err
		}
		spec, err = domain.NewValidationSpec(cmd.TenantID, cmd.DataSchemaID, version, cmd.Description)
		if err != nil {
			return err
		}
		return tx.Validations().Save(ctx, spec)
	})
	if err != nil {
		return nil, err
	}
	log.Info(log.CatCommands, "Created validation spec", "id", spec.ID(), "schema", cmd.DataSchemaID, "version", spec.Version())
	return SuccessWithEvents(spec.ID(), changed(domain.KindValidation, spec.ID(), "", domain.ChangeCreated)), nil
}

// UpdateValidation changes the description of a Draft validation spec.
func (h *Handlers) UpdateValidation(ctx context.Context, cmd *command.UpdateValidationCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editValidation(ctx, tx, cmd.SpecID, func(spec *domain.ValidationSpec) error {
			return spec.SetDescription(cmd.Description)
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.SpecID, changed(domain.KindValidation, cmd.SpecID, "", domain.ChangeUpdated)), nil
}

// AddValidationRule appends a rule and returns its id.
func (h *Handlers) AddValidationRule(ctx context.Context, cmd *command.AddValidationRuleCommand) (*command.CommandResult, error) {
	params := cmd.Parameters
	if strings.TrimSpace(params) == "" {
		params = emptyParameters
	}
	var rule domain.ValidationRule
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editValidation(ctx, tx, cmd.SpecID, func(spec *domain.ValidationSpec) error {
			var err error
			rule, err = spec.AddRule(cmd.RuleType, cmd.Severity, params)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(rule.ID, changed(domain.KindValidationRule, rule.ID, cmd.SpecID, domain.ChangeCreated)), nil
}

// UpdateValidationRule partially updates a rule.
func (h *Handlers) UpdateValidationRule(ctx context.Context, cmd *command.UpdateValidationRuleCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editValidation(ctx, tx, cmd.SpecID, func(spec *domain.ValidationSpec) error {
			_, err := spec.UpdateRule(cmd.RuleID, cmd.Update)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.RuleID, changed(domain.KindValidationRule, cmd.RuleID, cmd.SpecID, domain.ChangeUpdated)), nil
}

// AddValidationReference applies a Published child spec to a field path
// and returns the reference id.
func (h *Handlers) AddValidationReference(ctx context.Context, cmd *command.AddValidationReferenceCommand) (*command.CommandResult, error) {
	var ref domain.ValidationReference
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		child, err := tx.Validations().Get(ctx, cmd.ChildSpecID)
		var status domain.Status
		if child != nil {
			status = child.Status()
		}
		if err := requirePublishedChild(domain.KindValidation, cmd.ChildSpecID, status, err); err != nil {
			return err
		}
		return editValidation(ctx, tx, cmd.SpecID, func(spec *domain.ValidationSpec) error {
			var err error
			ref, err = spec.AddReference(cmd.FieldPath, cmd.ChildSpecID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(ref.ID, changed(domain.KindValidationReference, ref.ID, cmd.SpecID, domain.ChangeCreated)), nil
}

// RemoveValidationChild removes a rule or reference, depending on the command type.
func (h *Handlers) RemoveValidationChild(ctx context.Context, cmd *command.RemoveSpecChildCommand) (*command.CommandResult, error) {
	var (
		kind   domain.EntityKind
		remove func(*domain.ValidationSpec) error
	)
	switch cmd.Type() {
	case command.CmdRemoveValidationRule:
		kind, remove = domain.KindValidationRule, func(s *domain.ValidationSpec) error { return s.RemoveRule(cmd.ChildID) }
	case command.CmdRemoveValidationReference:
		kind, remove = domain.KindValidationReference, func(s *domain.ValidationSpec) error { return s.RemoveReference(cmd.ChildID) }
	default:
		return nil, fmt.Errorf("unexpected command type %s for validation child removal", cmd.Type())
	}

	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editValidation(ctx, tx, cmd.SpecID, remove)
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.ChildID, changed(kind, cmd.ChildID, cmd.SpecID, domain.ChangeDeleted)), nil
}

// DeleteValidation deletes the latest validation spec of its schema when no
// other spec references it.
func (h *Handlers) DeleteValidation(ctx context.Context, cmd *command.SpecVersionCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		spec, err := tx.Validations().Get(ctx, cmd.SpecID)
		if err != nil {
			return err
		}
		maxVersion, err := tx.Validations().MaxVersion(ctx, spec.DataSchemaID())
		if err != nil {
			return err
		}
		if err := requireLatest(domain.KindValidation, spec.ID(), spec.Version(), maxVersion); err != nil {
			return err
		}
		parents, err := tx.Validations().ReferencingSpecIDs(ctx, spec.ID())
		if err != nil {
			return err
		}
		if len(parents) > 0 {
			return domain.InUse("validation spec %s is referenced by %s", spec.ID(), strings.Join(parents, ", "))
		}
		return tx.Validations().Delete(ctx, spec.ID())
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.SpecID, changed(domain.KindValidation, cmd.SpecID, "", domain.ChangeDeleted)), nil
}
