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

// editTransformation loads a spec, applies fn and saves it.
func editTransformation(ctx context.Context, tx domain.Store, id string, fn func(*domain.TransformationSpec) error) error {
	spec, err := tx.Transformations().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(spec); err != nil {
		return err
	}
	return tx.Transformations().Save(ctx, spec)
}

// CreateTransformation creates a Draft spec at the next version of its
// (source, target) group and returns its id. Schema compatibility is left
// to the publish-time validator.
func (h *Handlers) CreateTransformation(ctx context.Context, cmd *command.CreateTransformationCommand) (*command.CommandResult, error) {
	var spec *domain.TransformationSpec
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		for _, id := range []string{cmd.SourceSchemaID, cmd.TargetSchemaID} {
			if _, err := tx.Schemas().Get(ctx, id); err != nil {
				if domain.IsNotFound(err) {
					return domain.InvalidReference("schema %s does not exist", id)
				}
				return err
			}
		}
		group := domain.TransformationGroup{SourceSchemaID: cmd.SourceSchemaID, TargetSchemaID: cmd.TargetSchemaID}
		version, err := lifecycle.NextTransformationVersion(ctx, tx, group)
		if err != nil {
			return err
		}
		spec, err = domain.NewTransformationSpec(cmd.TenantID, cmd.SourceSchemaID, cmd.TargetSchemaID,
			cmd.Mode, cmd.Cardinality, version, cmd.Description)
		if err != nil {
			return err
		}
		return tx.Transformations().Save(ctx, spec)
	})
	if err != nil {
		return nil, err
	}
	log.Info(log.CatCommands, "Created transformation spec", "id", spec.ID(), "mode", string(spec.Mode()), "version", spec.Version())
	return SuccessWithEvents(spec.ID(), changed(domain.KindTransformation, spec.ID(), "", domain.ChangeCreated)), nil
}

// UpdateTransformation changes the description or cardinality of a Draft spec.
func (h *Handlers) UpdateTransformation(ctx context.Context, cmd *command.UpdateTransformationCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			if cmd.Description != nil {
				if err := spec.SetDescription(*cmd.Description); err != nil {
					return err
				}
			}
			if cmd.Cardinality != nil {
				return spec.SetCardinality(*cmd.Cardinality)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.SpecID, changed(domain.KindTransformation, cmd.SpecID, "", domain.ChangeUpdated)), nil
}

// AddSimpleRule appends a rule to a Simple spec and returns its id.
func (h *Handlers) AddSimpleRule(ctx context.Context, cmd *command.AddSimpleRuleCommand) (*command.CommandResult, error) {
	var rule domain.SimpleTransformRule
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			var err error
			rule, err = spec.AddSimpleRule(cmd.SourcePath, cmd.TargetPath, cmd.ConverterID, cmd.Required, cmd.Order)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(rule.ID, changed(domain.KindSimpleRule, rule.ID, cmd.SpecID, domain.ChangeCreated)), nil
}

// UpdateSimpleRule partially updates a rule.
func (h *Handlers) UpdateSimpleRule(ctx context.Context, cmd *command.UpdateSimpleRuleCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			_, err := spec.UpdateSimpleRule(cmd.RuleID, cmd.Update)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.RuleID, changed(domain.KindSimpleRule, cmd.RuleID, cmd.SpecID, domain.ChangeUpdated)), nil
}

// AddGraphNode adds a node to an Advanced spec and returns its id.
func (h *Handlers) AddGraphNode(ctx context.Context, cmd *command.AddGraphNodeCommand) (*command.CommandResult, error) {
	var node domain.TransformGraphNode
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			var err error
			node, err = spec.AddGraphNode(cmd.Key, cmd.NodeType, cmd.OutputType, cmd.Config)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(node.ID, changed(domain.KindGraphNode, node.ID, cmd.SpecID, domain.ChangeCreated)), nil
}

// UpdateGraphNode partially updates a node.
func (h *Handlers) UpdateGraphNode(ctx context.Context, cmd *command.UpdateGraphNodeCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			_, err := spec.UpdateGraphNode(cmd.NodeID, cmd.Update)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.NodeID, changed(domain.KindGraphNode, cmd.NodeID, cmd.SpecID, domain.ChangeUpdated)), nil
}

// AddGraphEdge connects two nodes of the spec and returns the edge id.
func (h *Handlers) AddGraphEdge(ctx context.Context, cmd *command.AddGraphEdgeCommand) (*command.CommandResult, error) {
	var edge domain.TransformGraphEdge
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			var err error
			edge, err = spec.AddGraphEdge(cmd.FromNodeID, cmd.ToNodeID, cmd.InputName, cmd.Order)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(edge.ID, changed(domain.KindGraphEdge, edge.ID, cmd.SpecID, domain.ChangeCreated)), nil
}

// AddOutputBinding binds a node's output to a target path and returns the binding id.
func (h *Handlers) AddOutputBinding(ctx context.Context, cmd *command.AddOutputBindingCommand) (*command.CommandResult, error) {
	var binding domain.TransformOutputBinding
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, func(spec *domain.TransformationSpec) error {
			var err error
			binding, err = spec.AddOutputBinding(cmd.TargetPath, cmd.FromNodeID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(binding.ID, changed(domain.KindOutputBinding, binding.ID, cmd.SpecID, domain.ChangeCreated)), nil
}

// AddTransformReference delegates a field pair to a Published child spec
// and returns the reference id.
func (h *Handlers) AddTransformReference(ctx context.Context, cmd *command.AddTransformReferenceCommand) (*command.CommandResult, error) {
	var ref domain.TransformReference
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		child, err := tx.Transformations().Get(ctx, cmd.ChildSpecID)
		var status domain.Status
		if child != nil {
			status = child.Status()
		}
		if err := requirePublishedChild(domain.KindTransformation, cmd.ChildSpecID, status, err); err != nil {
			return err
		}
		return editTransformation(ctx, tx, cmd.ParentSpecID, func(spec *domain.TransformationSpec) error {
			var err error
			ref, err = spec.AddReference(cmd.SourceFieldPath, cmd.TargetFieldPath, cmd.ChildSpecID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(ref.ID, changed(domain.KindTransformReference, ref.ID, cmd.ParentSpecID, domain.ChangeCreated)), nil
}

// RemoveTransformationChild removes a rule, node, edge, binding or
// reference, depending on the command type. Removing a node also removes
// the edges and bindings touching it.
func (h *Handlers) RemoveTransformationChild(ctx context.Context, cmd *command.RemoveSpecChildCommand) (*command.CommandResult, error) {
	var (
		kind   domain.EntityKind
		remove func(*domain.TransformationSpec) error
	)
	switch cmd.Type() {
	case command.CmdRemoveSimpleRule:
		kind, remove = domain.KindSimpleRule, func(s *domain.TransformationSpec) error { return s.RemoveSimpleRule(cmd.ChildID) }
	case command.CmdRemoveGraphNode:
		kind, remove = domain.KindGraphNode, func(s *domain.TransformationSpec) error { return s.RemoveGraphNode(cmd.ChildID) }
	case command.CmdRemoveGraphEdge:
		kind, remove = domain.KindGraphEdge, func(s *domain.TransformationSpec) error { return s.RemoveGraphEdge(cmd.ChildID) }
	case command.CmdRemoveOutputBinding:
		kind, remove = domain.KindOutputBinding, func(s *domain.TransformationSpec) error { return s.RemoveOutputBinding(cmd.ChildID) }
	case command.CmdRemoveTransformRef:
		kind, remove = domain.KindTransformReference, func(s *domain.TransformationSpec) error { return s.RemoveReference(cmd.ChildID) }
	default:
		return nil, fmt.Errorf("unexpected command type %s for transformation child removal", cmd.Type())
	}

	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editTransformation(ctx, tx, cmd.SpecID, remove)
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.ChildID, changed(kind, cmd.ChildID, cmd.SpecID, domain.ChangeDeleted)), nil
}

// DeleteTransformation deletes the latest version of a spec group when no
// other spec references it.
func (h *Handlers) DeleteTransformation(ctx context.Context, cmd *command.SpecVersionCommand) (*command.CommandResult, error) {
	var version int
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		spec, err := tx.Transformations().Get(ctx, cmd.SpecID)
		if err != nil {
			return err
		}
		version = spec.Version()
		maxVersion, err := tx.Transformations().MaxVersion(ctx, spec.Group())
		if err != nil {
			return err
		}
		if err := requireLatest(domain.KindTransformation, spec.ID(), spec.Version(), maxVersion); err != nil {
			return err
		}
		parents, err := tx.Transformations().ReferencingSpecIDs(ctx, spec.ID())
		if err != nil {
			return err
		}
		if len(parents) > 0 {
			return domain.InUse("transformation spec %s is referenced by %s", spec.ID(), strings.Join(parents, ", "))
		}
		return tx.Transformations().Delete(ctx, spec.ID())
	})
	if err != nil {
		return nil, err
	}
	if err := h.compiler.Evict(ctx, cmd.SpecID, version); err != nil {
		log.Warn(log.CatCache, "Failed to evict compiled plan", "id", cmd.SpecID, "error", err.Error())
	}
	return SuccessWithEvents(cmd.SpecID, changed(domain.KindTransformation, cmd.SpecID, "", domain.ChangeDeleted)), nil
}
