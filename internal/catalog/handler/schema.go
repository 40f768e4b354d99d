package handler

import (
	"context"
	"slices"
	"strings"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/lifecycle"
	"github.com/zjrosen/specforge/internal/log"
)

// editSchema loads a schema, applies fn and saves it.
func editSchema(ctx context.Context, tx domain.Store, id string, fn func(*domain.DataSchema) error) (*domain.DataSchema, error) {
	s, err := tx.Schemas().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := tx.Schemas().Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSchema creates a Draft schema at the next version of its group and
// returns its id.
func (h *Handlers) CreateSchema(ctx context.Context, cmd *command.CreateSchemaCommand) (*command.CommandResult, error) {
	var s *domain.DataSchema
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		version, err := lifecycle.NextSchemaVersion(ctx, tx, domain.SchemaGroup{TenantID: cmd.TenantID, Key: cmd.Key, Role: cmd.Role})
		if err != nil {
			return err
		}
		s, err = domain.NewDataSchema(cmd.TenantID, cmd.DataModelID, cmd.Role, cmd.Key, version, cmd.Description)
		if err != nil {
			return err
		}
		return tx.Schemas().Save(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	log.Info(log.CatCommands, "Created schema", "id", s.ID(), "key", s.Key(), "role", string(s.Role()), "version", s.Version())
	return SuccessWithEvents(s.ID(), changed(domain.KindSchema, s.ID(), "", domain.ChangeCreated)), nil
}

// UpdateSchema changes the description or data model of a Draft schema.
// The data model's existence is checked at publish.
func (h *Handlers) UpdateSchema(ctx context.Context, cmd *command.UpdateSchemaCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			if cmd.Description != nil {
				if err := s.SetDescription(*cmd.Description); err != nil {
					return err
				}
			}
			if cmd.DataModelID != nil {
				return s.SetDataModel(*cmd.DataModelID)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.SchemaID, changed(domain.KindSchema, cmd.SchemaID, "", domain.ChangeUpdated)), nil
}

// AddField appends a field and returns its id.
func (h *Handlers) AddField(ctx context.Context, cmd *command.AddFieldCommand) (*command.CommandResult, error) {
	shape, err := cmd.Shape()
	if err != nil {
		return nil, err
	}
	var field domain.FieldDefinition
	err = h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			if err := checkElementSchema(ctx, tx, s, shape); err != nil {
				return err
			}
			var err error
			field, err = s.AddField(cmd.Path, shape, cmd.Required, cmd.Description)
			if err != nil {
				return err
			}
			return h.checkElementCycle(ctx, tx, s)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(field.ID, changed(domain.KindField, field.ID, cmd.SchemaID, domain.ChangeCreated)), nil
}

// UpdateField applies a partial field update.
func (h *Handlers) UpdateField(ctx context.Context, cmd *command.UpdateFieldCommand) (*command.CommandResult, error) {
	shape, err := cmd.Shape()
	if err != nil {
		return nil, err
	}
	err = h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			if shape != nil {
				if err := checkElementSchema(ctx, tx, s, shape); err != nil {
					return err
				}
			}
			_, err := s.UpdateField(cmd.FieldID, domain.FieldUpdate{
				Path:        cmd.Path,
				Shape:       shape,
				Required:    cmd.Required,
				Description: cmd.Description,
			})
			if err != nil {
				return err
			}
			return h.checkElementCycle(ctx, tx, s)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.FieldID, changed(domain.KindField, cmd.FieldID, cmd.SchemaID, domain.ChangeUpdated)), nil
}

// RemoveField deletes a field no key uses.
func (h *Handlers) RemoveField(ctx context.Context, cmd *command.RemoveFieldCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			return s.RemoveField(cmd.FieldID)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.FieldID, changed(domain.KindField, cmd.FieldID, cmd.SchemaID, domain.ChangeDeleted)), nil
}

// AddSchemaTag tags a Draft schema and returns the tag id.
func (h *Handlers) AddSchemaTag(ctx context.Context, cmd *command.SchemaTagCommand) (*command.CommandResult, error) {
	var tag domain.SchemaTag
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			var err error
			tag, err = s.AddTag(cmd.Tag)
			return err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(tag.ID, changed(domain.KindSchemaTag, tag.ID, cmd.SchemaID, domain.ChangeCreated)), nil
}

// RemoveSchemaTag removes a tag by value.
func (h *Handlers) RemoveSchemaTag(ctx context.Context, cmd *command.SchemaTagCommand) (*command.CommandResult, error) {
	var tagID string
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			for _, t := range s.Tags() {
				if t.Tag == cmd.Tag {
					tagID = t.ID
				}
			}
			return s.RemoveTag(cmd.Tag)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(tagID, changed(domain.KindSchemaTag, tagID, cmd.SchemaID, domain.ChangeDeleted)), nil
}

// DeleteSchemaVersion deletes the latest version of a schema group when
// nothing outside the schema refers to it.
func (h *Handlers) DeleteSchemaVersion(ctx context.Context, cmd *command.DeleteSchemaVersionCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		s, err := tx.Schemas().Get(ctx, cmd.SchemaID)
		if err != nil {
			return err
		}
		maxVersion, err := tx.Schemas().MaxVersion(ctx, s.Group())
		if err != nil {
			return err
		}
		if err := requireLatest(domain.KindSchema, s.ID(), s.Version(), maxVersion); err != nil {
			return err
		}
		if err := checkSchemaUnreferenced(ctx, tx, []string{s.ID()}); err != nil {
			return err
		}
		return tx.Schemas().Delete(ctx, s.ID())
	})
	if err != nil {
		return nil, err
	}
	log.Info(log.CatCommands, "Deleted schema version", "id", cmd.SchemaID)
	return SuccessWithEvents(cmd.SchemaID, changed(domain.KindSchema, cmd.SchemaID, "", domain.ChangeDeleted)), nil
}

// DeleteSchemaKey deletes every version of a schema group. It fails when a
// schema outside the group, or any spec, refers to one of the versions.
func (h *Handlers) DeleteSchemaKey(ctx context.Context, cmd *command.DeleteSchemaKeyCommand) (*command.CommandResult, error) {
	group := domain.SchemaGroup{TenantID: cmd.TenantID, Key: cmd.Key, Role: cmd.Role}
	var deleted []string
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		versions, err := tx.Schemas().ListVersions(ctx, group)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			return &domain.NotFoundError{Kind: domain.KindSchema, ID: cmd.Key}
		}
		ids := make([]string, len(versions))
		for i, s := range versions {
			ids[i] = s.ID()
		}
		if err := checkSchemaUnreferenced(ctx, tx, ids); err != nil {
			return err
		}
		// Newest first so no remaining version ever points at a deleted one.
		for _, id := range slices.Backward(ids) {
			if err := tx.Schemas().Delete(ctx, id); err != nil {
				return err
			}
		}
		deleted = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	events := make([]any, len(deleted))
	for i, id := range deleted {
		events[i] = changed(domain.KindSchema, id, "", domain.ChangeDeleted)
	}
	log.Info(log.CatCommands, "Deleted schema key", "tenant", cmd.TenantID, "key", cmd.Key,
		"role", string(cmd.Role), "versions", len(deleted))
	return SuccessWithEvents(deleted, events...), nil
}

// checkSchemaUnreferenced fails with ErrInUse when a schema outside ids
// nests one of ids, or a spec is built on one of them.
func checkSchemaUnreferenced(ctx context.Context, tx domain.Store, ids []string) error {
	inSet := func(id string) bool { return slices.Contains(ids, id) }
	for _, id := range ids {
		nesting, err := tx.Schemas().ReferencingSchemaIDs(ctx, id)
		if err != nil {
			return err
		}
		if outside := without(nesting, inSet); len(outside) > 0 {
			return domain.InUse("schema %s is an element schema of %s", id, strings.Join(outside, ", "))
		}
		specs, err := tx.Transformations().IDsBySchema(ctx, id)
		if err != nil {
			return err
		}
		if len(specs) > 0 {
			return domain.InUse("schema %s is used by transformation spec(s) %s", id, strings.Join(specs, ", "))
		}
		validations, err := tx.Validations().IDsBySchema(ctx, id)
		if err != nil {
			return err
		}
		if len(validations) > 0 {
			return domain.InUse("schema %s is used by validation spec(s) %s", id, strings.Join(validations, ", "))
		}
	}
	return nil
}

// checkElementSchema verifies the element schema of shape exists, is not
// Archived and shares the role of s. A schema may nest itself.
func checkElementSchema(ctx context.Context, tx domain.Store, s *domain.DataSchema, shape domain.FieldShape) error {
	_, _, elementID := domain.ShapeParts(shape)
	if elementID == "" || elementID == s.ID() {
		return nil
	}
	elem, err := tx.Schemas().Get(ctx, elementID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.InvalidReference("element schema %s does not exist", elementID)
		}
		return err
	}
	if elem.Status() == domain.StatusArchived {
		return domain.InvalidReference("element schema %s is Archived", elementID)
	}
	if elem.Role() != s.Role() {
		return domain.InvalidReference("element schema %s has role %s, schema %s is %s", elementID, elem.Role(), s.ID(), s.Role())
	}
	return nil
}

// checkElementCycle looks for a cycle through s in the element-schema
// graph. Direct self-nesting is not a cycle. A cycle is logged, or
// rejected when configured.
func (h *Handlers) checkElementCycle(ctx context.Context, tx domain.Store, s *domain.DataSchema) error {
	var loadErr error
	cycle := domain.FindElementCycle(s.ID(), func(id string) []string {
		var elements []string
		if id == s.ID() {
			elements = s.ElementSchemaIDs()
		} else {
			other, err := tx.Schemas().Get(ctx, id)
			if err != nil {
				if loadErr == nil && !domain.IsNotFound(err) {
					loadErr = err
				}
				return nil
			}
			elements = other.ElementSchemaIDs()
		}
		return without(elements, func(e string) bool { return e == id })
	})
	if loadErr != nil {
		return loadErr
	}
	if cycle == nil {
		return nil
	}
	path := strings.Join(cycle, " -> ")
	if h.rejectElementCycles {
		return domain.InvalidReference("element schemas form a cycle: %s", path)
	}
	log.Warn(log.CatCommands, "Element schema cycle", "schema", s.ID(), "cycle", path)
	return nil
}
