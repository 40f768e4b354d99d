package handler

import (
	"context"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
)

// AddKeyDefinition adds a business key to a Draft Master schema and returns its id.
func (h *Handlers) AddKeyDefinition(ctx context.Context, cmd *command.AddKeyDefinitionCommand) (*command.CommandResult, error) {
	var key domain.KeyDefinition
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			var err error
			key, err = s.AddKeyDefinition(cmd.Name, cmd.IsPrimary)
			return err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(key.ID, changed(domain.KindKeyDefinition, key.ID, cmd.SchemaID, domain.ChangeCreated)), nil
}

// RemoveKeyDefinition removes a key and its fields.
func (h *Handlers) RemoveKeyDefinition(ctx context.Context, cmd *command.RemoveKeyDefinitionCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		_, err := editSchema(ctx, tx, cmd.SchemaID, func(s *domain.DataSchema) error {
			return s.RemoveKeyDefinition(cmd.KeyID)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.KeyID, changed(domain.KindKeyDefinition, cmd.KeyID, cmd.SchemaID, domain.ChangeDeleted)), nil
}

// editKey resolves the schema owning keyID and edits it.
func editKey(ctx context.Context, tx domain.Store, keyID string, fn func(*domain.DataSchema) error) error {
	schemaID, err := tx.Schemas().SchemaIDForKeyDefinition(ctx, keyID)
	if err != nil {
		return err
	}
	_, err = editSchema(ctx, tx, schemaID, fn)
	return err
}

// AddKeyField appends a Scalar field path to a key and returns the key field id.
func (h *Handlers) AddKeyField(ctx context.Context, cmd *command.AddKeyFieldCommand) (*command.CommandResult, error) {
	var kf domain.KeyField
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editKey(ctx, tx, cmd.KeyID, func(s *domain.DataSchema) error {
			var err error
			kf, err = s.AddKeyField(cmd.KeyID, cmd.FieldPath, cmd.Order, cmd.Normalization)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(kf.ID, changed(domain.KindKeyField, kf.ID, cmd.KeyID, domain.ChangeCreated)), nil
}

// RemoveKeyField removes a key field and compacts the remaining orders.
func (h *Handlers) RemoveKeyField(ctx context.Context, cmd *command.RemoveKeyFieldCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editKey(ctx, tx, cmd.KeyID, func(s *domain.DataSchema) error {
			return s.RemoveKeyField(cmd.KeyID, cmd.KeyFieldID)
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.KeyFieldID, changed(domain.KindKeyField, cmd.KeyFieldID, cmd.KeyID, domain.ChangeDeleted)), nil
}

// ReorderKeyFields assigns dense orders from a full permutation of the key's field ids.
func (h *Handlers) ReorderKeyFields(ctx context.Context, cmd *command.ReorderKeyFieldsCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return editKey(ctx, tx, cmd.KeyID, func(s *domain.DataSchema) error {
			return s.ReorderKeyFields(cmd.KeyID, cmd.IDsInOrder)
		})
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.KeyID, changed(domain.KindKeyDefinition, cmd.KeyID, "", domain.ChangeUpdated)), nil
}
