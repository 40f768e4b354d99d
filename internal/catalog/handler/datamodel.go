package handler

import (
	"context"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/log"
)

// CreateDataModel creates a data model and returns its id.
func (h *Handlers) CreateDataModel(ctx context.Context, cmd *command.CreateDataModelCommand) (*command.CommandResult, error) {
	model, err := domain.NewDataModel(cmd.TenantID, cmd.Key, cmd.Name, cmd.Description)
	if err != nil {
		return nil, err
	}
	err = h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		return tx.DataModels().Save(ctx, model)
	})
	if err != nil {
		return nil, err
	}
	log.Info(log.CatCommands, "Created data model", "id", model.ID(), "tenant", model.TenantID(), "key", model.Key())
	return SuccessWithEvents(model.ID(), changed(domain.KindDataModel, model.ID(), "", domain.ChangeCreated)), nil
}

// UpdateDataModel renames or re-describes a data model.
func (h *Handlers) UpdateDataModel(ctx context.Context, cmd *command.UpdateDataModelCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		model, err := tx.DataModels().Get(ctx, cmd.DataModelID)
		if err != nil {
			return err
		}
		if err := model.Update(cmd.Name, cmd.Description); err != nil {
			return err
		}
		return tx.DataModels().Save(ctx, model)
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.DataModelID, changed(domain.KindDataModel, cmd.DataModelID, "", domain.ChangeUpdated)), nil
}

// DeleteDataModel removes a data model no schema is attached to.
func (h *Handlers) DeleteDataModel(ctx context.Context, cmd *command.DeleteDataModelCommand) (*command.CommandResult, error) {
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		if _, err := tx.DataModels().Get(ctx, cmd.DataModelID); err != nil {
			return err
		}
		attached, err := tx.Schemas().ListByDataModel(ctx, cmd.DataModelID)
		if err != nil {
			return err
		}
		if len(attached) > 0 {
			return domain.InUse("data model %s has %d attached schema(s)", cmd.DataModelID, len(attached))
		}
		return tx.DataModels().Delete(ctx, cmd.DataModelID)
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(cmd.DataModelID, changed(domain.KindDataModel, cmd.DataModelID, "", domain.ChangeDeleted)), nil
}
