package handler

import (
	"context"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/validator"
)

// Get loads one entity. Data is the *domain.DataModel, *domain.DataSchema,
// *domain.TransformationSpec or *domain.ValidationSpec, by command type.
func (h *Handlers) Get(ctx context.Context, cmd *command.GetCommand) (*command.CommandResult, error) {
	store := h.db.Store()
	var (
		entity any
		err    error
	)
	switch cmd.Type() {
	case command.CmdGetDataModel:
		entity, err = store.DataModels().Get(ctx, cmd.EntityID)
	case command.CmdGetSchema:
		entity, err = store.Schemas().Get(ctx, cmd.EntityID)
	case command.CmdGetTransformation:
		entity, err = store.Transformations().Get(ctx, cmd.EntityID)
	case command.CmdGetValidation:
		entity, err = store.Validations().Get(ctx, cmd.EntityID)
	default:
		return nil, fmt.Errorf("unexpected command type %s for get", cmd.Type())
	}
	if err != nil {
		return nil, err
	}
	return SuccessResult(entity), nil
}

// FindDataModel loads a data model by key. Data is the *domain.DataModel.
func (h *Handlers) FindDataModel(ctx context.Context, cmd *command.FindDataModelCommand) (*command.CommandResult, error) {
	model, err := h.db.Store().DataModels().FindByKey(ctx, cmd.TenantID, cmd.Key)
	if err != nil {
		return nil, err
	}
	return SuccessResult(model), nil
}

// ListSchemaVersions returns every version of a schema group, oldest first.
func (h *Handlers) ListSchemaVersions(ctx context.Context, cmd *command.ListSchemaVersionsCommand) (*command.CommandResult, error) {
	versions, err := h.db.Store().Schemas().ListVersions(ctx, cmd.Group)
	if err != nil {
		return nil, err
	}
	return SuccessResult(versions), nil
}

// ListTransformationVersions returns every version of a (source, target) group.
func (h *Handlers) ListTransformationVersions(ctx context.Context, cmd *command.ListTransformationVersionsCommand) (*command.CommandResult, error) {
	versions, err := h.db.Store().Transformations().ListVersions(ctx, cmd.Group)
	if err != nil {
		return nil, err
	}
	return SuccessResult(versions), nil
}

// ListValidationVersions returns every validation spec over a data schema.
func (h *Handlers) ListValidationVersions(ctx context.Context, cmd *command.ListValidationVersionsCommand) (*command.CommandResult, error) {
	versions, err := h.db.Store().Validations().ListVersions(ctx, cmd.DataSchemaID)
	if err != nil {
		return nil, err
	}
	return SuccessResult(versions), nil
}

// ValidateEntity runs the static validator. Data is the validator.Result;
// an invalid entity is still a successful query.
func (h *Handlers) ValidateEntity(ctx context.Context, cmd *command.ValidateEntityCommand) (*command.CommandResult, error) {
	store := h.db.Store()
	var (
		res validator.Result
		err error
	)
	switch cmd.Kind {
	case domain.KindSchema:
		res, err = h.validator.ValidateSchema(ctx, store, cmd.EntityID, cmd.ForPublish)
	case domain.KindTransformation:
		res, err = h.validator.ValidateTransformation(ctx, store, cmd.EntityID, cmd.ForPublish)
	case domain.KindValidation:
		res, err = h.validator.ValidateValidationSpec(ctx, store, cmd.EntityID, cmd.ForPublish)
	default:
		return nil, domain.InvalidArgument("cannot validate a %s", cmd.Kind)
	}
	if err != nil {
		return nil, err
	}
	return SuccessResult(res), nil
}

// CompileTransformation compiles a Published spec. Data is the
// *compiler.CompiledTransformationSpec.
func (h *Handlers) CompileTransformation(ctx context.Context, cmd *command.CompileTransformationCommand) (*command.CommandResult, error) {
	plan, err := h.compiler.Compile(ctx, h.db.Store(), cmd.SpecID)
	if err != nil {
		return nil, err
	}
	return SuccessResult(plan), nil
}
