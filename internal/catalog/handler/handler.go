// Package handler implements the catalog's command handlers.
//
// Every mutating handler runs inside one unit-of-work transaction and
// returns the domain events describing what it committed; the dispatcher
// publishes them once the handler returns. Queries read through the
// non-transactional store.
package handler

import (
	"context"
	"fmt"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/compiler"
	"github.com/zjrosen/specforge/internal/catalog/dispatcher"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/lifecycle"
	"github.com/zjrosen/specforge/internal/catalog/validator"
)

// Database is the persistence surface the handlers need.
type Database interface {
	domain.UnitOfWork
	Store() domain.Store
}

// Handlers holds the collaborators shared by every catalog handler.
type Handlers struct {
	db                  Database
	validator           validator.Validator
	lifecycle           *lifecycle.Manager
	compiler            *compiler.Compiler
	rejectElementCycles bool
}

// Option configures Handlers.
type Option func(*Handlers)

// WithCompiler replaces the default compiler.
func WithCompiler(c *compiler.Compiler) Option {
	return func(h *Handlers) {
		if c != nil {
			h.compiler = c
		}
	}
}

// WithLifecycle replaces the default lifecycle manager.
func WithLifecycle(m *lifecycle.Manager) Option {
	return func(h *Handlers) {
		if m != nil {
			h.lifecycle = m
		}
	}
}

// WithRejectElementCycles makes AddField and UpdateField fail when the new
// element schema closes a cycle. By default the cycle is only logged.
func WithRejectElementCycles(reject bool) Option {
	return func(h *Handlers) {
		h.rejectElementCycles = reject
	}
}

// New creates Handlers over db, consulting v before every publish.
func New(db Database, v validator.Validator, opts ...Option) *Handlers {
	h := &Handlers{
		db:        db,
		validator: v,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.lifecycle == nil {
		h.lifecycle = lifecycle.New(v)
	}
	if h.compiler == nil {
		h.compiler = compiler.New(compiler.Config{})
	}
	return h
}

// Register binds every catalog command type to its handler.
func (h *Handlers) Register(d *dispatcher.Dispatcher) {
	// Data models
	d.Register(command.CmdCreateDataModel, handle(h.CreateDataModel))
	d.Register(command.CmdUpdateDataModel, handle(h.UpdateDataModel))
	d.Register(command.CmdDeleteDataModel, handle(h.DeleteDataModel))

	// Schemas
	d.Register(command.CmdCreateSchema, handle(h.CreateSchema))
	d.Register(command.CmdUpdateSchema, handle(h.UpdateSchema))
	d.Register(command.CmdAddField, handle(h.AddField))
	d.Register(command.CmdUpdateField, handle(h.UpdateField))
	d.Register(command.CmdRemoveField, handle(h.RemoveField))
	d.Register(command.CmdAddSchemaTag, handle(h.AddSchemaTag))
	d.Register(command.CmdRemoveSchemaTag, handle(h.RemoveSchemaTag))
	d.Register(command.CmdAddKeyDefinition, handle(h.AddKeyDefinition))
	d.Register(command.CmdRemoveKeyDefinition, handle(h.RemoveKeyDefinition))
	d.Register(command.CmdAddKeyField, handle(h.AddKeyField))
	d.Register(command.CmdRemoveKeyField, handle(h.RemoveKeyField))
	d.Register(command.CmdReorderKeyFields, handle(h.ReorderKeyFields))
	d.Register(command.CmdDeleteSchemaVersion, handle(h.DeleteSchemaVersion))
	d.Register(command.CmdDeleteSchemaKey, handle(h.DeleteSchemaKey))
	d.Register(command.CmdPublishSchema, handle(h.PublishSchema))
	d.Register(command.CmdPublishRelatedSchemas, handle(h.PublishRelatedSchemas))

	// Transformations
	d.Register(command.CmdCreateTransformation, handle(h.CreateTransformation))
	d.Register(command.CmdUpdateTransformation, handle(h.UpdateTransformation))
	d.Register(command.CmdAddSimpleRule, handle(h.AddSimpleRule))
	d.Register(command.CmdUpdateSimpleRule, handle(h.UpdateSimpleRule))
	d.Register(command.CmdAddGraphNode, handle(h.AddGraphNode))
	d.Register(command.CmdUpdateGraphNode, handle(h.UpdateGraphNode))
	d.Register(command.CmdAddGraphEdge, handle(h.AddGraphEdge))
	d.Register(command.CmdAddOutputBinding, handle(h.AddOutputBinding))
	d.Register(command.CmdAddTransformReference, handle(h.AddTransformReference))
	d.Register(command.CmdRemoveSimpleRule, handle(h.RemoveTransformationChild))
	d.Register(command.CmdRemoveGraphNode, handle(h.RemoveTransformationChild))
	d.Register(command.CmdRemoveGraphEdge, handle(h.RemoveTransformationChild))
	d.Register(command.CmdRemoveOutputBinding, handle(h.RemoveTransformationChild))
	d.Register(command.CmdRemoveTransformRef, handle(h.RemoveTransformationChild))
	d.Register(command.CmdDeleteTransformation, handle(h.DeleteTransformation))
	d.Register(command.CmdPublishTransformation, handle(h.PublishTransformation))

	// Validations
	d.Register(command.CmdCreateValidation, handle(h.CreateValidation))
	d.Register(command.CmdUpdateValidation, handle(h.UpdateValidation))
	d.Register(command.CmdAddValidationRule, handle(h.AddValidationRule))
	d.Register(command.CmdUpdateValidationRule, handle(h.UpdateValidationRule))
	d.Register(command.CmdAddValidationReference, handle(h.AddValidationReference))
	d.Register(command.CmdRemoveValidationRule, handle(h.RemoveValidationChild))
	d.Register(command.CmdRemoveValidationReference, handle(h.RemoveValidationChild))
	d.Register(command.CmdDeleteValidation, handle(h.DeleteValidation))
	d.Register(command.CmdPublishValidation, handle(h.PublishValidation))

	// Queries
	d.Register(command.CmdGetDataModel, handle(h.Get))
	d.Register(command.CmdFindDataModel, handle(h.FindDataModel))
	d.Register(command.CmdGetSchema, handle(h.Get))
	d.Register(command.CmdGetTransformation, handle(h.Get))
	d.Register(command.CmdGetValidation, handle(h.Get))
	d.Register(command.CmdListSchemaVersions, handle(h.ListSchemaVersions))
	d.Register(command.CmdListTransformationVersions, handle(h.ListTransformationVersions))
	d.Register(command.CmdListValidationVersions, handle(h.ListValidationVersions))
	d.Register(command.CmdValidateEntity, handle(h.ValidateEntity))
	d.Register(command.CmdCompileTransformation, handle(h.CompileTransformation))
}

// handle adapts a typed handler method to dispatcher.CommandHandler.
func handle[C command.Command](fn func(context.Context, C) (*command.CommandResult, error)) dispatcher.HandlerFunc {
	return func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("handler for %s cannot handle %T", cmd.Type(), cmd)
		}
		return fn(ctx, typed)
	}
}

// SuccessResult wraps data in a successful result.
func SuccessResult(data any) *command.CommandResult {
	return &command.CommandResult{Success: true, Data: data}
}

// SuccessWithEvents wraps data and the events to publish after commit.
func SuccessWithEvents(data any, events ...any) *command.CommandResult {
	return &command.CommandResult{Success: true, Data: data, Events: events}
}

func changed(kind domain.EntityKind, id, parentID string, change domain.ChangeType) domain.EntityChanged {
	return domain.EntityChanged{Kind: kind, ID: id, ParentID: parentID, Change: change}
}

// requireLatest fails unless version is the highest in its group.
func requireLatest(kind domain.EntityKind, id string, version, maxVersion int) error {
	if version != maxVersion {
		return domain.InvalidArgument("cannot delete %s %s: version %d is not the latest (%d)", kind, id, version, maxVersion)
	}
	return nil
}

// requirePublishedChild resolves a child spec status for a new reference.
func requirePublishedChild(kind domain.EntityKind, childID string, status domain.Status, err error) error {
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.InvalidReference("child %s %s does not exist", kind, childID)
		}
		return err
	}
	if status != domain.StatusPublished {
		return &domain.StatusError{Kind: kind, ID: childID, Op: "reference", Status: status, Want: domain.StatusPublished}
	}
	return nil
}

// without drops exclude from ids.
func without(ids []string, exclude func(string) bool) []string {
	var out []string
	for _, id := range ids {
		if !exclude(id) {
			out = append(out, id)
		}
	}
	return out
}
