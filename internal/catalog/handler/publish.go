package handler

import (
	"context"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/lifecycle"
)

// PublishResult is the Data of a single publish.
type PublishResult struct {
	ID          string
	Version     int
	ArchivedIDs []string
}

type publishFunc func(ctx context.Context, tx domain.Store, id, publishedBy string) (lifecycle.Transition, error)

func (h *Handlers) publish(ctx context.Context, id, publishedBy string, fn publishFunc) (*command.CommandResult, error) {
	var t lifecycle.Transition
	err := h.db.Do(ctx, func(ctx context.Context, tx domain.Store) error {
		var err error
		t, err = fn(ctx, tx, id, publishedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return SuccessWithEvents(&PublishResult{ID: t.ID, Version: t.Version, ArchivedIDs: t.ArchivedIDs}, t.Events()...), nil
}

// PublishSchema validates a Draft schema in publish-strict mode, archives
// the Published version of its group and publishes it.
func (h *Handlers) PublishSchema(ctx context.Context, cmd *command.PublishSchemaCommand) (*command.CommandResult, error) {
	return h.publish(ctx, cmd.SchemaID, cmd.PublishedBy, h.lifecycle.PublishSchema)
}

// PublishTransformation publishes a Draft transformation spec.
func (h *Handlers) PublishTransformation(ctx context.Context, cmd *command.SpecVersionCommand) (*command.CommandResult, error) {
	return h.publish(ctx, cmd.SpecID, cmd.PublishedBy, h.lifecycle.PublishTransformation)
}

// PublishValidation publishes a Draft validation spec.
func (h *Handlers) PublishValidation(ctx context.Context, cmd *command.SpecVersionCommand) (*command.CommandResult, error) {
	return h.publish(ctx, cmd.SpecID, cmd.PublishedBy, h.lifecycle.PublishValidation)
}

// PublishRelatedSchemas publishes the listed schemas in order, one
// transaction each. Data is the ids published. On failure the result is
// unsuccessful but still carries the ids and events of the publishes that
// committed before it.
func (h *Handlers) PublishRelatedSchemas(ctx context.Context, cmd *command.PublishRelatedSchemasCommand) (*command.CommandResult, error) {
	done, err := h.lifecycle.PublishRelatedSchemas(ctx, h.db, h.db.Store(), cmd.RootSchemaID, cmd.PublishedBy, cmd.RelatedSchemaIDs)

	published := make([]string, 0, len(done))
	var events []any
	for _, t := range done {
		published = append(published, t.ID)
		events = append(events, t.Events()...)
	}
	if err != nil {
		return &command.CommandResult{Success: false, Error: err, Data: published, Events: events}, nil
	}
	return SuccessWithEvents(published, events...), nil
}
