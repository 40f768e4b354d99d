// Package dispatcher routes catalog commands to their handlers through a
// middleware chain and publishes the resulting domain events once the
// handler's transaction has committed.
package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/log"
	"github.com/zjrosen/specforge/internal/pubsub"
)

// ErrUnknownCommandType is returned when no handler is registered for a command type.
var ErrUnknownCommandType = errors.New("unknown command type")

// CommandHandler executes one command type.
type CommandHandler interface {
	Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error)
}

// HandlerFunc adapts a function to CommandHandler.
type HandlerFunc func(ctx context.Context, cmd command.Command) (*command.CommandResult, error)

// Handle calls f(ctx, cmd).
func (f HandlerFunc) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	return f(ctx, cmd)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEventBus sets the broker events are published to.
func WithEventBus(bus *pubsub.Broker[any]) Option {
	return func(d *Dispatcher) {
		d.eventBus = bus
	}
}

// WithMiddleware appends middlewares. They wrap handlers registered afterwards.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middlewares = append(d.middlewares, middlewares...)
	}
}

// Dispatcher executes commands synchronously on the caller's goroutine.
// Registration must complete before the first Execute.
type Dispatcher struct {
	handlers    map[command.CommandType]CommandHandler
	middlewares []Middleware
	eventBus    *pubsub.Broker[any]

	processedCount atomic.Int64
	errorCount     atomic.Int64
}

// New creates a Dispatcher with no handlers.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[command.CommandType]CommandHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds a handler, wrapped in the configured middleware, to cmdType.
func (d *Dispatcher) Register(cmdType command.CommandType, handler CommandHandler) {
	d.handlers[cmdType] = ChainMiddleware(handler, d.middlewares...)
}

// Handles reports whether a handler is registered for cmdType.
func (d *Dispatcher) Handles(cmdType command.CommandType) bool {
	_, ok := d.handlers[cmdType]
	return ok
}

// Execute validates cmd, runs its handler and publishes the result's events.
// A non-nil error is always returned for failures, including results whose
// Success is false. Events on a failed result describe work committed before
// the failure and are published too.
func (d *Dispatcher) Execute(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	d.processedCount.Add(1)

	if err := cmd.Validate(); err != nil {
		return d.fail(cmd, err)
	}

	handler, ok := d.handlers[cmd.Type()]
	if !ok {
		return d.fail(cmd, ErrUnknownCommandType)
	}

	result, err := handler.Handle(ctx, cmd)
	if err != nil {
		return d.fail(cmd, err)
	}
	if result == nil {
		result = &command.CommandResult{Success: true}
	}
	if !result.Success {
		err := result.Error
		if err == nil {
			err = errors.New("command failed without an error")
		}
		d.errorCount.Add(1)
		d.emitEvents(result.Events)
		d.emitErrorEvent(cmd, err)
		return result, err
	}

	d.emitEvents(result.Events)
	return result, nil
}

// ProcessedCount returns the number of commands executed.
func (d *Dispatcher) ProcessedCount() int64 {
	return d.processedCount.Load()
}

// ErrorCount returns the number of commands that failed.
func (d *Dispatcher) ErrorCount() int64 {
	return d.errorCount.Load()
}

func (d *Dispatcher) fail(cmd command.Command, err error) (*command.CommandResult, error) {
	d.errorCount.Add(1)
	d.emitErrorEvent(cmd, err)
	return &command.CommandResult{Success: false, Error: err}, err
}

// emitEvents publishes events to the event bus.
func (d *Dispatcher) emitEvents(events []any) {
	if d.eventBus == nil {
		return
	}
	for _, event := range events {
		d.eventBus.Publish(eventTypeOf(event), event)
	}
}

// emitErrorEvent publishes an error event for command failures.
func (d *Dispatcher) emitErrorEvent(cmd command.Command, err error) {
	if d.eventBus == nil {
		return
	}
	d.eventBus.Publish(pubsub.UpdatedEvent, CommandErrorEvent{
		CommandID:   cmd.ID(),
		CommandType: cmd.Type(),
		Error:       err,
		Timestamp:   time.Now(),
	})
}

// eventTypeOf maps a domain event to the broker's event type.
func eventTypeOf(event any) pubsub.EventType {
	switch e := event.(type) {
	case domain.EntityChanged:
		switch e.Change {
		case domain.ChangeCreated:
			return pubsub.CreatedEvent
		case domain.ChangeDeleted:
			return pubsub.DeletedEvent
		default:
			return pubsub.UpdatedEvent
		}
	case domain.VersionPublished:
		return pubsub.PublishedEvent
	case domain.VersionArchived:
		return pubsub.ArchivedEvent
	default:
		log.Debug(log.CatCommands, "publishing untyped event", "event", e)
		return pubsub.UpdatedEvent
	}
}
