package dispatcher

import (
	"context"
	"time"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/log"
	"github.com/zjrosen/specforge/internal/pubsub"
)

// Middleware wraps a CommandHandler to add additional behavior.
type Middleware func(CommandHandler) CommandHandler

// ChainMiddleware applies middlewares so that the first in the list is the
// outermost wrapper: ChainMiddleware(h, a, b) yields a(b(h)).
func ChainMiddleware(handler CommandHandler, middlewares ...Middleware) CommandHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func traceIDOf(cmd command.Command) string {
	if hasTraceID, ok := cmd.(interface{ TraceID() string }); ok {
		return hasTraceID.TraceID()
	}
	return ""
}

func sourceOf(cmd command.Command) command.CommandSource {
	if hasSource, ok := cmd.(interface{ Source() command.CommandSource }); ok {
		return hasSource.Source()
	}
	return ""
}

// ===========================================================================
// Logging Middleware
// ===========================================================================

// NewLoggingMiddleware creates a middleware that logs command execution.
func NewLoggingMiddleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			duration := time.Since(start)

			fields := []any{
				"command_id", cmd.ID(),
				"command_type", cmd.Type().String(),
				"trace_id", traceIDOf(cmd),
				"duration", duration,
				"source", string(sourceOf(cmd)),
			}
			switch {
			case err != nil:
				log.Error(log.CatCommands, "command failed", append(fields, "error", err.Error())...)
			case result != nil && !result.Success:
				errMsg := ""
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				log.Warn(log.CatCommands, "command completed with error result", append(fields, "error", errMsg)...)
			default:
				log.Debug(log.CatCommands, "command completed", fields...)
			}
			return result, err
		})
	}
}

// ===========================================================================
// Command Log Middleware
// ===========================================================================

// EventPublisher is the subset of the broker the command log needs.
type EventPublisher interface {
	Publish(eventType pubsub.EventType, payload any) int
}

// NewCommandLogMiddleware publishes a CommandLogEvent for every command.
// A nil publisher makes the middleware a pass-through.
func NewCommandLogMiddleware(bus EventPublisher) Middleware {
	return func(next CommandHandler) CommandHandler {
		if bus == nil {
			return next
		}
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)

			event := CommandLogEvent{
				CommandID:   cmd.ID(),
				CommandType: cmd.Type(),
				Source:      sourceOf(cmd),
				Success:     err == nil && (result == nil || result.Success),
				Duration:    time.Since(start),
				Timestamp:   time.Now(),
				TraceID:     traceIDOf(cmd),
			}
			switch {
			case err != nil:
				event.Error = err
			case result != nil && !result.Success:
				event.Error = result.Error
			}
			bus.Publish(pubsub.UpdatedEvent, event)
			return result, err
		})
	}
}

// ===========================================================================
// Slow Handler Middleware
// ===========================================================================

// DefaultSlowThreshold is the default duration after which a handler is reported as slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// NewSlowHandlerMiddleware warns when a handler takes longer than threshold.
// A zero threshold uses DefaultSlowThreshold.
func NewSlowHandlerMiddleware(threshold time.Duration) Middleware {
	if threshold == 0 {
		threshold = DefaultSlowThreshold
	}
	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)

			if duration := time.Since(start); duration > threshold {
				log.Warn(log.CatCommands, "handler exceeded time threshold",
					"command_id", cmd.ID(),
					"command_type", cmd.Type().String(),
					"trace_id", traceIDOf(cmd),
					"duration", duration,
					"threshold", threshold,
				)
			}
			return result, err
		})
	}
}
