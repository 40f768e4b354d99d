package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/dispatcher"
)

// NewTracingMiddleware opens one span per dispatched command, tags it with
// the command's identity and records the outcome. A nil tracer yields a
// pass-through middleware.
func NewTracingMiddleware(tracer trace.Tracer) dispatcher.Middleware {
	if tracer == nil {
		return func(next dispatcher.CommandHandler) dispatcher.CommandHandler {
			return next
		}
	}

	return func(next dispatcher.CommandHandler) dispatcher.CommandHandler {
		return dispatcher.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			ctx = restoreSpanContext(ctx, cmd)

			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s%s", SpanPrefixCommand, cmd.Type()),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String(AttrCommandID, cmd.ID()),
				attribute.String(AttrCommandType, string(cmd.Type())),
			)
			if hasSource, ok := cmd.(interface{ Source() command.CommandSource }); ok {
				span.SetAttributes(attribute.String(AttrCommandSource, string(hasSource.Source())))
			}

			// Log lines written by the handler carry the span's trace id.
			if setter, ok := cmd.(interface{ SetSpanContext(trace.SpanContext) }); ok {
				setter.SetSpanContext(span.SpanContext())
			}

			result, err := next.Handle(ctx, cmd)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result != nil && !result.Success:
				if result.Error != nil {
					span.RecordError(result.Error)
					span.SetStatus(codes.Error, result.Error.Error())
				} else {
					span.SetStatus(codes.Error, "command failed without error details")
				}
			default:
				span.SetStatus(codes.Ok, "")
			}
			return result, err
		})
	}
}

// restoreSpanContext parents the command span under a span context the
// command already carries, e.g. one set by a plan apply run.
func restoreSpanContext(ctx context.Context, cmd command.Command) context.Context {
	if hasSpanContext, ok := cmd.(interface{ SpanContext() trace.SpanContext }); ok {
		if sc := hasSpanContext.SpanContext(); sc.IsValid() {
			return trace.ContextWithRemoteSpanContext(ctx, sc)
		}
	}
	return ctx
}

func spanContextFrom(ctx context.Context) trace.SpanContext {
	return trace.SpanContextFromContext(ctx)
}
