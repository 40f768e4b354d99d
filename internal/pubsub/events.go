// Package pubsub provides the in-process event bus used to fan catalog
// events out to subscribers such as the CLI watch loop and tests.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"

	// PublishedEvent is emitted when a versioned entity moves Draft -> Published.
	PublishedEvent EventType = "published"
	// ArchivedEvent is emitted for each sibling superseded by a publish.
	ArchivedEvent EventType = "archived"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T) int
}
