// Package messaging defines the events published by the service and how they are sent.
package messaging

import (
	"context"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Identified is implemented by events that carry a stable id. Brokers that
// support it use the id to drop duplicate publishes.
type Identified interface {
	MessageID() string
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
