package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/gopos/internal/platform/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

// NatsPublisher publishes events to JetStream. Events implementing
// messaging.Identified are sent with a Nats-Msg-Id header, so a repeated
// publish inside the stream's duplicate window is stored once.
type NatsPublisher struct {
	js jetstream.JetStream
}

func NewNatsPublisher(js jetstream.JetStream) *NatsPublisher {
	return &NatsPublisher{js: js}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	var opts []jetstream.PublishOpt
	if identified, ok := event.(messaging.Identified); ok && identified.MessageID() != "" {
		opts = append(opts, jetstream.WithMsgID(identified.MessageID()))
	}
	if _, err := p.js.Publish(ctx, event.Subject(), data, opts...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", event.Subject(), err)
	}
	return nil
}

// Ping checks that JetStream answers on the connection.
func (p *NatsPublisher) Ping(ctx context.Context) error {
	if _, err := p.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("jetstream unavailable: %w", err)
	}
	return nil
}
