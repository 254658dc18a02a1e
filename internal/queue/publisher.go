package queue

import (
	"context"
	"fmt"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// Publisher enqueues inbound events for asynchronous processing.
type Publisher struct {
	queue  Client
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Client, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("queue: client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// Publish enqueues one inbound event.
func (p *Publisher) Publish(ctx context.Context, evt messenger.InboundEvent) error {
	if ctx == nil {
		ctx = context.Background()
	}

	id, body, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("queue: failed to enqueue event: %w", err)
	}

	p.logger.Debug("inbound event enqueued", "payload_id", id, "kind", evt.Kind, "sender_id", evt.SenderID)
	return nil
}
