// Package queue decouples webhook ingestion from pipeline processing: the
// webhook handler must answer the platform within seconds, so parsed events
// are enqueued and a worker pool drives the conversation pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
)

// Client is the transport the queue rides on. SQS in production, an in-memory
// channel for development and tests.
type Client interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is one raw queue message.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type eventPayload struct {
	ID    string                 `json:"id"`
	Event messenger.InboundEvent `json:"event"`
}

func encodeEvent(evt messenger.InboundEvent) (string, string, error) {
	payload := eventPayload{
		ID:    uuid.NewString(),
		Event: evt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("queue: failed to encode event: %w", err)
	}
	return payload.ID, string(body), nil
}

func decodeEvent(body string) (eventPayload, error) {
	var payload eventPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return eventPayload{}, fmt.Errorf("queue: failed to decode event: %w", err)
	}
	return payload, nil
}
