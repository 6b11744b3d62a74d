// Package queue provides the submission-queue backends for queue-driven
// batch mode: configurations arrive as messages, processing results go back
// out on a result queue.
package queue

import (
	"context"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

// Message is one queued submission: a request configuration in the YAML
// config format.
type Message struct {
	ID   string
	Body string

	// ReceiptHandle is set by backends that need an explicit ack (SQS).
	ReceiptHandle string
}

// Manager abstracts the queue backend the batch worker consumes from.
type Manager interface {
	// Receive blocks (bounded by the backend's wait time) for the next
	// batch of submission messages. An empty slice means nothing arrived.
	Receive(ctx context.Context) ([]Message, error)

	// SendResult publishes a processing outcome to the result queue.
	SendResult(ctx context.Context, result *oprlm.ProcessingResult) error

	// Ack removes a successfully handled message from the input queue.
	Ack(ctx context.Context, msg Message) error

	// Fail records a message that could not be handled.
	Fail(ctx context.Context, msg Message, reason string) error
}
