package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

// SQSManager consumes submission configs from an SQS queue. Messages stay
// invisible while a submission runs and are deleted only on Ack, so a
// crashed worker returns them to the queue.
type SQSManager struct {
	Client      *sqs.Client
	InputQueue  string
	OutputQueue string
}

func NewSQSManager(client *sqs.Client, inputQueue, outputQueue string) *SQSManager {
	return &SQSManager{
		Client:      client,
		InputQueue:  inputQueue,
		OutputQueue: outputQueue,
	}
}

// Receive long-polls for the next submission configs. The visibility
// timeout must cover a full browser workflow, so it is generous.
func (m *SQSManager) Receive(ctx context.Context) ([]Message, error) {
	output, err := m.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(m.InputQueue),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   3900, // a full job timeout plus slack
	})
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(output.Messages))
	for _, raw := range output.Messages {
		msg := Message{ID: uuid.NewString()}
		if raw.MessageId != nil {
			msg.ID = *raw.MessageId
		}
		if raw.Body != nil {
			msg.Body = *raw.Body
		}
		if raw.ReceiptHandle != nil {
			msg.ReceiptHandle = *raw.ReceiptHandle
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SendResult publishes the processing outcome to the output queue.
func (m *SQSManager) SendResult(ctx context.Context, result *oprlm.ProcessingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = m.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(m.OutputQueue),
		MessageBody: aws.String(string(data)),
	})
	if err != nil {
		return fmt.Errorf("sending result to output queue: %w", err)
	}
	return nil
}

// Ack deletes the handled message from the input queue.
func (m *SQSManager) Ack(ctx context.Context, msg Message) error {
	_, err := m.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(m.InputQueue),
		ReceiptHandle: aws.String(msg.ReceiptHandle),
	})
	return err
}

// Fail leaves the message in the queue for redelivery once its visibility
// timeout lapses.
func (m *SQSManager) Fail(ctx context.Context, msg Message, reason string) error {
	log.Printf("Submission %s failed, leaving for redelivery: %s", msg.ID, reason)
	return nil
}
