package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

// RedisManager consumes submission configs from a Redis list and publishes
// results to another. Failed messages go to a dead-letter list so they are
// never silently dropped.
type RedisManager struct {
	Client       *redis.Client
	InputQueue   string
	OutputQueue  string
	FailedQueue  string
	BlockTimeout time.Duration
	WorkerID     string
	Prefix       string
}

func NewRedisManager(client *redis.Client, inputQueue, outputQueue, workerID, prefix string) *RedisManager {
	return &RedisManager{
		Client:       client,
		InputQueue:   inputQueue,
		OutputQueue:  outputQueue,
		FailedQueue:  inputQueue + ":failed",
		BlockTimeout: 20 * time.Second,
		WorkerID:     workerID,
		Prefix:       prefix,
	}
}

// Receive pops the next submission config with BLPop. Messages on a plain
// list carry no envelope, so an identifier is minted for tracking.
func (m *RedisManager) Receive(ctx context.Context) ([]Message, error) {
	result, err := m.Client.BLPop(ctx, m.BlockTimeout, m.key(m.InputQueue)).Result()
	if err == redis.Nil {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	// result[0] is the queue key, result[1] the payload.
	return []Message{{ID: uuid.NewString(), Body: result[1]}}, nil
}

// SendResult pushes the processing outcome onto the output list as JSON.
func (m *RedisManager) SendResult(ctx context.Context, result *oprlm.ProcessingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return m.Client.RPush(ctx, m.key(m.OutputQueue), data).Err()
}

// Ack is a no-op: BLPop already removed the message.
func (m *RedisManager) Ack(ctx context.Context, msg Message) error {
	return nil
}

// Fail moves the message body to the dead-letter list.
func (m *RedisManager) Fail(ctx context.Context, msg Message, reason string) error {
	log.Printf("Submission %s failed: %s", msg.ID, reason)
	entry, err := json.Marshal(struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
		Body   string `json:"body"`
		Worker string `json:"worker"`
	}{msg.ID, reason, msg.Body, m.WorkerID})
	if err != nil {
		return err
	}
	return m.Client.RPush(ctx, m.key(m.FailedQueue), entry).Err()
}

func (m *RedisManager) key(name string) string {
	if m.Prefix == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", m.Prefix, name)
}
