package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// notificationQueueKey is the Redis list backing the delivery buffer.
const notificationQueueKey = "cphub:notifications:queue"

// ErrQueueEmpty is returned by Dequeue when no notification is waiting.
var ErrQueueEmpty = errors.New("notification queue is empty")

// QueuedNotification is one buffered delivery.
type QueuedNotification struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationQueue buffers outgoing notifications in a Redis list. Sync runs
// enqueue fire-and-forget; a delivery loop drains the queue independently, so
// a slow or failing transport never slows a sync down.
type NotificationQueue struct {
	client *redis.Client
}

// NewNotificationQueue creates a NotificationQueue.
func NewNotificationQueue(client *redis.Client) *NotificationQueue {
	return &NotificationQueue{client: client}
}

// Enqueue appends a notification to the buffer.
func (q *NotificationQueue) Enqueue(ctx context.Context, n QueuedNotification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := q.client.LPush(ctx, notificationQueueKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Dequeue pops the oldest notification, blocking up to the timeout.
// Returns ErrQueueEmpty when the timeout passes with nothing to deliver.
func (q *NotificationQueue) Dequeue(ctx context.Context, timeout time.Duration) (*QueuedNotification, error) {
	res, err := q.client.BRPop(ctx, timeout, notificationQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue notification: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("dequeue notification: unexpected reply of %d elements", len(res))
	}

	var n QueuedNotification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return nil, fmt.Errorf("unmarshal notification: %w", err)
	}
	return &n, nil
}

// Len returns the number of buffered notifications.
func (q *NotificationQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, notificationQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
