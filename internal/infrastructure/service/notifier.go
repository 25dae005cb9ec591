// Package service contains small infrastructure services that back the
// application layer's outbound ports.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cphub/cp-training-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEUE NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// QueueNotifier implements the sync engine's Notifier port by buffering
// messages in the Redis notification queue. Delivery happens out of band, so
// a sync run never waits on a transport.
type QueueNotifier struct {
	queue  *redis.NotificationQueue
	logger *slog.Logger
}

// NewQueueNotifier creates a QueueNotifier.
func NewQueueNotifier(queue *redis.NotificationQueue, logger *slog.Logger) *QueueNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueNotifier{
		queue:  queue,
		logger: logger.With("component", "notifier"),
	}
}

// Notify buffers one message for the subject.
func (n *QueueNotifier) Notify(ctx context.Context, subjectID, message string) error {
	return n.queue.Enqueue(ctx, redis.QueuedNotification{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY LOOP
// ══════════════════════════════════════════════════════════════════════════════

// Sender delivers one notification to its final transport.
type Sender interface {
	Send(ctx context.Context, n redis.QueuedNotification) error
}

// LogSender writes notifications to the structured log. It is the default
// transport until a real channel (email, chat bot) is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, n redis.QueuedNotification) error {
	s.logger.Info("notification",
		"id", n.ID, "subject_id", n.SubjectID, "message", n.Message)
	return nil
}

// DeliveryLoop drains the notification queue and hands each message to the
// sender. Failed deliveries are logged and dropped; the queue is a buffer,
// not a durable outbox.
type DeliveryLoop struct {
	queue       *redis.NotificationQueue
	sender      Sender
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewDeliveryLoop creates a DeliveryLoop.
func NewDeliveryLoop(queue *redis.NotificationQueue, sender Sender, logger *slog.Logger) *DeliveryLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryLoop{
		queue:       queue,
		sender:      sender,
		logger:      logger.With("component", "delivery"),
		pollTimeout: 5 * time.Second,
	}
}

// Run blocks draining the queue until the context is cancelled.
func (d *DeliveryLoop) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := d.queue.Dequeue(ctx, d.pollTimeout)
		if errors.Is(err, redis.ErrQueueEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("dequeue failed", "error", err)
			// Back off so a broken connection does not spin the loop.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if err := d.sender.Send(ctx, *n); err != nil {
			d.logger.Warn("delivery failed", "id", n.ID, "subject_id", n.SubjectID, "error", err)
		}
	}
}
