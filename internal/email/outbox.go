package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/storefront-users/internal/logging"
)

// Outbox queues messages on a redis list for the Worker to deliver
type Outbox struct {
	client *redis.Client
	key    string
}

func NewOutbox(client *redis.Client, key string) *Outbox {
	return &Outbox{client: client, key: key}
}

// Send enqueues msg; delivery happens later in the Worker
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := o.client.LPush(ctx, o.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	return nil
}

// Len reports the number of queued messages
func (o *Outbox) Len(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, o.key).Result()
}

// Worker drains the outbox into a Sender. Failed deliveries are logged and dropped.
type Worker struct {
	client      *redis.Client
	key         string
	sender      Sender
	logger      *logging.Logger
	pollTimeout time.Duration
}

func NewWorker(client *redis.Client, key string, sender Sender, logger *logging.Logger) *Worker {
	return &Worker{
		client:      client,
		key:         key,
		sender:      sender,
		logger:      logger,
		pollTimeout: 5 * time.Second,
	}
}

// Run delivers queued messages until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("email worker started", "key", w.key)

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("email worker stopped")
			return nil
		}

		result, err := w.client.BRPop(ctx, w.pollTimeout, w.key).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				w.logger.Error("failed to read email outbox", "error", err)
				sleepCtx(ctx, time.Second)
			}
			continue
		}

		// BRPOP returns [key, value]
		if len(result) != 2 {
			continue
		}

		w.deliver(ctx, result[1])
	}
}

func (w *Worker) deliver(ctx context.Context, payload string) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		w.logger.Error("dropping malformed outbox entry", "error", err)
		return
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.logger.Warn("failed to deliver email", "subject", msg.Subject, "error", err)
		return
	}

	w.logger.Debug("email delivered", "subject", msg.Subject)
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
