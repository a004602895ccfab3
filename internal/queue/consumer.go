package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/notification"
)

// SubscriberResolver looks up the subscriptions that favorited a
// passage at consume time.
type SubscriberResolver interface {
	ListByFavorite(ctx context.Context, passageID string) ([]model.Subscription, error)
}

// StartDispatchConsumer connects to RabbitMQ, declares the durable
// notification.dispatch queue and consumes reminder jobs, fanning each
// one out through the dispatcher. It runs a reconnect loop with
// exponential backoff and keeps running until the context is
// cancelled; a message that cannot be processed is rejected without
// requeue so a poison message never loops.
func StartDispatchConsumer(ctx context.Context, url string, subs SubscriberResolver, dispatcher *notification.Dispatcher, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dispatch-consumer: dial broker failed",
				zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, subs, dispatcher, log); err != nil {
			log.Warn("dispatch-consumer: consume loop ended, reconnecting", zap.Error(err))
		}
		_ = conn.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, subs SubscriberResolver, dispatcher *notification.Dispatcher, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Warn("dispatch-consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(DispatchQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(DispatchQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, d.Body, subs, dispatcher); err != nil {
				log.Warn("dispatch-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(ctx context.Context, body []byte, subs SubscriberResolver, dispatcher *notification.Dispatcher) error {
	var ev ReminderDispatchEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	recipients, err := subs.ListByFavorite(ctx, ev.PassageID)
	if err != nil {
		return fmt.Errorf("resolve subscribers: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}
	dispatcher.Fan(ctx, recipients, notification.Payload{
		Title: ev.Title,
		Body:  ev.Body,
		Icon:  ev.Icon,
		URL:   ev.URL,
	})
	return nil
}
