// Package queue_publisher provides functions to publish reminder
// dispatch jobs to RabbitMQ. Errors are logged and returned so callers
// can ignore failures without interrupting the scheduler tick.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/notification"
	q "github.com/iliyamo/competition-livestream/internal/queue"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// PublishReminderDispatch publishes a ReminderDispatchEvent to the
// notification.dispatch queue. The function never panics; any error is
// logged and returned so the caller can choose to ignore it. Messages
// are marked persistent so reminders survive a broker restart.
func PublishReminderDispatch(ctx context.Context, url string, event q.ReminderDispatchEvent, log *zap.Logger) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.DispatchQueueName, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		q.DispatchQueueName, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		pub,
	); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}

	return nil
}

// QueueNotifier adapts the publisher to the scheduler's Notifier
// interface: each matched passage becomes one durable dispatch job and
// the consumer resolves subscribers when it picks the job up.
type QueueNotifier struct {
	URL string
	Log *zap.Logger
}

// NotifyReminder implements scheduler.Notifier.
func (n QueueNotifier) NotifyReminder(ctx context.Context, p repository.PassageDetail, subs []model.Subscription, minutesBefore int) {
	payload := notification.ReminderPayload(p.GroupName, p.ApparatusName, minutesBefore)
	_ = PublishReminderDispatch(ctx, n.URL, q.ReminderDispatchEvent{
		PassageID:     p.ID,
		GroupName:     p.GroupName,
		ApparatusName: p.ApparatusName,
		MinutesBefore: minutesBefore,
		Title:         payload.Title,
		Body:          payload.Body,
		Icon:          payload.Icon,
		URL:           payload.URL,
	}, n.Log)
}
