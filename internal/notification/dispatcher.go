package notification

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
	"github.com/iliyamo/competition-livestream/internal/repository"
)

// ErrEndpointGone is returned by channel senders when the endpoint is
// permanently invalid (HTTP 404/410 for Web Push, unregistered token
// for FCM). It is the one delivery error that is not transient: the
// subscription is deleted instead of retried.
var ErrEndpointGone = errors.New("endpoint permanently gone")

// ChannelSender delivers one payload to one subscription over a
// concrete transport.
type ChannelSender interface {
	Send(ctx context.Context, sub model.Subscription, payload Payload) error
}

// SubscriptionDeleter is the slice of the subscription repository the
// dispatcher needs for garbage collection.
type SubscriptionDeleter interface {
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Dispatcher routes a payload to the right channel per subscription
// and applies the failure policy: dead endpoints are deleted, every
// other error is logged and the subscription stays eligible for the
// next cycle. Delivery is fire and forget for the caller.
type Dispatcher struct {
	web  ChannelSender
	fcm  ChannelSender
	subs SubscriptionDeleter
	log  *zap.Logger
}

// NewDispatcher constructs a Dispatcher. Either sender may be nil when
// that channel is not configured; its subscriptions are then skipped.
func NewDispatcher(web, fcm ChannelSender, subs SubscriptionDeleter, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{web: web, fcm: fcm, subs: subs, log: log}
}

// Send delivers to one subscription and applies the failure policy.
func (d *Dispatcher) Send(ctx context.Context, sub model.Subscription, payload Payload) {
	var sender ChannelSender
	switch sub.Type {
	case model.ChannelWeb:
		sender = d.web
	case model.ChannelFCM:
		sender = d.fcm
	default:
		d.log.Warn("unknown subscription channel", zap.String("type", sub.Type))
		return
	}
	if sender == nil {
		return
	}
	err := sender.Send(ctx, sub, payload)
	if err == nil {
		return
	}
	if errors.Is(err, ErrEndpointGone) {
		d.log.Info("removing expired subscription",
			zap.String("type", sub.Type), zap.String("subscription", sub.ID))
		if derr := d.subs.DeleteByEndpoint(ctx, sub.Endpoint); derr != nil {
			d.log.Warn("delete expired subscription failed",
				zap.String("subscription", sub.ID), zap.Error(derr))
		}
		return
	}
	// Transient: keep the subscription for the next cycle.
	d.log.Warn("push delivery failed",
		zap.String("type", sub.Type), zap.String("subscription", sub.ID), zap.Error(err))
}

// Fan delivers one payload to many subscriptions in parallel and
// returns once every attempt completed.
func (d *Dispatcher) Fan(ctx context.Context, subs []model.Subscription, payload Payload) {
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub model.Subscription) {
			defer wg.Done()
			d.Send(ctx, sub, payload)
		}(sub)
	}
	wg.Wait()
}

// ReminderNotifier adapts the dispatcher to the scheduler's Notifier
// interface for the in-process (no broker) configuration.
type ReminderNotifier struct {
	Dispatcher *Dispatcher
}

// NotifyReminder builds the reminder payload and fans it out.
func (n ReminderNotifier) NotifyReminder(ctx context.Context, p repository.PassageDetail, subs []model.Subscription, minutesBefore int) {
	n.Dispatcher.Fan(ctx, subs, ReminderPayload(p.GroupName, p.ApparatusName, minutesBefore))
}
