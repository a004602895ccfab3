package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/iliyamo/competition-livestream/internal/model"
)

type stubSender struct {
	mu   sync.Mutex
	err  error
	sent []model.Subscription
}

func (s *stubSender) Send(_ context.Context, sub model.Subscription, _ Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sub)
	return s.err
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type stubDeleter struct {
	mu      sync.Mutex
	deleted []string
}

func (d *stubDeleter) DeleteByEndpoint(_ context.Context, endpoint string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, endpoint)
	return nil
}

func webSub(id, endpoint string) model.Subscription {
	return model.Subscription{ID: id, Type: model.ChannelWeb, Endpoint: endpoint}
}

func TestSendRoutesByChannel(t *testing.T) {
	web := &stubSender{}
	fcm := &stubSender{}
	d := NewDispatcher(web, fcm, &stubDeleter{}, zap.NewNop())

	d.Send(context.Background(), webSub("s1", "https://push/one"), Payload{Title: "t"})
	d.Send(context.Background(), model.Subscription{ID: "s2", Type: model.ChannelFCM, Endpoint: "tok"}, Payload{Title: "t"})

	assert.Equal(t, 1, web.count())
	assert.Equal(t, 1, fcm.count())
}

func TestSendGoneEndpointDeletesSubscription(t *testing.T) {
	web := &stubSender{err: ErrEndpointGone}
	deleter := &stubDeleter{}
	d := NewDispatcher(web, nil, deleter, zap.NewNop())

	d.Send(context.Background(), webSub("s1", "https://push/dead"), Payload{Title: "t"})

	assert.Equal(t, []string{"https://push/dead"}, deleter.deleted)
}

func TestSendTransientErrorKeepsSubscription(t *testing.T) {
	web := &stubSender{err: errors.New("upstream 503")}
	deleter := &stubDeleter{}
	d := NewDispatcher(web, nil, deleter, zap.NewNop())

	d.Send(context.Background(), webSub("s1", "https://push/flaky"), Payload{Title: "t"})

	assert.Empty(t, deleter.deleted)
}

func TestSendSkipsUnconfiguredChannel(t *testing.T) {
	deleter := &stubDeleter{}
	d := NewDispatcher(nil, nil, deleter, zap.NewNop())

	d.Send(context.Background(), model.Subscription{ID: "s1", Type: model.ChannelFCM, Endpoint: "tok"}, Payload{Title: "t"})

	assert.Empty(t, deleter.deleted)
}

func TestSendIgnoresUnknownChannel(t *testing.T) {
	web := &stubSender{}
	d := NewDispatcher(web, nil, &stubDeleter{}, zap.NewNop())

	d.Send(context.Background(), model.Subscription{ID: "s1", Type: "pigeon", Endpoint: "x"}, Payload{Title: "t"})

	assert.Equal(t, 0, web.count())
}

func TestFanWaitsForEveryAttempt(t *testing.T) {
	web := &stubSender{}
	d := NewDispatcher(web, nil, &stubDeleter{}, zap.NewNop())

	subs := []model.Subscription{
		webSub("s1", "https://push/one"),
		webSub("s2", "https://push/two"),
		webSub("s3", "https://push/three"),
	}
	d.Fan(context.Background(), subs, Payload{Title: "t"})

	assert.Equal(t, 3, web.count())
}
