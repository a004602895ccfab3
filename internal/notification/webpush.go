package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// WebPushSender delivers payloads through the Web Push protocol using
// the app's VAPID key pair.
type WebPushSender struct {
	subject    string // mailto: contact required by VAPID
	publicKey  string
	privateKey string
}

// NewWebPushSender constructs a WebPushSender.
func NewWebPushSender(subject, publicKey, privateKey string) *WebPushSender {
	return &WebPushSender{subject: subject, publicKey: publicKey, privateKey: privateKey}
}

// Send implements ChannelSender. Gone/NotFound responses mean the
// browser dropped the subscription; that maps to ErrEndpointGone.
func (s *WebPushSender) Send(ctx context.Context, sub model.Subscription, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.KeyP256dh,
			Auth:   sub.KeyAuth,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             900,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrEndpointGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("web push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
