package notification

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// fcmChannelID is the Android notification channel reminders land on;
// it must match the channel the mobile app registers.
const fcmChannelID = "passage-reminders"

// FCMSender delivers payloads through Firebase Cloud Messaging. The
// subscription endpoint holds the device registration token.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the Firebase app from a service account
// credentials file and returns a sender bound to its messaging client.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCMSender{client: client}, nil
}

// Send implements ChannelSender. An unregistered token means the app
// was uninstalled or the token rotated; that maps to ErrEndpointGone.
func (s *FCMSender) Send(ctx context.Context, sub model.Subscription, payload Payload) error {
	msg := &messaging.Message{
		Token: sub.Endpoint,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: map[string]string{
			"url": payload.URL,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: fcmChannelID,
				Icon:      "ic_notification",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
	_, err := s.client.Send(ctx, msg)
	if err == nil {
		return nil
	}
	if messaging.IsUnregistered(err) {
		return ErrEndpointGone
	}
	return err
}
