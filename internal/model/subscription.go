package model

import "time"

// Subscription channel types.
const (
	ChannelWeb = "web"
	ChannelFCM = "fcm"
)

// Subscription is a push notification recipient on one of two
// delivery channels.  Endpoint is the unique channel address: a Web
// Push URL for "web" subscriptions, an FCM registration token for
// "fcm".  Keys are only present for web subscriptions.  Favorites is
// the set of passage IDs the subscriber wants reminders for; it is
// replaced wholesale by the sync API whenever the client's local
// favorites change.
//
// Subscriptions are created and updated by the subscription API and
// deleted by the notification dispatcher when a channel reports the
// endpoint permanently invalid.
type Subscription struct {
	ID        string    // subscriptions.id
	Type      string    // subscriptions.type ("web" or "fcm")
	Endpoint  string    // subscriptions.endpoint (unique)
	KeyP256dh string    // subscriptions.key_p256dh (web only)
	KeyAuth   string    // subscriptions.key_auth (web only)
	Favorites []string  // subscription_favorites.passage_id rows
	CreatedAt time.Time // subscriptions.created_at
	UpdatedAt time.Time // subscriptions.updated_at
}
