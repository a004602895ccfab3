// Package notification delivers push messages over two channels (Web
// Push and FCM), classifies per-endpoint failures and garbage collects
// endpoints the channel reports permanently dead.
package notification

import "fmt"

// Payload is the channel-independent notification content.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ReminderPayload builds the passage reminder in the app's wording.
func ReminderPayload(groupName, apparatusName string, minutesBefore int) Payload {
	if apparatusName == "" {
		apparatusName = "sol"
	}
	return Payload{
		Title: "Passage imminent !",
		Body:  fmt.Sprintf("%s va passer au %s dans %d minutes !", groupName, apparatusName, minutesBefore),
		Icon:  "/icons/logo-192.png",
		URL:   "/schedule",
	}
}
