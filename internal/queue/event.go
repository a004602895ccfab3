// Package queue defines message payloads exchanged over the message
// broker and the background consumer delivering them.
package queue

// DispatchQueueName is the durable queue carrying reminder dispatch
// jobs from the scheduler to the notification consumer.
const DispatchQueueName = "notification.dispatch"

// ReminderDispatchEvent is published once per passage entering a
// reminder window. Subscribers are resolved again at consume time so a
// favorites change between publish and consume is honored; the message
// carries only the rendered notification content and the passage id.
type ReminderDispatchEvent struct {
	PassageID     string `json:"passage_id"`
	GroupName     string `json:"group_name"`
	ApparatusName string `json:"apparatus_name"`
	MinutesBefore int    `json:"minutes_before"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	Icon          string `json:"icon,omitempty"`
	URL           string `json:"url,omitempty"`
}
