package events

import "time"

// NotificationReceivedEvent announces a notification delivered by any path
// (probe, realtime push or local creation).
type NotificationReceivedEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	ID        string
	Title     string
	Body      string
	Source    string
	Timestamp time.Time
}

// Kind implements Event.
func (NotificationReceivedEvent) Kind() Kind { return KindNotificationReceived }

// NewNotificationReceivedEvent creates a notification-received event.
func NewNotificationReceivedEvent(id, title, body, source string) NotificationReceivedEvent {
	return NotificationReceivedEvent{
		ID:        id,
		Title:     title,
		Body:      body,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// DialogOpenEvent asks the UI to present a notification.
type DialogOpenEvent struct { //nolint:govet // fieldalignment: preserving logical field order
	NotificationID string
	Title          string
	Body           string
	Timestamp      time.Time
}

// Kind implements Event.
func (DialogOpenEvent) Kind() Kind { return KindDialogOpen }

// NewDialogOpenEvent creates a dialog-open event.
func NewDialogOpenEvent(id, title, body string) DialogOpenEvent {
	return DialogOpenEvent{NotificationID: id, Title: title, Body: body, Timestamp: time.Now()}
}
