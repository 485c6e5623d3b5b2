package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

/* Notification groups one or more events of the same type into one
 * unit of work for the dispatch pipeline
 * Invariant: non-empty, all events share the same Type
 */
type Notification struct {
	ID        string
	Type      string
	Timestamp time.Time
	Events    []Event
}

// NewNotification creates a notification from one or more same-typed events
func NewNotification(events ...Event) (Notification, error) {
	if len(events) == 0 {
		return Notification{}, fmt.Errorf("notification requires at least one event")
	}

	eventType := events[0].Type
	for _, e := range events[1:] {
		if e.Type != eventType {
			return Notification{}, fmt.Errorf("all events must share the same type: got %q and %q", eventType, e.Type)
		}
	}

	return Notification{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Events:    events,
	}, nil
}

// Single returns true when the notification wraps exactly one event
func (n Notification) Single() bool {
	return len(n.Events) == 1
}

// First returns the first event in the notification
func (n Notification) First() Event {
	return n.Events[0]
}
