package event

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// typePattern validates event types: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var typePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

/* Event represents a single application event to be dispatched
 * Uses value semantics as it represents data, not behavior
 * Events are immutable after construction
 */
type Event struct {
	ID          string
	Subject     string
	Type        string
	DataVersion string
	Timestamp   time.Time
	Data        map[string]any
}

// New creates an Event with a generated ID and the current timestamp
func New(subject, eventType string, data map[string]any) (Event, error) {
	if err := ValidateType(eventType); err != nil {
		return Event{}, fmt.Errorf("validating event type: %w", err)
	}

	return Event{
		ID:        uuid.New().String(),
		Subject:   subject,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ValidateType validates an event type format
func ValidateType(eventType string) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}

	if !typePattern.MatchString(eventType) {
		return fmt.Errorf("event type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", eventType)
	}

	return nil
}
