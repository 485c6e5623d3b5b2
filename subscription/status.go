package subscription

import "fmt"

/* Status represents the activation state of a subscription
 * Only Active subscriptions are considered for delivery when
 * resolving with activeOnly
 */
type Status int

const (
	None Status = iota
	Active
	Suspended
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case None:
		return "none"
	case Active:
		return "active"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string
func NewStatus(str string) Status {
	switch str {
	case "active":
		return Active
	case "suspended":
		return Suspended
	default:
		return None
	}
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < None || s > Suspended {
		return fmt.Errorf("invalid status: %d", s)
	}
	return nil
}
