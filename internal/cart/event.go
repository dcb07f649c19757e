package cart

import "fmt"

// EventKind names the outcome of a cart transition.
type EventKind string

const (
	EventAdded       EventKind = "added"
	EventUpdated     EventKind = "updated"
	EventRemoved     EventKind = "removed"
	EventQuantitySet EventKind = "quantity_set"
	EventCleared     EventKind = "cleared"
	EventNoop        EventKind = "noop"
)

// Event describes what a single transition did to the cart.
type Event struct {
	Kind      EventKind `json:"kind"`
	ProductID int       `json:"product_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Quantity  int       `json:"quantity"`
}

// Changed reports whether the transition altered the cart.
func (e Event) Changed() bool {
	return e.Kind != EventNoop && e.Kind != ""
}

// Message returns the user-facing notice for the event, or "" when the
// event is not announced.
func (e Event) Message() string {
	switch e.Kind {
	case EventAdded:
		return fmt.Sprintf("Added %s to cart!", e.Title)
	case EventUpdated:
		return fmt.Sprintf("Updated quantity of %s in cart!", e.Title)
	case EventRemoved:
		return fmt.Sprintf("Removed %s from cart", e.Title)
	default:
		return ""
	}
}
