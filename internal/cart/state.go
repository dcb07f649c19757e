package cart

import (
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// Line is a product snapshot taken when it entered the cart, plus a quantity.
// Quantity is always >= 1.
type Line struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the ordered set of cart lines, at most one per product id.
// Transitions never modify the receiver.
type State []Line

func (s State) index(id int) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	if len(s) == 0 {
		return State{}
	}
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Add increments an existing line or appends a new one. Non-positive
// quantities leave the state untouched.
func (s State) Add(p catalog.Product, qty int) (State, Event) {
	if qty <= 0 {
		return s, Event{Kind: EventNoop, ProductID: p.ID, Title: p.Title}
	}
	next := s.clone()
	if i := next.index(p.ID); i >= 0 {
		next[i].Quantity += qty
		return next, Event{Kind: EventUpdated, ProductID: p.ID, Title: next[i].Title, Quantity: next[i].Quantity}
	}
	next = append(next, Line{Product: p, Quantity: qty})
	return next, Event{Kind: EventAdded, ProductID: p.ID, Title: p.Title, Quantity: qty}
}

// Remove drops the line for id, if any.
func (s State) Remove(id int) (State, Event) {
	i := s.index(id)
	if i < 0 {
		return s, Event{Kind: EventNoop, ProductID: id}
	}
	removed := s[i]
	next := make(State, 0, len(s)-1)
	next = append(next, s[:i]...)
	next = append(next, s[i+1:]...)
	return next, Event{Kind: EventRemoved, ProductID: id, Title: removed.Title}
}

// SetQuantity sets an absolute quantity; qty <= 0 removes the line.
func (s State) SetQuantity(id, qty int) (State, Event) {
	if qty <= 0 {
		return s.Remove(id)
	}
	i := s.index(id)
	if i < 0 {
		return s, Event{Kind: EventNoop, ProductID: id}
	}
	if s[i].Quantity == qty {
		return s, Event{Kind: EventNoop, ProductID: id, Title: s[i].Title, Quantity: qty}
	}
	next := s.clone()
	next[i].Quantity = qty
	return next, Event{Kind: EventQuantitySet, ProductID: id, Title: next[i].Title, Quantity: qty}
}

// Clear empties the cart.
func (s State) Clear() (State, Event) {
	return State{}, Event{Kind: EventCleared}
}

// ItemCount is the sum of line quantities.
func (s State) ItemCount() int {
	n := 0
	for _, l := range s {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price x quantity over all lines.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s {
		total = total.Add(l.Subtotal())
	}
	return total
}
