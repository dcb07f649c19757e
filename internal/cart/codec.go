package cart

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the full line sequence as a JSON array.
func Encode(s State) ([]byte, error) {
	if s == nil {
		s = State{}
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode cart snapshot: %w", err)
	}
	return payload, nil
}

// Decode parses a snapshot. Lines breaking the cart invariants (non-positive
// quantity, repeated product id) are dropped.
func Decode(payload []byte) (State, error) {
	var raw State
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	out := make(State, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for _, l := range raw {
		if l.Quantity < 1 {
			continue
		}
		if _, dup := seen[l.ID]; dup {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}
