package proto

import (
	"encoding/json"
	"fmt"
)

// RoomRef identifies a room on the wire.
type RoomRef struct {
	Name string `json:"name"`
}

// Delivery is the server→client frame and the payload of a Content
// directive: {"room":{"name":...},"from":...,"message":...}. From is null
// for senderless system notices; on inbound frames it is ignored entirely.
type Delivery struct {
	Room    RoomRef `json:"room"`
	From    *string `json:"from"`
	Message string  `json:"message"`
}

// Directive is the client→server message union, externally tagged by its
// single key: {"Join":"<room>"}, {"Leave":"<room>"}, or
// {"Content":{...delivery...}}. Exactly one variant is set after decoding.
type Directive struct {
	Join    *string
	Leave   *string
	Content *Delivery
}

// UnmarshalJSON decodes the tagged union, rejecting frames that carry no
// known tag or more than one.
func (d *Directive) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("directive must have exactly one tag, got %d", len(raw))
	}

	for tag, value := range raw {
		switch tag {
		case "Join":
			var room string
			if err := json.Unmarshal(value, &room); err != nil {
				return fmt.Errorf("decode Join: %w", err)
			}
			d.Join = &room
		case "Leave":
			var room string
			if err := json.Unmarshal(value, &room); err != nil {
				return fmt.Errorf("decode Leave: %w", err)
			}
			d.Leave = &room
		case "Content":
			var content Delivery
			if err := json.Unmarshal(value, &content); err != nil {
				return fmt.Errorf("decode Content: %w", err)
			}
			d.Content = &content
		default:
			return fmt.Errorf("unknown directive tag %q", tag)
		}
	}
	return nil
}

// MarshalJSON emits the same externally tagged form the client sends.
func (d Directive) MarshalJSON() ([]byte, error) {
	switch {
	case d.Join != nil:
		return json.Marshal(map[string]string{"Join": *d.Join})
	case d.Leave != nil:
		return json.Marshal(map[string]string{"Leave": *d.Leave})
	case d.Content != nil:
		return json.Marshal(map[string]*Delivery{"Content": d.Content})
	default:
		return nil, fmt.Errorf("directive has no variant set")
	}
}
