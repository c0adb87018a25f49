package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is an outbound frame. On the wire it is a flat JSON object whose "type" field is EventType().
type Event interface {
	EventType() string
}

// Encode serializes e with its type tag as the first field.
func Encode(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("event %s must encode to a JSON object", e.EventType())
	}

	tag, _ := json.Marshal(e.EventType())

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// PeekType reads the "type" tag of an inbound frame without decoding the rest.
func PeekType(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("frame has no type")
	}
	return env.Type, nil
}
