package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the wire shape exchanged over the channel.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	UserID    string          `json:"userId,omitempty"`
}

// NewMessage builds a message with data encoded as JSON.
func NewMessage(typ string, data any) (Message, error) {
	msg := Message{Type: typ}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s data: %w", typ, err)
	}
	msg.Data = raw
	return msg, nil
}

// QueuedMessage is an encoded message waiting for the channel to open.
type QueuedMessage struct {
	EnqueuedAt time.Time
	Payload    []byte
}
