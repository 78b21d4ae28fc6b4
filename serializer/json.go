package serializer

import (
	"encoding/json"
	"fmt"
)

// JSON implements Serializer using encoding/json, the default and only
// backend wired into the daemon; a pickle- or ast-literal-equivalent
// backend could satisfy the same interface without touching the store.
type JSON struct{}

var _ Serializer = JSON{}

func (JSON) Dumpb(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("serializer: marshal message: %w", err)
	}
	return b, nil
}

func (JSON) Loadb(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("serializer: unmarshal message: %w", err)
	}
	return msg, nil
}
