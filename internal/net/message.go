// Package net carries the realtime store between processes: a websocket hub
// that serves an in-memory store to every peer on the LAN, a client that
// speaks to it as a store.Store, and mDNS discovery of running hubs.
package net

import (
	"encoding/json"
	"fmt"
)

type MessageType string

const (
	MsgSubscribe    MessageType = "subscribe"
	MsgUnsubscribe  MessageType = "unsubscribe"
	MsgWrite        MessageType = "write"
	MsgMerge        MessageType = "merge"
	MsgRemove       MessageType = "remove"
	MsgUpdate       MessageType = "update"
	MsgOnDisconnect MessageType = "onDisconnect"
	MsgSnapshot     MessageType = "snapshot"
	MsgError        MessageType = "error"
)

// Message is the single JSON frame exchanged over the websocket. ID names a
// subscription; every other field is used by the types that need it.
type Message struct {
	Type    MessageType                `json:"type"`
	ID      int                        `json:"id,omitempty"`
	Path    string                     `json:"path,omitempty"`
	Value   json.RawMessage            `json:"value,omitempty"`
	Fields  map[string]json.RawMessage `json:"fields,omitempty"`
	Updates map[string]json.RawMessage `json:"updates,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

func encodeValue(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return b, nil
}

func encodeMap(m map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		raw, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// decodeMap keeps raw values so the store normalizes them. A JSON null
// stays a removal.
func decodeMap(m map[string]json.RawMessage) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if len(v) == 0 {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return out
}
