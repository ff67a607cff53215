// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DecodeError is returned when an inbound payload is not a structured record.
type DecodeError struct {
	Reason  string
	Payload string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message: %s", e.Reason)
}

// Encode produces the wire form of msg. The display timestamp is never encoded.
func Encode(msg *Message) ([]byte, error) {
	if msg == nil || msg.Type == "" {
		return nil, fmt.Errorf("encode message: missing type")
	}
	return json.Marshal(msg)
}

// Decode parses an inbound payload. The original bytes are retained on the
// returned message. A `timestamp` field sent by the peer is honoured as the
// display timestamp rather than being overwritten at receipt.
func Decode(payload []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &DecodeError{Reason: "payload is not a JSON object", Payload: truncate(payload)}
	}

	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, &DecodeError{Reason: err.Error(), Payload: truncate(payload)}
	}
	if msg.Type == "" {
		return nil, &DecodeError{Reason: "missing type", Payload: truncate(payload)}
	}

	var annotation struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(trimmed, &annotation); err == nil {
		msg.Timestamp = annotation.Timestamp
	}

	msg.raw = append(json.RawMessage(nil), trimmed...)
	return &msg, nil
}

const maxLoggedPayload = 256

// truncate cuts payload to maxLoggedPayload bytes without splitting a rune.
func truncate(payload []byte) string {
	if len(payload) <= maxLoggedPayload {
		return string(payload)
	}
	cut := maxLoggedPayload
	for cut > 0 && !utf8.RuneStart(payload[cut]) {
		cut--
	}
	return string(payload[:cut]) + "..."
}
