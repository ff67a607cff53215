// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_ledger

import (
	"encoding/json"
	"fmt"

	internal_message "github.com/rapidaai/interview/api/interview-api/internal/message"
)

type Direction string

const (
	DirectionClient Direction = "client"
	DirectionServer Direction = "server"
)

// TechnicalEntry is one row of the event log view.
type TechnicalEntry struct {
	Key       string                    `json:"key"`
	Direction Direction                 `json:"direction"`
	Type      string                    `json:"type"`
	Timestamp string                    `json:"timestamp"`
	Payload   json.RawMessage           `json:"payload"`
	Message   *internal_message.Message `json:"-"`
}

// TranscriptEntry is one chat bubble of the conversation view.
type TranscriptEntry struct {
	Key       string `json:"key"`
	EventID   string `json:"event_id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// keyer hands out render keys that stay unique within one pass even when
// raw entries share an identifier.
type keyer struct {
	counter int
}

func (k *keyer) next(eventID string) string {
	if eventID == "" {
		eventID = "entry"
	}
	key := fmt.Sprintf("%s-%d", eventID, k.counter)
	k.counter++
	return key
}

// Technical materializes the event log, newest first. Within a run of
// streaming deltas (bounded by non-delta messages) only the first entry seen
// of each delta type is kept.
func (l *Ledger) Technical() []TechnicalEntry {
	entries := l.Entries()
	keys := &keyer{}
	seenDelta := make(map[internal_message.MessageType]bool)

	out := make([]TechnicalEntry, 0, len(entries))
	for _, msg := range entries {
		if msg.IsDelta() {
			if seenDelta[msg.Type] {
				continue
			}
			seenDelta[msg.Type] = true
		} else if len(seenDelta) > 0 {
			seenDelta = make(map[internal_message.MessageType]bool)
		}

		direction := DirectionServer
		if msg.IsClientOriginated() {
			direction = DirectionClient
		}
		out = append(out, TechnicalEntry{
			Key:       keys.next(msg.EventID),
			Direction: direction,
			Type:      string(msg.Type),
			Timestamp: msg.Timestamp,
			Payload:   payload(msg),
			Message:   msg,
		})
	}
	return out
}

// Transcript materializes the conversation, oldest first, keeping only the
// first occurrence of each exact (role, content) pair.
func (l *Ledger) Transcript() []TranscriptEntry {
	entries := l.Entries()
	keys := &keyer{}
	seen := make(map[string]bool)

	out := make([]TranscriptEntry, 0)
	for i := len(entries) - 1; i >= 0; i-- {
		msg := entries[i]
		role, content, ok := transcriptContent(msg)
		if !ok {
			continue
		}
		dedupKey := role + ":" + content
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true
		out = append(out, TranscriptEntry{
			Key:       keys.next(msg.EventID),
			EventID:   msg.EventID,
			Role:      role,
			Content:   content,
			Timestamp: msg.Timestamp,
		})
	}
	return out
}

// payload is what the event log expands: the received bytes for inbound
// messages, the wire encoding for outbound ones.
func payload(msg *internal_message.Message) json.RawMessage {
	if raw := msg.Raw(); raw != nil {
		return raw
	}
	data, err := internal_message.Encode(msg)
	if err != nil {
		return nil
	}
	return data
}

func transcriptContent(msg *internal_message.Message) (role, content string, ok bool) {
	switch msg.Type {
	case internal_message.TypeResponseDone:
		content = msg.ResponseContent()
		role = internal_message.RoleAssistant
	case internal_message.TypeResponseOutputItemDone:
		content = msg.ItemTranscript()
		role = internal_message.RoleAssistant
	case internal_message.TypeConversationItemCreate:
		content = msg.UserText()
		role = internal_message.RoleUser
	}
	return role, content, content != ""
}
