// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_message

import (
	"encoding/json"
	"strings"
)

// MessageType is the `type` discriminator of every record on the data channel.
type MessageType string

const (
	// client -> server
	TypeConversationItemCreate MessageType = "conversation.item.create"
	TypeResponseCreate         MessageType = "response.create"
	TypeSessionUpdate          MessageType = "session.update"

	// server -> client
	TypeSessionCreated         MessageType = "session.created"
	TypeSessionUpdated         MessageType = "session.updated"
	TypeResponseCreated        MessageType = "response.created"
	TypeResponseDone           MessageType = "response.done"
	TypeResponseOutputItemDone MessageType = "response.output_item.done"
	TypeResponseTextDelta      MessageType = "response.text.delta"
	TypeResponseAudioDelta     MessageType = "response.audio.delta"
	TypeTranscriptDelta        MessageType = "response.audio_transcript.delta"
	TypeError                  MessageType = "error"
)

// ServerEventPrefix marks identifiers assigned by the remote service.
// Client generated identifiers never carry it.
const ServerEventPrefix = "event_"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	ItemTypeMessage = "message"

	ContentInputText  = "input_text"
	ContentText       = "text"
	ContentOutputText = "output_text"
	ContentAudio      = "audio"
)

// Message is one structured record exchanged over the channel.
//
// Timestamp is a display annotation only: it is excluded from the wire
// encoding and assigned after transmission (outbound) or on receipt (inbound).
type Message struct {
	Type       MessageType `json:"type"`
	EventID    string      `json:"event_id,omitempty"`
	ResponseID string      `json:"response_id,omitempty"`
	ItemID     string      `json:"item_id,omitempty"`
	Delta      string      `json:"delta,omitempty"`
	Transcript string      `json:"transcript,omitempty"`
	Item       *Item       `json:"item,omitempty"`
	Response   *Response   `json:"response,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`

	Timestamp string `json:"-"`

	// raw holds the payload exactly as received so the event log can show
	// fields this model does not name.
	raw json.RawMessage
}

type Item struct {
	ID         string        `json:"id,omitempty"`
	Type       string        `json:"type,omitempty"`
	Status     string        `json:"status,omitempty"`
	Role       string        `json:"role,omitempty"`
	Content    []ContentPart `json:"content,omitempty"`
	Text       string        `json:"text,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
}

type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type Response struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Output       []Item `json:"output,omitempty"`
}

type ErrorBody struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewUserText builds the conversation item carrying a typed user answer.
func NewUserText(text string) *Message {
	return &Message{
		Type: TypeConversationItemCreate,
		Item: &Item{
			Type:    ItemTypeMessage,
			Role:    RoleUser,
			Content: []ContentPart{{Type: ContentInputText, Text: text}},
		},
	}
}

// NewResponseCreate asks the remote model for a response. Empty
// instructions produce a bare request that lets the model answer the last turn.
func NewResponseCreate(instructions string) *Message {
	msg := &Message{Type: TypeResponseCreate}
	if instructions != "" {
		msg.Response = &Response{Instructions: instructions}
	}
	return msg
}

// IsDelta reports whether the message is one streaming fragment of a reply.
func (m *Message) IsDelta() bool {
	return strings.HasSuffix(string(m.Type), "delta")
}

// IsClientOriginated reports whether the identifier was generated locally.
func (m *Message) IsClientOriginated() bool {
	return m.EventID != "" && !strings.HasPrefix(m.EventID, ServerEventPrefix)
}

// Raw returns the received payload, or nil for locally built messages.
func (m *Message) Raw() json.RawMessage {
	return m.raw
}

// ResponseText joins the text content of a completed response.
func (m *Message) ResponseText() string {
	return strings.Join(m.responseTexts(), "")
}

func (m *Message) responseTexts() []string {
	if m.Type != TypeResponseDone || m.Response == nil {
		return nil
	}
	var parts []string
	for _, out := range m.Response.Output {
		if out.Type == ContentText && out.Text != "" {
			parts = append(parts, out.Text)
			continue
		}
		for _, c := range out.Content {
			if (c.Type == ContentText || c.Type == ContentOutputText) && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	return parts
}

// ResponseTranscript joins the spoken transcripts of a completed response.
func (m *Message) ResponseTranscript() string {
	return strings.Join(m.responseTranscripts(), "")
}

func (m *Message) responseTranscripts() []string {
	if m.Type != TypeResponseDone || m.Response == nil {
		return nil
	}
	var parts []string
	for _, out := range m.Response.Output {
		if out.Type == ContentAudio && out.Transcript != "" {
			parts = append(parts, out.Transcript)
			continue
		}
		parts = append(parts, audioTranscripts(out.Content)...)
	}
	return parts
}

// ResponseContent is the text of a completed response, falling back to its
// spoken transcript when the model answered with audio only.
func (m *Message) ResponseContent() string {
	if text := m.ResponseText(); text != "" {
		return text
	}
	return m.ResponseTranscript()
}

// ResponsePhrases is ResponseContent with its parts separated by a space, so
// phrases spanning two output parts can still be matched.
func (m *Message) ResponsePhrases() string {
	if parts := m.responseTexts(); len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return strings.Join(m.responseTranscripts(), " ")
}

// ItemTranscript joins the audio transcripts of a completed assistant item.
func (m *Message) ItemTranscript() string {
	if m.Type != TypeResponseOutputItemDone || m.Item == nil || m.Item.Role != RoleAssistant {
		return ""
	}
	return strings.Join(audioTranscripts(m.Item.Content), "")
}

// UserText returns the typed text of an outbound user item.
func (m *Message) UserText() string {
	if m.Type != TypeConversationItemCreate || m.Item == nil || m.Item.Role != RoleUser {
		return ""
	}
	if len(m.Item.Content) == 0 || m.Item.Content[0].Type != ContentInputText {
		return ""
	}
	return m.Item.Content[0].Text
}

func audioTranscripts(parts []ContentPart) []string {
	var out []string
	for _, c := range parts {
		if c.Type == ContentAudio && c.Transcript != "" {
			out = append(out, c.Transcript)
		}
	}
	return out
}
