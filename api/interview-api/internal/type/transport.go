// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_type

import "context"

// EventKind discriminates what a transport reported.
type EventKind string

const (
	EventOpen    EventKind = "open"
	EventMessage EventKind = "message"
	EventClosed  EventKind = "closed"
)

// DisconnectReason describes why a transport was torn down.
type DisconnectReason string

const (
	DisconnectReasonNormal           DisconnectReason = "normal"            // local Close
	DisconnectReasonConnectionFailed DisconnectReason = "connection_failed" // ICE/DTLS failure
	DisconnectReasonPeerClosed       DisconnectReason = "peer_closed"       // peer connection closed remotely
	DisconnectReasonChannelClosed    DisconnectReason = "channel_closed"    // data channel closed
	DisconnectReasonContextCancelled DisconnectReason = "context_cancelled" // parent context cancelled
	DisconnectReasonUnknown          DisconnectReason = "unknown"
)

// Event is one item of a transport's ordered event stream. Payload is set for
// EventMessage, Reason for EventClosed.
type Event struct {
	Kind    EventKind
	Payload []byte
	Reason  DisconnectReason
}

// Transport is an established realtime session with the remote model.
// Open, message and closed notifications arrive through Recv in the order the
// underlying connection produced them.
type Transport interface {
	// SessionID identifies the transport in logs.
	SessionID() string

	// Recv blocks until the next event. It returns io.EOF once the transport
	// has been closed and every pending event has been drained.
	Recv() (Event, error)

	// Send writes one encoded message on the data channel.
	Send(payload []byte) error

	// Close tears the transport down. Safe to call more than once.
	Close() error
}

// Establisher negotiates a new Transport. The capture must already be
// acquired so the offer advertises audio.
type Establisher interface {
	Establish(ctx context.Context, credential string, capture Capture) (Transport, error)
}

// CredentialProvider returns a short-lived bearer credential.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}
