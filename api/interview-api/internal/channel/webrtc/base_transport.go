// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package channel_webrtc

import (
	"context"
	"io"
	"sync"

	webrtc_internal "github.com/rapidaai/interview/api/interview-api/internal/channel/webrtc/internal"
	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	"github.com/rapidaai/interview/pkg/commons"
)

// ============================================================================
// baseTransport - ordered event stream shared by transport implementations
// ============================================================================

// baseTransport owns the event channel every pion callback feeds:
//
//	OnOpen / OnMessage -> eventCh -> Recv
//	OnClose / OnConnectionStateChange -> closedCh -> Recv
//
// Pion runs its callbacks on different goroutines. Pushes are serialized
// under pushMu and block while eventCh is full, so no message is ever
// dropped. The open event is pushed before the first message and never after
// closed. The closed event is not queued: Recv reports it once every queued
// and in-flight event has been returned, so consumers see
// open -> message* -> closed.
type baseTransport struct {
	mu     sync.Mutex
	pushMu sync.Mutex
	logger commons.Logger

	// Lifecycle. The transport owns its context (derived from
	// context.Background) so teardown is never cut short by a caller.
	ctx    context.Context
	cancel context.CancelFunc

	opened        bool
	closed        bool
	closeReason   internal_type.DisconnectReason
	closeReported bool
	pending       int // pushes past the closed check, not yet queued
	openedCh      chan struct{}
	closedCh      chan struct{}
	settledCh     chan struct{} // signalled when the last in-flight push lands after close
	closeOnce     sync.Once

	eventCh chan internal_type.Event
}

func newBaseTransport(logger commons.Logger) baseTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return baseTransport{
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		openedCh:  make(chan struct{}),
		closedCh:  make(chan struct{}),
		settledCh: make(chan struct{}, 1),
		eventCh:   make(chan internal_type.Event, webrtc_internal.EventChannelSize),
	}
}

// ============================================================================
// Event push helpers
// ============================================================================

// markOpen pushes the open event once. Called from OnOpen and before the
// first message in case pion delivers a message before the open callback has
// run.
func (b *baseTransport) markOpen() {
	b.pushMu.Lock()
	defer b.pushMu.Unlock()
	b.push(false, nil)
}

func (b *baseTransport) pushMessage(payload []byte) {
	b.pushMu.Lock()
	defer b.pushMu.Unlock()
	b.push(true, payload)
}

// push queues the open event if it is still owed and, when withMessage is
// set, the message after it. Caller holds pushMu.
func (b *baseTransport) push(withMessage bool, payload []byte) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	events := make([]internal_type.Event, 0, 2)
	if !b.opened {
		b.opened = true
		close(b.openedCh)
		events = append(events, internal_type.Event{Kind: internal_type.EventOpen})
	}
	if withMessage {
		events = append(events, internal_type.Event{Kind: internal_type.EventMessage, Payload: payload})
	}
	if len(events) == 0 {
		b.mu.Unlock()
		return
	}
	b.pending++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.pending--
		if b.closed && b.pending == 0 {
			select {
			case b.settledCh <- struct{}{}:
			default:
			}
		}
		b.mu.Unlock()
	}()
	for _, ev := range events {
		select {
		case b.eventCh <- ev:
		case <-b.ctx.Done():
			b.logger.Debugw("Transport torn down with events pending", "kind", ev.Kind)
			return
		}
	}
}

// pushClosed marks the transport closed. It is idempotent: only the first
// reason is reported.
func (b *baseTransport) pushClosed(reason internal_type.DisconnectReason) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.closeReason = reason
	close(b.closedCh)
}

func (b *baseTransport) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened && !b.closed
}

// ============================================================================
// Transport interface helpers (embedded by concrete transports)
// ============================================================================

// Recv returns the next event. Queued events are always returned first. Once
// the transport is closed and drained, the closed event is returned once and
// io.EOF after that.
func (b *baseTransport) Recv() (internal_type.Event, error) {
	for {
		select {
		case ev := <-b.eventCh:
			return ev, nil
		default:
		}

		b.mu.Lock()
		closed, pending := b.closed, b.pending
		b.mu.Unlock()
		if (closed && pending == 0) || b.ctx.Err() != nil {
			return b.closedEvent()
		}

		// A closed transport with a push in flight waits for that push only.
		closedCh := b.closedCh
		if closed {
			closedCh = nil
		}
		select {
		case ev := <-b.eventCh:
			return ev, nil
		case <-closedCh:
		case <-b.settledCh:
		case <-b.ctx.Done():
		}
	}
}

func (b *baseTransport) closedEvent() (internal_type.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed || b.closeReported {
		return internal_type.Event{}, io.EOF
	}
	b.closeReported = true
	return internal_type.Event{Kind: internal_type.EventClosed, Reason: b.closeReason}, nil
}
