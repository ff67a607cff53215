// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_channel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	internal_ledger "github.com/rapidaai/interview/api/interview-api/internal/ledger"
	internal_message "github.com/rapidaai/interview/api/interview-api/internal/message"
	internal_observability "github.com/rapidaai/interview/api/interview-api/internal/observability"
	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/utils"
)

var ErrChannelNotOpen = errors.New("channel is not open")

// ============================================================================
// Channel - structured message boundary over a transport
// ============================================================================

// Channel turns a transport's raw data channel into structured messages and
// records every message that crosses it in the ledger.
//
// Outbound: id assigned -> encoded (no timestamp) -> transmitted -> stamped -> ledger.
// Inbound:  decoded -> stamped on receipt -> ledger -> returned for interpretation.
//
// Sends are serialized so the ledger order always matches wire order.
type Channel struct {
	mu     sync.Mutex
	sendMu sync.Mutex

	logger    commons.Logger
	ledger    *internal_ledger.Ledger
	metrics   *internal_observability.Metrics
	transport internal_type.Transport
	open      bool

	now func() time.Time
}

func NewChannel(
	logger commons.Logger,
	ledger *internal_ledger.Ledger,
	metrics *internal_observability.Metrics,
	transport internal_type.Transport,
) *Channel {
	return &Channel{
		logger:    logger,
		ledger:    ledger,
		metrics:   metrics,
		transport: transport,
		now:       time.Now,
	}
}

// Open resets the ledger and starts accepting sends. The ledger is reset
// exactly once, before any message of the session is recorded.
func (c *Channel) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return
	}
	c.ledger.Reset()
	c.open = true
}

func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Send transmits msg. It is never queued or retried: when the channel is not
// open the message is dropped, reported and ErrChannelNotOpen returned.
func (c *Channel) Send(msg *internal_message.Message) error {
	if msg == nil {
		return fmt.Errorf("send: nil message")
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	open, transport := c.open, c.transport
	c.mu.Unlock()

	if !open || transport == nil {
		c.logger.Errorw("Dropping message, channel is not open", "type", msg.Type)
		c.metrics.SendFailure("channel_not_open")
		return ErrChannelNotOpen
	}

	if msg.EventID == "" {
		msg.EventID = uuid.NewString()
	}
	payload, err := internal_message.Encode(msg)
	if err != nil {
		c.metrics.SendFailure("encode")
		return err
	}
	if err := transport.Send(payload); err != nil {
		c.logger.Errorw("Failed to transmit message", "type", msg.Type, "event_id", msg.EventID, "error", err)
		c.metrics.SendFailure("transport")
		return fmt.Errorf("transmit %s: %w", msg.Type, err)
	}

	if msg.Timestamp == "" {
		msg.Timestamp = utils.DisplayTime(c.now())
	}
	c.ledger.Append(msg)
	c.metrics.Message(internal_observability.DirectionOutbound, string(msg.Type))
	c.logger.Debugw("Message sent", "type", msg.Type, "event_id", msg.EventID)
	return nil
}

// Deliver decodes one inbound payload, records it and returns it for
// interpretation. Payloads that are not structured records are reported and
// skipped.
func (c *Channel) Deliver(raw []byte) (*internal_message.Message, error) {
	msg, err := internal_message.Decode(raw)
	if err != nil {
		c.logger.Warnw("Discarding malformed inbound payload", "error", err)
		c.metrics.Message(internal_observability.DirectionInbound, "malformed")
		return nil, err
	}
	if msg.Timestamp == "" {
		msg.Timestamp = utils.DisplayTime(c.now())
	}
	c.ledger.Append(msg)
	c.metrics.Message(internal_observability.DirectionInbound, string(msg.Type))
	return msg, nil
}

// Close stops accepting sends and closes the transport. Safe to call more
// than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	transport := c.transport
	c.open = false
	c.transport = nil
	c.mu.Unlock()

	if transport == nil {
		return nil
	}
	return transport.Close()
}
