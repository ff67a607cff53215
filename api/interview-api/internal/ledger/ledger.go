// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_ledger

import (
	"sync"

	internal_message "github.com/rapidaai/interview/api/interview-api/internal/message"
)

// Ledger is the raw, newest-first record of every message exchanged in a
// session. It never deduplicates; reductions happen only in the views.
type Ledger struct {
	mu        sync.RWMutex
	entries   []*internal_message.Message
	listeners []func()
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append prepends msg to the record.
func (l *Ledger) Append(msg *internal_message.Message) {
	if msg == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, nil)
	copy(l.entries[1:], l.entries)
	l.entries[0] = msg
	listeners := l.listeners
	l.mu.Unlock()

	notify(listeners)
}

// Reset empties the record.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.entries = nil
	listeners := l.listeners
	l.mu.Unlock()

	notify(listeners)
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the record, newest first.
func (l *Ledger) Entries() []*internal_message.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*internal_message.Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Subscribe registers fn to run after every change. fn runs on the
// goroutine that changed the ledger and must not block.
func (l *Ledger) Subscribe(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
