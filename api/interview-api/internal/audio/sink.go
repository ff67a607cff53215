// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"bytes"
	"path/filepath"
	"sync"

	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
)

type discardSink struct{}

// NewDiscardSink drops inbound audio.
func NewDiscardSink() internal_type.AudioSink { return discardSink{} }

func (discardSink) Write([]byte) error { return nil }
func (discardSink) Close() error       { return nil }

// WAVSink records the interviewer's voice and writes it as a WAV file on
// Close.
type WAVSink struct {
	mu     sync.Mutex
	path   string
	buf    bytes.Buffer
	closed bool
}

func NewWAVSink(path string) *WAVSink {
	return &WAVSink{path: path}
}

func (w *WAVSink) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.buf.Write(pcm)
	return nil
}

func (w *WAVSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return WriteWAVPCM16LEFile(w.path, w.buf.Bytes(), SampleRate)
}

// SinkFactory returns a fresh sink per transport.
type SinkFactory func(sessionID string) internal_type.AudioSink

// RecordingSinks writes one <session>.wav per transport into dir. An empty
// dir discards inbound audio.
func RecordingSinks(dir string) SinkFactory {
	return func(sessionID string) internal_type.AudioSink {
		if dir == "" {
			return NewDiscardSink()
		}
		return NewWAVSink(filepath.Join(dir, sessionID+".wav"))
	}
}
