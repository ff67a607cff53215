// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_type

import "context"

// Microphone hands out a capture once the user has consented.
type Microphone interface {
	Acquire(ctx context.Context) (Capture, error)
}

// Capture is a source of 20ms frames of 48kHz mono PCM16LE audio.
type Capture interface {
	// ReadFrame returns the next frame. It returns io.EOF once the capture
	// has been closed.
	ReadFrame(ctx context.Context) ([]byte, error)

	// Close releases the capture device. Safe to call more than once.
	Close() error
}

// AudioSink receives decoded inbound audio as 48kHz mono PCM16LE.
type AudioSink interface {
	Write(pcm []byte) error
	Close() error
}
