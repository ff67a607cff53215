// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// closer is the shared idempotent close flag of every capture.
type closer struct {
	mu     sync.Mutex
	closed bool
}

func (c *closer) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *closer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// SilenceCapture yields silent frames. Used when no audio input is configured
// so the offer still advertises a sending audio track.
type SilenceCapture struct {
	closer
	frame []byte
}

func NewSilenceCapture() *SilenceCapture {
	return &SilenceCapture{frame: make([]byte, FrameBytes)}
}

func (s *SilenceCapture) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, io.EOF
	}
	return s.frame, nil
}

// FileCapture plays a raw 48kHz mono PCM16LE file in a loop.
type FileCapture struct {
	closer
	pcm []byte
	pos int
}

func NewFileCapture(path string) (*FileCapture, error) {
	pcm, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture file: %w", err)
	}
	if len(pcm) < FrameBytes {
		return nil, fmt.Errorf("capture file %s holds less than one %dms frame", path, FrameDurationMs)
	}
	// drop a trailing partial frame
	pcm = pcm[:len(pcm)-len(pcm)%FrameBytes]
	return &FileCapture{pcm: pcm}, nil
}

func (f *FileCapture) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.isClosed() {
		return nil, io.EOF
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := f.pcm[f.pos : f.pos+FrameBytes]
	f.pos = (f.pos + FrameBytes) % len(f.pcm)
	return frame, nil
}
