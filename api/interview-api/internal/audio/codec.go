// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"gopkg.in/hraban/opus.v2"
)

// WebRTC audio is 48kHz. Captures and sinks work in mono PCM16LE.
const (
	SampleRate       = 48000
	Channels         = 1
	FrameDurationMs  = 20
	FrameSamples     = SampleRate * FrameDurationMs / 1000 // 960
	FrameBytes       = FrameSamples * 2                    // 1920
	maxOpusFrameSize = 4000
	// 120ms is the longest frame an Opus packet can carry.
	maxDecodeSamples = SampleRate * 120 / 1000
)

// OpusCodec encodes and decodes 48kHz mono frames. Encoder and decoder state
// is not shared between goroutines, so each direction is guarded separately.
type OpusCodec struct {
	encMu   sync.Mutex
	encoder *opus.Encoder
	decMu   sync.Mutex
	decoder *opus.Decoder
}

func NewOpusCodec() (*OpusCodec, error) {
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	dec, err := opus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	return &OpusCodec{encoder: enc, decoder: dec}, nil
}

// Encode compresses one 20ms PCM16LE frame.
func (c *OpusCodec) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) != FrameBytes {
		return nil, fmt.Errorf("opus encode: frame must be %d bytes, got %d", FrameBytes, len(pcm))
	}
	samples := BytesToSamples(pcm)
	out := make([]byte, maxOpusFrameSize)

	c.encMu.Lock()
	n, err := c.encoder.Encode(samples, out)
	c.encMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return out[:n], nil
}

// Decode expands one Opus packet to PCM16LE.
func (c *OpusCodec) Decode(packet []byte) ([]byte, error) {
	samples := make([]int16, maxDecodeSamples*Channels)

	c.decMu.Lock()
	n, err := c.decoder.Decode(packet, samples)
	c.decMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return SamplesToBytes(samples[:n*Channels]), nil
}

func BytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}

func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
