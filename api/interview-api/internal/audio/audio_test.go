// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Microphone
// ============================================================================

func TestMicrophone_ConsentDenied(t *testing.T) {
	opened := false
	mic := NewMicrophone(
		func(context.Context) (bool, error) { return false, nil },
		func(context.Context) (internal_type.Capture, error) { opened = true; return NewSilenceCapture(), nil },
	)

	_, err := mic.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrConsentDenied)
	assert.False(t, opened, "device must not be opened without consent")
}

func TestMicrophone_ConsentError(t *testing.T) {
	mic := NewMicrophone(
		func(context.Context) (bool, error) { return false, errors.New("prompt closed") },
		Source(""),
	)
	_, err := mic.Acquire(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConsentDenied)
}

func TestMicrophone_Granted(t *testing.T) {
	mic := NewMicrophone(nil, Source(""))
	capture, err := mic.Acquire(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &SilenceCapture{}, capture)
}

func TestMicrophone_SourceFailure(t *testing.T) {
	mic := NewMicrophone(AlwaysConsent, Source(filepath.Join(t.TempDir(), "missing.pcm")))
	_, err := mic.Acquire(context.Background())
	assert.Error(t, err)
}

// ============================================================================
// Captures
// ============================================================================

func TestSilenceCapture(t *testing.T) {
	c := NewSilenceCapture()
	frame, err := c.ReadFrame(context.Background())
	require.NoError(t, err)
	assert.Len(t, frame, FrameBytes)
	assert.Equal(t, make([]byte, FrameBytes), frame)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	_, err = c.ReadFrame(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestSilenceCapture_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSilenceCapture().ReadFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileCapture_LoopsAndDropsPartialFrame(t *testing.T) {
	pcm := make([]byte, FrameBytes*2+10)
	for i := range pcm[:FrameBytes] {
		pcm[i] = 1
	}
	for i := FrameBytes; i < FrameBytes*2; i++ {
		pcm[i] = 2
	}
	path := filepath.Join(t.TempDir(), "mic.pcm")
	require.NoError(t, os.WriteFile(path, pcm, 0o600))

	c, err := NewFileCapture(path)
	require.NoError(t, err)

	var firsts []byte
	for i := 0; i < 3; i++ {
		frame, err := c.ReadFrame(context.Background())
		require.NoError(t, err)
		require.Len(t, frame, FrameBytes)
		firsts = append(firsts, frame[0])
	}
	assert.Equal(t, []byte{1, 2, 1}, firsts)
}

func TestFileCapture_TooShort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.pcm")
	require.NoError(t, os.WriteFile(path, []byte{0, 1, 2}, 0o600))
	_, err := NewFileCapture(path)
	assert.Error(t, err)
}

// ============================================================================
// Sinks
// ============================================================================

func TestWAVSink_WritesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec", "session.wav")
	sink := NewWAVSink(path)
	require.NoError(t, sink.Write([]byte{1, 0, 2, 0}))
	require.NoError(t, sink.Write([]byte{3, 0}))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 44+6)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(SampleRate), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(6), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0}, data[44:])
}

func TestRecordingSinks(t *testing.T) {
	assert.Equal(t, NewDiscardSink(), RecordingSinks("")("abc"))

	dir := t.TempDir()
	sink := RecordingSinks(dir)("abc")
	require.NoError(t, sink.Close())
	_, err := os.Stat(filepath.Join(dir, "abc.wav"))
	assert.NoError(t, err)
}

func TestWriteWAVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAVPCM16LETo(&buf, nil, 16000))
	data := buf.Bytes()
	require.Len(t, data, 44)
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(data[28:32]))
}

// ============================================================================
// PCM helpers
// ============================================================================

func TestSampleConversion(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	assert.Equal(t, samples, BytesToSamples(SamplesToBytes(samples)))
}

func TestOpusCodec_EncodeRejectsWrongFrameSize(t *testing.T) {
	codec, err := NewOpusCodec()
	require.NoError(t, err)
	_, err = codec.Encode(make([]byte, 10))
	assert.Error(t, err)
}

func TestOpusCodec_SilenceRoundTrip(t *testing.T) {
	codec, err := NewOpusCodec()
	require.NoError(t, err)

	packet, err := codec.Encode(make([]byte, FrameBytes))
	require.NoError(t, err)
	assert.NotEmpty(t, packet)

	pcm, err := codec.Decode(packet)
	require.NoError(t, err)
	assert.Len(t, pcm, FrameBytes)
}
