// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package channel_webrtc

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/rtp"
	pionwebrtc "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	internal_audio "github.com/rapidaai/interview/api/interview-api/internal/audio"
	webrtc_internal "github.com/rapidaai/interview/api/interview-api/internal/channel/webrtc/internal"
	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	"github.com/rapidaai/interview/pkg/commons"
)

var errTransportClosed = errors.New("transport is closed")

// ============================================================================
// webrtcTransport - peer connection + data channel to the realtime model
// ============================================================================

// webrtcTransport implements internal_type.Transport on a pion peer
// connection. Microphone audio flows out through a local Opus track, the
// model's voice comes back on the remote track, and JSON events travel over
// the data channel.
type webrtcTransport struct {
	baseTransport

	sessionID string

	// Pion WebRTC
	pc          *pionwebrtc.PeerConnection
	localTrack  *pionwebrtc.TrackLocalStaticSample
	dataChannel *pionwebrtc.DataChannel
	opusCodec   *internal_audio.OpusCodec

	capture internal_type.Capture
	sink    internal_type.AudioSink

	audioWg sync.WaitGroup // capture pump + remote reader
}

func newWebRTCTransport(
	logger commons.Logger,
	sessionID string,
	capture internal_type.Capture,
	sink internal_type.AudioSink,
	codec *internal_audio.OpusCodec,
) *webrtcTransport {
	return &webrtcTransport{
		baseTransport: newBaseTransport(logger),
		sessionID:     sessionID,
		capture:       capture,
		sink:          sink,
		opusCodec:     codec,
	}
}

func (t *webrtcTransport) SessionID() string {
	return t.sessionID
}

// ============================================================================
// Pion callbacks
// ============================================================================

func (t *webrtcTransport) setupPeerEventHandlers() {
	t.pc.OnConnectionStateChange(func(state pionwebrtc.PeerConnectionState) {
		t.logger.Infow("WebRTC connection state changed", "state", state, "session", t.sessionID)
		switch state {
		case pionwebrtc.PeerConnectionStateFailed:
			t.logger.Errorw("WebRTC connection failed, closing session", "session", t.sessionID)
			t.pushClosed(internal_type.DisconnectReasonConnectionFailed)
		case pionwebrtc.PeerConnectionStateClosed:
			t.pushClosed(internal_type.DisconnectReasonPeerClosed)
		case pionwebrtc.PeerConnectionStateDisconnected:
			// Transient; ICE may recover. Failed follows if it does not.
			t.logger.Warnw("WebRTC peer disconnected", "session", t.sessionID)
		}
	})

	t.pc.OnTrack(func(track *pionwebrtc.TrackRemote, _ *pionwebrtc.RTPReceiver) {
		if track.Kind() != pionwebrtc.RTPCodecTypeAudio {
			return
		}
		t.logger.Infow("Remote audio track received", "codec", track.Codec().MimeType, "session", t.sessionID)
		t.audioWg.Add(1)
		go t.readRemoteAudio(track)
	})
}

func (t *webrtcTransport) setupDataChannelHandlers() {
	t.dataChannel.OnOpen(func() {
		t.logger.Infow("Data channel open", "label", t.dataChannel.Label(), "session", t.sessionID)
		t.markOpen()
	})
	t.dataChannel.OnMessage(func(msg pionwebrtc.DataChannelMessage) {
		t.pushMessage(msg.Data)
	})
	t.dataChannel.OnClose(func() {
		t.pushClosed(internal_type.DisconnectReasonChannelClosed)
	})
}

// ============================================================================
// Output audio: capture -> Opus -> local track
// ============================================================================

// runCapturePump paces capture frames onto the local track at real time.
func (t *webrtcTransport) runCapturePump() {
	defer t.audioWg.Done()

	ticker := time.NewTicker(webrtc_internal.OpusFrameDuration * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := t.capture.ReadFrame(t.ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && t.ctx.Err() == nil {
				t.logger.Warnw("Microphone capture stopped", "error", err, "session", t.sessionID)
			}
			return
		}
		packet, err := t.opusCodec.Encode(frame)
		if err != nil {
			t.logger.Debugw("Opus encode failed", "error", err)
			continue
		}
		if err := t.localTrack.WriteSample(media.Sample{
			Data:     packet,
			Duration: webrtc_internal.OpusFrameDuration * time.Millisecond,
		}); err != nil {
			t.logger.Debugw("Failed to write sample to track", "error", err)
		}
	}
}

// ============================================================================
// Input audio: remote track -> RTP -> Opus decode -> sink
// ============================================================================

func (t *webrtcTransport) readRemoteAudio(track *pionwebrtc.TrackRemote) {
	defer t.audioWg.Done()

	if mimeType := track.Codec().MimeType; mimeType != pionwebrtc.MimeTypeOpus {
		t.logger.Errorw("Unsupported codec, only Opus is supported", "codec", mimeType)
		return
	}

	decoder, err := internal_audio.NewOpusCodec()
	if err != nil {
		t.logger.Errorw("Failed to create Opus decoder", "error", err)
		return
	}

	buf := make([]byte, webrtc_internal.RTPBufferSize)
	consecutiveErrors := 0
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		n, _, err := track.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			consecutiveErrors++
			if consecutiveErrors >= webrtc_internal.MaxConsecutiveErrors {
				t.logger.Errorw("Too many consecutive read errors, stopping audio reader", "lastError", err)
				return
			}
			continue
		}
		consecutiveErrors = 0

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			t.logger.Debugw("Failed to unmarshal RTP packet", "error", err)
			continue
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		pcm, err := decoder.Decode(pkt.Payload)
		if err != nil {
			t.logger.Debugw("Opus decode failed", "error", err, "payloadSize", len(pkt.Payload))
			continue
		}
		if err := t.sink.Write(pcm); err != nil {
			t.logger.Debugw("Audio sink write failed", "error", err)
		}
	}
}

// ============================================================================
// Transport interface
// ============================================================================

// Send writes one JSON event as a text message on the data channel.
func (t *webrtcTransport) Send(payload []byte) error {
	if !t.isOpen() {
		return errTransportClosed
	}
	if err := t.dataChannel.SendText(string(payload)); err != nil {
		return fmt.Errorf("data channel send: %w", err)
	}
	return nil
}

// Close tears down the data channel, local media and the peer connection.
// It is idempotent: the first call pushes a normal closed event (unless the
// peer already reported one) and releases resources, later calls are no-ops.
func (t *webrtcTransport) Close() error {
	t.pushClosed(internal_type.DisconnectReasonNormal)

	var err error
	t.closeOnce.Do(func() {
		err = t.teardown()
	})
	return err
}

func (t *webrtcTransport) teardown() error {
	// Stop audio goroutines first; they depend on ctx.
	t.cancel()
	if t.capture != nil {
		_ = t.capture.Close()
	}

	var errs []error
	if t.dataChannel != nil {
		if err := t.dataChannel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data channel: %w", err))
		}
	}
	if t.pc != nil {
		if err := t.pc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close peer connection: %w", err))
		}
	}
	// Remote track reads return once the peer connection is closed.
	t.audioWg.Wait()

	if t.sink != nil {
		if err := t.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close audio sink: %w", err))
		}
	}
	t.logger.Infow("WebRTC transport closed", "session", t.sessionID)
	return errors.Join(errs...)
}
