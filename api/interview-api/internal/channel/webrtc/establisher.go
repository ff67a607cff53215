// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package channel_webrtc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	pionwebrtc "github.com/pion/webrtc/v4"
	internal_audio "github.com/rapidaai/interview/api/interview-api/internal/audio"
	webrtc_internal "github.com/rapidaai/interview/api/interview-api/internal/channel/webrtc/internal"
	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	realtime_client "github.com/rapidaai/interview/pkg/clients/realtime"
	"github.com/rapidaai/interview/pkg/commons"
)

var ErrOpenTimeout = errors.New("data channel did not open in time")

// ============================================================================
// establisher - offer/answer against the realtime endpoint
// ============================================================================

type establisher struct {
	logger      commons.Logger
	config      *webrtc_internal.Config
	negotiator  realtime_client.RealtimeServiceClient
	sinks       internal_audio.SinkFactory
	openTimeout time.Duration
}

// NewEstablisher returns an Establisher that negotiates through negotiator and
// hands inbound audio to a sink created per transport.
func NewEstablisher(
	logger commons.Logger,
	config *webrtc_internal.Config,
	negotiator realtime_client.RealtimeServiceClient,
	sinks internal_audio.SinkFactory,
	openTimeout time.Duration,
) internal_type.Establisher {
	if config == nil {
		config = webrtc_internal.DefaultConfig()
	}
	if sinks == nil {
		sinks = internal_audio.RecordingSinks("")
	}
	return &establisher{
		logger:      logger,
		config:      config,
		negotiator:  negotiator,
		sinks:       sinks,
		openTimeout: openTimeout,
	}
}

// Establish builds the peer connection, adds the microphone track before the
// data channel and the offer so the offer advertises audio, exchanges the SDP
// and waits until the data channel reports open. On any failure everything
// created so far is closed and no transport is returned.
func (e *establisher) Establish(ctx context.Context, credential string, capture internal_type.Capture) (internal_type.Transport, error) {
	start := time.Now()
	codec, err := internal_audio.NewOpusCodec()
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	t := newWebRTCTransport(e.logger, sessionID, capture, e.sinks(sessionID), codec)

	if err := e.connect(ctx, t, credential); err != nil {
		_ = t.Close()
		return nil, err
	}
	e.logger.Benchmark("webrtc.Establish", time.Since(start))
	e.logger.Infow("WebRTC transport established", "session", sessionID)
	return t, nil
}

func (e *establisher) connect(ctx context.Context, t *webrtcTransport, credential string) error {
	if err := e.createPeerConnection(t); err != nil {
		return err
	}
	if err := e.createLocalTrack(t); err != nil {
		return err
	}

	dc, err := t.pc.CreateDataChannel(e.config.DataChannelLabel, nil)
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	t.dataChannel = dc
	t.setupDataChannelHandlers()

	offer, err := e.createAndSetLocalOffer(ctx, t)
	if err != nil {
		return err
	}

	answer, err := e.negotiator.Negotiate(ctx, credential, offer.SDP)
	if err != nil {
		return err
	}
	if err := t.pc.SetRemoteDescription(pionwebrtc.SessionDescription{
		Type: pionwebrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	t.audioWg.Add(1)
	go t.runCapturePump()

	return e.waitOpen(ctx, t)
}

// ============================================================================
// Peer Connection Setup
// ============================================================================

func (e *establisher) createPeerConnection(t *webrtcTransport) error {
	mediaEngine := &pionwebrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(pionwebrtc.RTPCodecParameters{
		RTPCodecCapability: pionwebrtc.RTPCodecCapability{
			MimeType:    pionwebrtc.MimeTypeOpus,
			ClockRate:   webrtc_internal.OpusSampleRate,
			Channels:    webrtc_internal.OpusChannels,
			SDPFmtpLine: webrtc_internal.OpusSDPFmtpLine,
		},
		PayloadType: webrtc_internal.OpusPayloadType,
	}, pionwebrtc.RTPCodecTypeAudio); err != nil {
		return fmt.Errorf("failed to register Opus codec: %w", err)
	}

	// Interceptors (default includes NACK for audio packet recovery)
	registry := &interceptor.Registry{}
	if err := pionwebrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return fmt.Errorf("failed to register interceptors: %w", err)
	}

	api := pionwebrtc.NewAPI(
		pionwebrtc.WithMediaEngine(mediaEngine),
		pionwebrtc.WithInterceptorRegistry(registry),
	)

	iceServers := make([]pionwebrtc.ICEServer, len(e.config.ICEServers))
	for i, srv := range e.config.ICEServers {
		iceServers[i] = pionwebrtc.ICEServer{
			URLs:       srv.URLs,
			Username:   srv.Username,
			Credential: srv.Credential,
		}
	}

	pcConfig := pionwebrtc.Configuration{ICEServers: iceServers}
	if e.config.ICETransportPolicy == "relay" {
		pcConfig.ICETransportPolicy = pionwebrtc.ICETransportPolicyRelay
	}

	pc, err := api.NewPeerConnection(pcConfig)
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	t.pc = pc
	t.setupPeerEventHandlers()
	return nil
}

func (e *establisher) createLocalTrack(t *webrtcTransport) error {
	track, err := pionwebrtc.NewTrackLocalStaticSample(
		pionwebrtc.RTPCodecCapability{
			MimeType:  pionwebrtc.MimeTypeOpus,
			ClockRate: webrtc_internal.OpusSampleRate,
			Channels:  webrtc_internal.OpusChannels,
		},
		"audio",
		"interview-microphone",
	)
	if err != nil {
		return fmt.Errorf("failed to create local audio track: %w", err)
	}
	if _, err := t.pc.AddTrack(track); err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	t.localTrack = track
	return nil
}

// createAndSetLocalOffer creates the SDP offer, sets it as local description
// and waits for ICE gathering so the offer carries every candidate. The
// remote endpoint does not take trickled candidates.
func (e *establisher) createAndSetLocalOffer(ctx context.Context, t *webrtcTransport) (*pionwebrtc.SessionDescription, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	gathered := pionwebrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, fmt.Errorf("ice gathering: %w", ctx.Err())
	}
	return t.pc.LocalDescription(), nil
}

func (e *establisher) waitOpen(ctx context.Context, t *webrtcTransport) error {
	var timeout <-chan time.Time
	if e.openTimeout > 0 {
		timer := time.NewTimer(e.openTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-t.openedCh:
		return nil
	case <-t.closedCh:
		return fmt.Errorf("transport closed before the data channel opened")
	case <-timeout:
		return ErrOpenTimeout
	case <-ctx.Done():
		return fmt.Errorf("waiting for data channel: %w", ctx.Err())
	}
}
