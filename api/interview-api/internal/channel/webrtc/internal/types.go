// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package webrtc_internal

import (
	"github.com/rapidaai/interview/config"
)

// Opus audio constants (WebRTC standard: 48kHz)
const (
	OpusSampleRate    = 48000
	OpusFrameDuration = 20  // milliseconds
	OpusChannels      = 2   // Opus RTP always signals 2 encoding channels (opus/48000/2) per RFC 7587, even for mono voice
	OpusPayloadType   = 111 // Standard dynamic payload type for Opus
	OpusSDPFmtpLine   = "minptime=10;useinbandfec=1;stereo=0;sprop-stereo=0"
)

// Channel and buffer sizes
const (
	EventChannelSize     = 500  // Buffered transport events (open, data channel messages, closed)
	RTPBufferSize        = 1500 // Max RTP packet size (MTU)
	MaxConsecutiveErrors = 50   // Max read errors before stopping
)

// Config holds WebRTC configuration
type Config struct {
	ICEServers         []ICEServer
	ICETransportPolicy string // "all" or "relay"
	DataChannelLabel   string
}

// ICEServer represents a STUN/TURN server
type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

// DefaultConfig returns default WebRTC configuration
func DefaultConfig() *Config {
	return &Config{
		ICEServers: []ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
			{URLs: []string{"stun:stun1.l.google.com:19302"}},
		},
		ICETransportPolicy: "all",
		DataChannelLabel:   "oai-events",
	}
}

// FromAppConfig builds the peer configuration from the service config. All
// configured URLs share one username/credential pair.
func FromAppConfig(webrtc config.WebRTCConfig, realtime config.RealtimeConfig) *Config {
	cfg := DefaultConfig()
	if len(webrtc.ICEServers) > 0 {
		cfg.ICEServers = []ICEServer{{
			URLs:       webrtc.ICEServers,
			Username:   webrtc.ICEUsername,
			Credential: webrtc.ICECredential,
		}}
	}
	if webrtc.ICETransportPolicy != "" {
		cfg.ICETransportPolicy = webrtc.ICETransportPolicy
	}
	if realtime.DataChannel != "" {
		cfg.DataChannelLabel = realtime.DataChannel
	}
	return cfg
}
