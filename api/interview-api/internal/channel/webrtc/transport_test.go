// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package channel_webrtc

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	pionwebrtc "github.com/pion/webrtc/v4"
	internal_audio "github.com/rapidaai/interview/api/interview-api/internal/audio"
	webrtc_internal "github.com/rapidaai/interview/api/interview-api/internal/channel/webrtc/internal"
	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	realtime_client "github.com/rapidaai/interview/pkg/clients/realtime"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test helpers
// ============================================================================

type recordingSink struct {
	mu     sync.Mutex
	writes int
	closed int
}

func (s *recordingSink) Write([]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type trackingCapture struct {
	*internal_audio.SilenceCapture
	mu     sync.Mutex
	closed int
}

func (c *trackingCapture) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return c.SilenceCapture.Close()
}

type negotiatorFunc func(ctx context.Context, credential, offer string) (string, error)

func (f negotiatorFunc) Negotiate(ctx context.Context, credential, offer string) (string, error) {
	return f(ctx, credential, offer)
}

func localConfig() *webrtc_internal.Config {
	return &webrtc_internal.Config{DataChannelLabel: "oai-events", ICETransportPolicy: "all"}
}

func recvKinds(t *testing.T, tr internal_type.Transport, n int) []internal_type.Event {
	t.Helper()
	events := make([]internal_type.Event, 0, n)
	for i := 0; i < n; i++ {
		ev, err := tr.Recv()
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

// ============================================================================
// Event ordering
// ============================================================================

func TestBaseTransport_OpenBeforeFirstMessage(t *testing.T) {
	tr := newWebRTCTransport(commons.NewNopLogger(), "s1", nil, nil, nil)

	// message callback raced ahead of the open callback
	tr.pushMessage([]byte(`{"type":"session.created"}`))
	tr.markOpen()
	tr.pushMessage([]byte(`{"type":"session.updated"}`))
	tr.pushClosed(internal_type.DisconnectReasonChannelClosed)
	tr.pushMessage([]byte(`{"type":"late"}`))
	tr.markOpen()

	events := recvKinds(t, tr, 4)
	assert.Equal(t, internal_type.EventOpen, events[0].Kind)
	assert.Equal(t, internal_type.EventMessage, events[1].Kind)
	assert.JSONEq(t, `{"type":"session.created"}`, string(events[1].Payload))
	assert.Equal(t, internal_type.EventMessage, events[2].Kind)
	assert.Equal(t, internal_type.EventClosed, events[3].Kind)
	assert.Equal(t, internal_type.DisconnectReasonChannelClosed, events[3].Reason)

	require.NoError(t, tr.Close())
	_, err := tr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBaseTransport_ClosedReportedOnce(t *testing.T) {
	tr := newWebRTCTransport(commons.NewNopLogger(), "s1", nil, nil, nil)
	tr.markOpen()
	tr.pushClosed(internal_type.DisconnectReasonConnectionFailed)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	events := recvKinds(t, tr, 2)
	assert.Equal(t, internal_type.EventClosed, events[1].Kind)
	assert.Equal(t, internal_type.DisconnectReasonConnectionFailed, events[1].Reason)

	_, err := tr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBaseTransport_BacklogKeepsEveryMessageAndTheClose(t *testing.T) {
	tr := newWebRTCTransport(commons.NewNopLogger(), "s1", nil, nil, nil)
	total := webrtc_internal.EventChannelSize + 10

	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		tr.markOpen()
		for i := 0; i < total; i++ {
			tr.pushMessage([]byte(fmt.Sprintf(`{"type":"delta","n":%d}`, i)))
		}
		tr.pushClosed(internal_type.DisconnectReasonConnectionFailed)
	}()

	// let the producer fill the buffer and block
	require.Eventually(t, func() bool {
		return len(tr.eventCh) == webrtc_internal.EventChannelSize
	}, 2*time.Second, 5*time.Millisecond)

	ev, err := tr.Recv()
	require.NoError(t, err)
	assert.Equal(t, internal_type.EventOpen, ev.Kind)
	for i := 0; i < total; i++ {
		ev, err := tr.Recv()
		require.NoError(t, err)
		require.Equal(t, internal_type.EventMessage, ev.Kind)
		assert.JSONEq(t, fmt.Sprintf(`{"type":"delta","n":%d}`, i), string(ev.Payload))
	}

	ev, err = tr.Recv()
	require.NoError(t, err)
	assert.Equal(t, internal_type.EventClosed, ev.Kind)
	assert.Equal(t, internal_type.DisconnectReasonConnectionFailed, ev.Reason)
	<-pushed

	_, err = tr.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBaseTransport_CloseReleasesBlockedPush(t *testing.T) {
	tr := newWebRTCTransport(commons.NewNopLogger(), "s1", nil, nil, nil)
	// open plus EventChannelSize-1 messages fill the buffer
	for i := 0; i < webrtc_internal.EventChannelSize-1; i++ {
		tr.pushMessage([]byte(`{"type":"delta"}`))
	}

	pushed := make(chan struct{})
	go func() {
		defer close(pushed)
		tr.pushMessage([]byte(`{"type":"late"}`))
	}()

	require.NoError(t, tr.Close())
	select {
	case <-pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("push stayed blocked after close")
	}
}

func TestBaseTransport_RecvWaitsForClose(t *testing.T) {
	tr := newWebRTCTransport(commons.NewNopLogger(), "s1", nil, nil, nil)
	tr.markOpen()
	ev, err := tr.Recv()
	require.NoError(t, err)
	assert.Equal(t, internal_type.EventOpen, ev.Kind)

	got := make(chan internal_type.Event, 1)
	go func() {
		ev, _ := tr.Recv()
		got <- ev
	}()
	time.AfterFunc(20*time.Millisecond, func() {
		tr.pushClosed(internal_type.DisconnectReasonPeerClosed)
	})

	select {
	case ev := <-got:
		assert.Equal(t, internal_type.EventClosed, ev.Kind)
		assert.Equal(t, internal_type.DisconnectReasonPeerClosed, ev.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("close was not reported")
	}
}

func TestTransport_SendRequiresOpen(t *testing.T) {
	tr := newWebRTCTransport(commons.NewNopLogger(), "s1", nil, nil, nil)
	assert.ErrorIs(t, tr.Send([]byte(`{}`)), errTransportClosed)
}

// ============================================================================
// Establish
// ============================================================================

func TestEstablish_NegotiationFailureReleasesEverything(t *testing.T) {
	sink := &recordingSink{}
	capture := &trackingCapture{SilenceCapture: internal_audio.NewSilenceCapture()}

	var offered string
	e := NewEstablisher(commons.NewNopLogger(), localConfig(),
		negotiatorFunc(func(_ context.Context, credential, offer string) (string, error) {
			assert.Equal(t, "ek_123", credential)
			offered = offer
			return "", realtime_client.ErrNegotiationRejected
		}),
		func(string) internal_type.AudioSink { return sink },
		time.Second,
	)

	tr, err := e.Establish(context.Background(), "ek_123", capture)
	assert.ErrorIs(t, err, realtime_client.ErrNegotiationRejected)
	assert.Nil(t, tr)

	// the microphone track was added before the offer was created
	assert.Contains(t, offered, "m=audio")
	assert.Contains(t, offered, "m=application")
	assert.Equal(t, 1, capture.closed)
	assert.Equal(t, 1, sink.closed)
}

func TestEstablish_LoopbackPeer(t *testing.T) {
	remoteMessages := make(chan string, 4)
	var remote *pionwebrtc.PeerConnection
	t.Cleanup(func() {
		if remote != nil {
			_ = remote.Close()
		}
	})

	negotiator := negotiatorFunc(func(ctx context.Context, _ string, offer string) (string, error) {
		pc, err := pionwebrtc.NewPeerConnection(pionwebrtc.Configuration{})
		if err != nil {
			return "", err
		}
		remote = pc
		pc.OnDataChannel(func(dc *pionwebrtc.DataChannel) {
			dc.OnOpen(func() {
				_ = dc.SendText(`{"type":"session.created","event_id":"event_1"}`)
			})
			dc.OnMessage(func(msg pionwebrtc.DataChannelMessage) {
				remoteMessages <- string(msg.Data)
			})
		})
		if err := pc.SetRemoteDescription(pionwebrtc.SessionDescription{Type: pionwebrtc.SDPTypeOffer, SDP: offer}); err != nil {
			return "", err
		}
		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			return "", err
		}
		gathered := pionwebrtc.GatheringCompletePromise(pc)
		if err := pc.SetLocalDescription(answer); err != nil {
			return "", err
		}
		<-gathered
		return pc.LocalDescription().SDP, nil
	})

	e := NewEstablisher(commons.NewNopLogger(), localConfig(), negotiator, nil, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tr, err := e.Establish(ctx, "ek_123", internal_audio.NewSilenceCapture())
	require.NoError(t, err)
	assert.NotEmpty(t, tr.SessionID())

	ev, err := tr.Recv()
	require.NoError(t, err)
	assert.Equal(t, internal_type.EventOpen, ev.Kind)

	ev, err = tr.Recv()
	require.NoError(t, err)
	assert.Equal(t, internal_type.EventMessage, ev.Kind)
	assert.Contains(t, string(ev.Payload), "session.created")

	require.NoError(t, tr.Send([]byte(`{"type":"response.create"}`)))
	select {
	case got := <-remoteMessages:
		assert.Equal(t, `{"type":"response.create"}`, got)
	case <-time.After(5 * time.Second):
		t.Fatal("remote peer did not receive the message")
	}

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.Error(t, tr.Send([]byte(`{}`)))
}
