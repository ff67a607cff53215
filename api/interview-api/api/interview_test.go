// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	internal_audio "github.com/rapidaai/interview/api/interview-api/internal/audio"
	internal_channel "github.com/rapidaai/interview/api/interview-api/internal/channel"
	internal_interview "github.com/rapidaai/interview/api/interview-api/internal/interview"
	internal_ledger "github.com/rapidaai/interview/api/interview-api/internal/ledger"
	internal_session "github.com/rapidaai/interview/api/interview-api/internal/session"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fake session
// ============================================================================

type fakeSession struct {
	mu         sync.Mutex
	snapshot   internal_session.Snapshot
	texts      []string
	calls      []string
	err        error
	transcript []internal_ledger.TranscriptEntry
	listeners  []func()
}

func (f *fakeSession) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeSession) Start(context.Context) error {
	if err := f.record("start"); err != nil {
		return err
	}
	f.mu.Lock()
	f.snapshot.Stage = internal_interview.StageMicCheck
	f.snapshot.SessionID = "sess-1"
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) Stop() {
	_ = f.record("stop")
	f.mu.Lock()
	f.snapshot = internal_session.Snapshot{TotalQuestions: f.snapshot.TotalQuestions}
	f.mu.Unlock()
}

func (f *fakeSession) SubmitText(text string) error {
	if err := f.record("text"); err != nil {
		return err
	}
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) Advance() error { return f.record("advance") }
func (f *fakeSession) Finish() error  { return f.record("finish") }
func (f *fakeSession) Next() error    { return f.record("next") }

func (f *fakeSession) Snapshot() internal_session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeSession) Technical() []internal_ledger.TechnicalEntry {
	return []internal_ledger.TechnicalEntry{}
}

func (f *fakeSession) Transcript() []internal_ledger.TranscriptEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]internal_ledger.TranscriptEntry{}, f.transcript...)
}

func (f *fakeSession) Subscribe(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeSession) changed() {
	f.mu.Lock()
	listeners := f.listeners
	f.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (f *fakeSession) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newTestEngine(t *testing.T) (*gin.Engine, *InterviewApi, *fakeSession) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	session := &fakeSession{snapshot: internal_session.Snapshot{TotalQuestions: 10}}
	iApi := NewInterviewApi(&config.AppConfig{Name: "interview-api"}, commons.NewNopLogger(), session)

	engine := gin.New()
	group := engine.Group("v1/interview")
	group.POST("/start", iApi.Start)
	group.POST("/stop", iApi.Stop)
	group.POST("/text", iApi.SubmitText)
	group.POST("/next", iApi.Next)
	group.POST("/finish", iApi.Finish)
	group.GET("/state", iApi.State)
	group.GET("/transcript", iApi.Transcript)
	group.GET("/events", iApi.Events)
	group.GET("/stream", iApi.Stream)
	return engine, iApi, session
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// ============================================================================
// Commands
// ============================================================================

func TestStart_ReturnsSnapshot(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	w := do(engine, http.MethodPost, "/v1/interview/start", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap internal_session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, internal_interview.StageMicCheck, snap.Stage)
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.Contains(t, w.Body.String(), `"stage":"mic-check"`)
}

func TestCommands_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
	}{
		{"already active", "/v1/interview/start", "", internal_session.ErrSessionActive, http.StatusConflict},
		{"consent denied", "/v1/interview/start", "", internal_audio.ErrConsentDenied, http.StatusForbidden},
		{"negotiation failed", "/v1/interview/start", "", errors.New("negotiation: status 401"), http.StatusBadGateway},
		{"empty text", "/v1/interview/text", `{"text":"  "}`, internal_session.ErrEmptyText, http.StatusBadRequest},
		{"no channel", "/v1/interview/text", `{"text":"hi"}`, internal_channel.ErrChannelNotOpen, http.StatusConflict},
		{"not interviewing", "/v1/interview/next", "", internal_session.ErrNotInterviewing, http.StatusConflict},
		{"finish early", "/v1/interview/finish", "", internal_interview.ErrInvalidTransition, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _, session := newTestEngine(t)
			session.setErr(tt.err)

			w := do(engine, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"state"`)
		})
	}
}

func TestSubmitText_BindsBody(t *testing.T) {
	engine, _, session := newTestEngine(t)

	w := do(engine, http.MethodPost, "/v1/interview/text", `{"text":"Hello, mic check"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"Hello, mic check"}, session.texts)

	w = do(engine, http.MethodPost, "/v1/interview/text", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, session.texts, 1)
}

func TestStepCommands_CallSession(t *testing.T) {
	engine, _, session := newTestEngine(t)

	assert.Equal(t, http.StatusOK, do(engine, http.MethodPost, "/v1/interview/next", "").Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodPost, "/v1/interview/finish", "").Code)
	assert.Equal(t, http.StatusOK, do(engine, http.MethodPost, "/v1/interview/stop", "").Code)
	assert.Equal(t, []string{"next", "finish", "stop"}, session.calls)
}

func TestViews(t *testing.T) {
	engine, _, session := newTestEngine(t)
	session.transcript = []internal_ledger.TranscriptEntry{{Key: "event_1-0", Role: "assistant", Content: "Hi there"}}

	w := do(engine, http.MethodGet, "/v1/interview/transcript", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"transcript":[{"key":"event_1-0","role":"assistant","content":"Hi there","timestamp":""}]}`, w.Body.String())

	w = do(engine, http.MethodGet, "/v1/interview/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())

	w = do(engine, http.MethodGet, "/v1/interview/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stage":"idle"`)
	assert.Contains(t, w.Body.String(), `"total_questions":10`)
}

// ============================================================================
// Stream
// ============================================================================

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestStream_PushesFrameOnChange(t *testing.T) {
	engine, iApi, session := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go iApi.Run(ctx)

	srv := httptest.NewServer(engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/interview/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readFrame(t, conn)
	assert.Equal(t, internal_interview.StageIdle, initial.State.Stage)
	require.Eventually(t, func() bool { return iApi.hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	session.mu.Lock()
	session.snapshot.Stage = internal_interview.StageInterviewing
	session.snapshot.Question = 1
	session.transcript = []internal_ledger.TranscriptEntry{{Role: "user", Content: "Hello"}}
	session.mu.Unlock()
	session.changed()

	frame := readFrame(t, conn)
	assert.Equal(t, internal_interview.StageInterviewing, frame.State.Stage)
	assert.Equal(t, 1, frame.State.Question)
	require.Len(t, frame.Transcript, 1)
	assert.Equal(t, "Hello", frame.Transcript[0].Content)
}

func TestStream_UnsubscribesOnClientClose(t *testing.T) {
	engine, iApi, _ := newTestEngine(t)
	srv := httptest.NewServer(engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/interview/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return iApi.hub.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return iApi.hub.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

// ============================================================================
// Hub
// ============================================================================

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()
	slow := hub.Subscribe()
	fast := hub.Subscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Broadcast([]byte("frame"))
		<-fast
	}
	assert.Len(t, slow, subscriberBuffer)

	hub.Unsubscribe(slow)
	hub.Unsubscribe(slow)
	assert.Equal(t, 1, hub.Len())

	_, open := <-slow
	assert.True(t, open, "buffered frames stay readable after unsubscribe")
}
