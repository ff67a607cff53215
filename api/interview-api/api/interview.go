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
)

const writeWait = 10 * time.Second

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// InterviewSession is the part of a session the HTTP surface drives.
type InterviewSession interface {
	Start(ctx context.Context) error
	Stop()
	SubmitText(text string) error
	Advance() error
	Finish() error
	Next() error
	Snapshot() internal_session.Snapshot
	Technical() []internal_ledger.TechnicalEntry
	Transcript() []internal_ledger.TranscriptEntry
	Subscribe(fn func())
}

// Frame is what a stream subscriber receives on every change.
type Frame struct {
	State      internal_session.Snapshot         `json:"state"`
	Events     []internal_ledger.TechnicalEntry  `json:"events"`
	Transcript []internal_ledger.TranscriptEntry `json:"transcript"`
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

// ============================================================================
// InterviewApi
// ============================================================================

type InterviewApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	session InterviewSession
	hub     *Hub
	changed chan struct{}
}

func NewInterviewApi(cfg *config.AppConfig, logger commons.Logger, session InterviewSession) *InterviewApi {
	api := &InterviewApi{
		cfg:     cfg,
		logger:  logger,
		session: session,
		hub:     NewHub(),
		changed: make(chan struct{}, 1),
	}
	// session listeners may run under the session lock; only signal here
	session.Subscribe(func() {
		select {
		case api.changed <- struct{}{}:
		default:
		}
	})
	return api
}

// Run publishes a frame to the stream hub after every session change until
// ctx is done.
func (iApi *InterviewApi) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-iApi.changed:
			payload, err := json.Marshal(iApi.frame())
			if err != nil {
				iApi.logger.Errorw("Failed to encode stream frame", "error", err)
				continue
			}
			iApi.hub.Broadcast(payload)
		}
	}
}

func (iApi *InterviewApi) frame() Frame {
	return Frame{
		State:      iApi.session.Snapshot(),
		Events:     iApi.session.Technical(),
		Transcript: iApi.session.Transcript(),
	}
}

// ============================================================================
// Commands
// ============================================================================

func (iApi *InterviewApi) Start(c *gin.Context) {
	if err := iApi.session.Start(c.Request.Context()); err != nil {
		iApi.logger.Errorw("Unable to start interview", "error", err)
		iApi.fail(c, err, "Unable to start the interview, please try again.")
		return
	}
	c.JSON(http.StatusOK, iApi.session.Snapshot())
}

func (iApi *InterviewApi) Stop(c *gin.Context) {
	iApi.session.Stop()
	c.JSON(http.StatusOK, iApi.session.Snapshot())
}

func (iApi *InterviewApi) SubmitText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if err := iApi.session.SubmitText(req.Text); err != nil {
		iApi.fail(c, err, "Unable to send your answer.")
		return
	}
	c.JSON(http.StatusAccepted, iApi.session.Snapshot())
}

func (iApi *InterviewApi) Next(c *gin.Context) {
	iApi.step(c, iApi.session.Next)
}

func (iApi *InterviewApi) Advance(c *gin.Context) {
	iApi.step(c, iApi.session.Advance)
}

func (iApi *InterviewApi) Finish(c *gin.Context) {
	iApi.step(c, iApi.session.Finish)
}

func (iApi *InterviewApi) step(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		iApi.fail(c, err, "Unable to move the interview forward.")
		return
	}
	c.JSON(http.StatusOK, iApi.session.Snapshot())
}

// ============================================================================
// Views
// ============================================================================

func (iApi *InterviewApi) State(c *gin.Context) {
	c.JSON(http.StatusOK, iApi.session.Snapshot())
}

func (iApi *InterviewApi) Events(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": iApi.session.Technical()})
}

func (iApi *InterviewApi) Transcript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transcript": iApi.session.Transcript()})
}

// Stream upgrades to a websocket, sends the current frame and then every
// frame published after a change.
func (iApi *InterviewApi) Stream(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		iApi.logger.Errorw("Stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := iApi.hub.Subscribe()
	defer iApi.hub.Unsubscribe(ch)

	// the client only ever closes; reading surfaces that
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	initial, err := json.Marshal(iApi.frame())
	if err != nil {
		iApi.logger.Errorw("Failed to encode stream frame", "error", err)
		return
	}
	if err := iApi.write(conn, initial); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := iApi.write(conn, msg); err != nil {
				iApi.logger.Debugw("Stream subscriber gone", "error", err)
				return
			}
		}
	}
}

func (iApi *InterviewApi) write(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// fail maps session errors to HTTP status codes.
func (iApi *InterviewApi) fail(c *gin.Context, err error, message string) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, internal_session.ErrEmptyText):
		status = http.StatusBadRequest
	case errors.Is(err, internal_audio.ErrConsentDenied):
		status = http.StatusForbidden
	case errors.Is(err, internal_session.ErrSessionActive),
		errors.Is(err, internal_session.ErrSessionStopped),
		errors.Is(err, internal_session.ErrNotInterviewing),
		errors.Is(err, internal_interview.ErrInvalidTransition),
		errors.Is(err, internal_channel.ErrChannelNotOpen):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{
		"error":   err.Error(),
		"message": message,
		"state":   iApi.session.Snapshot(),
	})
}
