// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	internal_channel "github.com/rapidaai/interview/api/interview-api/internal/channel"
	internal_interview "github.com/rapidaai/interview/api/interview-api/internal/interview"
	internal_ledger "github.com/rapidaai/interview/api/interview-api/internal/ledger"
	internal_message "github.com/rapidaai/interview/api/interview-api/internal/message"
	internal_observability "github.com/rapidaai/interview/api/interview-api/internal/observability"
	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionActive   = errors.New("session already started")
	ErrSessionStopped  = errors.New("session stopped during setup")
	ErrNotInterviewing = errors.New("interview is not in progress")
	ErrEmptyText       = errors.New("text is empty")
)

// Snapshot is the state the rendering surface shows next to the views.
type Snapshot struct {
	SessionID      string                   `json:"session_id,omitempty"`
	Stage          internal_interview.Stage `json:"stage"`
	Question       int                      `json:"question"`
	TotalQuestions int                      `json:"total_questions"`
	Active         bool                     `json:"active"`
	Starting       bool                     `json:"starting"`
}

// ============================================================================
// Session - one realtime interview
// ============================================================================

// Session exclusively owns the transport, the channel and the microphone
// capture of one interview. Every state change happens under mu, including
// timer callbacks, so inbound messages, user actions and delays are handled
// one at a time.
//
// epoch is bumped by every Start and Stop. Timers and the event loop capture
// the epoch they were created in and do nothing once it has moved on.
type Session struct {
	mu sync.Mutex

	logger      commons.Logger
	cfg         config.InterviewConfig
	credentials internal_type.CredentialProvider
	microphone  internal_type.Microphone
	establisher internal_type.Establisher
	metrics     *internal_observability.Metrics

	machine    *internal_interview.Machine
	recognizer *internal_interview.Recognizer
	ledger     *internal_ledger.Ledger

	sessionID   string
	transport   internal_type.Transport
	channel     *internal_channel.Channel
	capture     internal_type.Capture
	active      bool
	starting    bool
	cancelStart context.CancelFunc
	epoch       uint64
	timers      []*time.Timer

	listeners []func()
}

func New(
	cfg config.InterviewConfig,
	logger commons.Logger,
	credentials internal_type.CredentialProvider,
	microphone internal_type.Microphone,
	establisher internal_type.Establisher,
	metrics *internal_observability.Metrics,
) *Session {
	return &Session{
		logger:      logger,
		cfg:         cfg,
		credentials: credentials,
		microphone:  microphone,
		establisher: establisher,
		metrics:     metrics,
		machine:     internal_interview.NewMachine(internal_interview.NewPrompts(cfg.Topic, cfg.TotalQuestions)),
		recognizer:  internal_interview.NewRecognizer(cfg.ConfirmationPhrases, cfg.ConfusionPhrases),
		ledger:      internal_ledger.NewLedger(),
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Start fetches a credential and acquires the microphone concurrently, then
// establishes the transport. On success the interview enters mic-check and
// the event loop starts. On failure everything acquired is released and the
// session stays idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.starting || s.machine.Stage() != internal_interview.StageIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.epoch++
	epoch := s.epoch
	ctx, cancel := context.WithCancel(ctx)
	s.starting = true
	s.cancelStart = cancel
	s.mu.Unlock()
	defer cancel()

	s.metrics.SessionEvent("start")
	s.notify()
	start := time.Now()

	var (
		credential string
		capture    internal_type.Capture
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.credentials.Credential(gctx)
		if err != nil {
			return &setupError{stage: "credential", err: err}
		}
		credential = c
		return nil
	})
	g.Go(func() error {
		c, err := s.microphone.Acquire(gctx)
		if err != nil {
			return &setupError{stage: "microphone", err: err}
		}
		capture = c
		return nil
	})
	if err := g.Wait(); err != nil {
		if capture != nil {
			_ = capture.Close()
		}
		return s.failStart(epoch, err)
	}

	transport, err := s.establisher.Establish(ctx, credential, capture)
	if err != nil {
		_ = capture.Close()
		return s.failStart(epoch, &setupError{stage: "negotiation", err: err})
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		_ = transport.Close()
		_ = capture.Close()
		s.logger.Infow("Session stopped during setup, discarding transport", "session", transport.SessionID())
		return ErrSessionStopped
	}
	if err := s.machine.Begin(); err != nil {
		s.starting = false
		s.cancelStart = nil
		s.mu.Unlock()
		_ = transport.Close()
		_ = capture.Close()
		return err
	}
	s.starting = false
	s.cancelStart = nil
	s.sessionID = transport.SessionID()
	s.transport = transport
	s.capture = capture
	s.channel = internal_channel.NewChannel(s.logger, s.ledger, s.metrics, transport)
	go s.runEventLoop(epoch, transport, s.channel)
	s.mu.Unlock()

	s.metrics.ObserveSetupLatency(time.Since(start))
	s.metrics.StageTransition(internal_interview.StageIdle.String(), internal_interview.StageMicCheck.String())
	s.logger.Infow("Session started", "session", transport.SessionID(), "duration_ms", time.Since(start).Milliseconds())
	s.notify()
	return nil
}

// Stop releases the transport, channel and capture and resets the interview
// to idle regardless of its stage. Pending timers are invalidated. Safe to
// call at any time, including during Start.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopLocked("user")
	s.mu.Unlock()
	s.notify()
}

func (s *Session) stopLocked(reason string) {
	s.epoch++
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil

	if s.cancelStart != nil {
		s.cancelStart()
		s.cancelStart = nil
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warnw("Error closing transport", "session", s.sessionID, "error", err)
		}
	} else if s.transport != nil {
		_ = s.transport.Close()
	}
	if s.capture != nil {
		_ = s.capture.Close()
	}

	from := s.machine.Stage()
	wasActive := s.active
	sessionID := s.sessionID

	s.channel = nil
	s.transport = nil
	s.capture = nil
	s.active = false
	s.starting = false
	s.sessionID = ""
	s.machine.Reset()

	if wasActive {
		s.metrics.ActiveSessions.Dec()
	}
	if from != internal_interview.StageIdle {
		s.metrics.StageTransition(from.String(), internal_interview.StageIdle.String())
		s.metrics.SessionEvent("stop")
		s.logger.Infow("Session stopped", "session", sessionID, "reason", reason, "stage", from)
	}
}

func (s *Session) failStart(epoch uint64, err error) error {
	s.mu.Lock()
	if s.epoch == epoch {
		s.starting = false
		s.cancelStart = nil
	}
	s.mu.Unlock()

	stage := "unknown"
	var se *setupError
	if errors.As(err, &se) {
		stage = se.stage
	}
	s.logger.Errorw("Session setup failed", "stage", stage, "error", err)
	s.metrics.SetupFailure(stage)
	s.notify()
	return err
}

// ============================================================================
// Event loop
// ============================================================================

// runEventLoop consumes transport events strictly in order until the
// transport closes.
func (s *Session) runEventLoop(epoch uint64, transport internal_type.Transport, ch *internal_channel.Channel) {
	for {
		ev, err := transport.Recv()
		if err != nil {
			s.stopEpoch(epoch, "transport_eof")
			return
		}
		switch ev.Kind {
		case internal_type.EventOpen:
			s.handleOpen(epoch, ch)
		case internal_type.EventMessage:
			s.handleMessage(epoch, ch, ev.Payload)
		case internal_type.EventClosed:
			s.logger.Infow("Transport closed", "session", transport.SessionID(), "reason", ev.Reason)
			s.stopEpoch(epoch, string(ev.Reason))
			return
		}
	}
}

func (s *Session) stopEpoch(epoch uint64, reason string) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.stopLocked(reason)
	s.mu.Unlock()
	s.notify()
}

// handleOpen resets the ledger, marks the session active and schedules the
// mic-check prompt.
func (s *Session) handleOpen(epoch uint64, ch *internal_channel.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	ch.Open()
	if !s.active {
		s.active = true
		s.metrics.ActiveSessions.Inc()
	}
	s.metrics.SessionEvent("open")
	s.scheduleLocked(epoch, s.cfg.MicCheckDelay, s.sendMicCheckLocked)
}

// handleMessage records an inbound message and applies the mic-check reply
// heuristic.
func (s *Session) handleMessage(epoch uint64, ch *internal_channel.Channel, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	msg, err := ch.Deliver(payload)
	if err != nil {
		return
	}
	switch msg.Type {
	case internal_message.TypeError:
		if msg.Error != nil {
			s.logger.Warnw("Remote model reported an error", "code", msg.Error.Code, "message", msg.Error.Message)
		}
	case internal_message.TypeResponseDone:
		if s.machine.Stage() != internal_interview.StageMicCheck {
			return
		}
		match, ok := s.recognizer.Match(msg.ResponsePhrases())
		if !ok || !s.machine.ResolveMicCheck() {
			return
		}
		s.logger.Infow("Mic check resolved by model reply", "kind", match.Kind, "phrase", match.Phrase)
		s.metrics.SessionEvent("mic_check_" + string(match.Kind))
		s.scheduleLocked(epoch, s.cfg.TransitionDelay, s.startInterviewLocked)
	}
}

// ============================================================================
// User actions
// ============================================================================

// SubmitText sends a typed answer followed by a bare response request. In
// mic-check the first answer also resolves the mic check.
func (s *Session) SubmitText(text string) error {
	if utils.IsEmpty(text) {
		return ErrEmptyText
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sendLocked(internal_message.NewUserText(text)); err != nil {
		return err
	}
	if err := s.sendLocked(internal_message.NewResponseCreate("")); err != nil {
		return err
	}
	if s.machine.Stage() == internal_interview.StageMicCheck && s.machine.ResolveMicCheck() {
		s.logger.Infow("Mic check resolved by user text", "session", s.sessionID)
		s.metrics.SessionEvent("mic_check_user")
		s.scheduleLocked(s.epoch, s.cfg.TransitionDelay, s.startInterviewLocked)
	}
	return nil
}

// Advance asks for feedback on the last answer and the next question.
func (s *Session) Advance() error {
	return s.transition((*internal_interview.Machine).Advance)
}

// Finish asks for the closing evaluation after the last question.
func (s *Session) Finish() error {
	return s.transition((*internal_interview.Machine).Finish)
}

// Next advances, or finishes after the last question.
func (s *Session) Next() error {
	return s.transition((*internal_interview.Machine).Next)
}

func (s *Session) transition(step func(*internal_interview.Machine) (internal_interview.Instruction, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel == nil || s.machine.Stage() != internal_interview.StageInterviewing {
		return ErrNotInterviewing
	}
	from := s.machine.Stage()
	instruction, err := step(s.machine)
	if err != nil {
		return err
	}
	if to := s.machine.Stage(); to != from {
		s.metrics.StageTransition(from.String(), to.String())
	}
	s.logger.Infow("Interview instruction", "kind", instruction.Kind, "question", instruction.Question)
	return s.sendLocked(internal_message.NewResponseCreate(instruction.Text))
}

// ============================================================================
// Timer callbacks (run under mu)
// ============================================================================

func (s *Session) sendMicCheckLocked() {
	if s.machine.Stage() != internal_interview.StageMicCheck {
		return
	}
	_ = s.sendLocked(internal_message.NewResponseCreate(s.machine.MicCheck().Text))
}

func (s *Session) startInterviewLocked() {
	instruction, err := s.machine.StartInterview()
	if err != nil {
		return
	}
	s.metrics.StageTransition(internal_interview.StageMicCheck.String(), internal_interview.StageInterviewing.String())
	s.logger.Infow("Interview started", "session", s.sessionID)
	_ = s.sendLocked(internal_message.NewResponseCreate(instruction.Text))
}

// scheduleLocked runs fn under mu after d unless the epoch has moved on.
func (s *Session) scheduleLocked(epoch uint64, d time.Duration, fn func()) {
	if s.epoch != epoch {
		return
	}
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		fn()
		s.mu.Unlock()
		s.notify()
	})
	s.timers = append(s.timers, timer)
}

func (s *Session) sendLocked(msg *internal_message.Message) error {
	if s.channel == nil {
		s.logger.Errorw("Dropping message, no open channel", "type", msg.Type)
		s.metrics.SendFailure("no_session")
		return internal_channel.ErrChannelNotOpen
	}
	return s.channel.Send(msg)
}

// ============================================================================
// Views
// ============================================================================

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID:      s.sessionID,
		Stage:          s.machine.Stage(),
		Question:       s.machine.Question(),
		TotalQuestions: s.machine.TotalQuestions(),
		Active:         s.active,
		Starting:       s.starting,
	}
}

func (s *Session) Technical() []internal_ledger.TechnicalEntry {
	return s.ledger.Technical()
}

func (s *Session) Transcript() []internal_ledger.TranscriptEntry {
	return s.ledger.Transcript()
}

// Subscribe registers fn to run after every ledger or state change. fn may
// run while the session lock is held, so it must only signal and never call
// back into the session synchronously.
func (s *Session) Subscribe(fn func()) {
	s.ledger.Subscribe(fn)
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

type setupError struct {
	stage string
	err   error
}

func (e *setupError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *setupError) Unwrap() error {
	return e.err
}
