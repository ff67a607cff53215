// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_interview

import (
	"fmt"
	"sync"
)

type InstructionKind string

const (
	InstructionMicCheck      InstructionKind = "mic-check"
	InstructionFirstQuestion InstructionKind = "first-question"
	InstructionNextQuestion  InstructionKind = "next-question"
	InstructionEvaluation    InstructionKind = "evaluation"
)

// Instruction is what the session sends to the remote model as a
// response.create after a transition.
type Instruction struct {
	Kind     InstructionKind
	Question int
	Text     string
}

// Machine tracks the interview stage and the current question index.
//
//	idle -> mic-check -> interviewing -> completed
//
// Every transition other than Reset moves forward. The question index is 0 in
// idle and mic-check, 1..total while interviewing, and stays at total once
// completed.
type Machine struct {
	mu       sync.Mutex
	prompts  Prompts
	stage    Stage
	question int
	resolved bool
}

func NewMachine(prompts Prompts) *Machine {
	return &Machine{prompts: prompts, stage: StageIdle}
}

func (m *Machine) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

func (m *Machine) Question() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.question
}

func (m *Machine) TotalQuestions() int {
	return m.prompts.TotalQuestions
}

// Begin enters mic-check once the transport is up.
func (m *Machine) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageIdle {
		return m.invalid("begin")
	}
	m.stage = StageMicCheck
	m.question = 0
	m.resolved = false
	return nil
}

// MicCheck returns the instruction asking the user to test their microphone.
func (m *Machine) MicCheck() Instruction {
	return Instruction{Kind: InstructionMicCheck, Text: m.prompts.MicCheck()}
}

// ResolveMicCheck marks the mic check as resolved. Only the first caller while
// in mic-check gets true; user text and the reply heuristic both go through
// here so the transition is scheduled at most once.
func (m *Machine) ResolveMicCheck() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageMicCheck || m.resolved {
		return false
	}
	m.resolved = true
	return true
}

func (m *Machine) StartInterview() (Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageMicCheck {
		return Instruction{}, m.invalid("start interview")
	}
	m.stage = StageInterviewing
	m.question = 1
	return Instruction{Kind: InstructionFirstQuestion, Question: 1, Text: m.prompts.FirstQuestion()}, nil
}

// Advance moves to the next question. The index is read once and incremented
// once, so the instruction and Question() always agree.
func (m *Machine) Advance() (Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageInterviewing || m.question >= m.prompts.TotalQuestions {
		return Instruction{}, m.invalid("advance")
	}
	next := m.question + 1
	m.question = next
	return Instruction{Kind: InstructionNextQuestion, Question: next, Text: m.prompts.NextQuestion(next)}, nil
}

// Finish completes the interview after the last question. The index is left
// at its final value.
func (m *Machine) Finish() (Instruction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != StageInterviewing || m.question != m.prompts.TotalQuestions {
		return Instruction{}, m.invalid("finish")
	}
	m.stage = StageCompleted
	return Instruction{Kind: InstructionEvaluation, Question: m.question, Text: m.prompts.Evaluation()}, nil
}

// Next advances, or finishes when the last question has been asked.
func (m *Machine) Next() (Instruction, error) {
	m.mu.Lock()
	last := m.stage == StageInterviewing && m.question >= m.prompts.TotalQuestions
	m.mu.Unlock()
	if last {
		return m.Finish()
	}
	return m.Advance()
}

func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = StageIdle
	m.question = 0
	m.resolved = false
}

func (m *Machine) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s (question %d of %d)", ErrInvalidTransition, op, m.stage, m.question, m.prompts.TotalQuestions)
}
