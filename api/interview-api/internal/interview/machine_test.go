// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_interview

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterviewing(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(NewPrompts("React", 10))
	require.NoError(t, m.Begin())
	_, err := m.StartInterview()
	require.NoError(t, err)
	return m
}

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine(NewPrompts("React", 10))
	assert.Equal(t, StageIdle, m.Stage())
	assert.Equal(t, 0, m.Question())
	assert.Equal(t, 10, m.TotalQuestions())
}

func TestMachine_Begin(t *testing.T) {
	m := NewMachine(NewPrompts("React", 10))
	require.NoError(t, m.Begin())
	assert.Equal(t, StageMicCheck, m.Stage())
	assert.Equal(t, 0, m.Question())

	err := m.Begin()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StageMicCheck, m.Stage())
}

func TestMachine_ResolveMicCheckOnlyOnce(t *testing.T) {
	m := NewMachine(NewPrompts("React", 10))
	assert.False(t, m.ResolveMicCheck(), "not in mic-check yet")

	require.NoError(t, m.Begin())
	assert.True(t, m.ResolveMicCheck())
	assert.False(t, m.ResolveMicCheck())
}

func TestMachine_ResolveMicCheckRace(t *testing.T) {
	m := NewMachine(NewPrompts("React", 10))
	require.NoError(t, m.Begin())

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.ResolveMicCheck() {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestMachine_ResetClearsResolvedFlag(t *testing.T) {
	m := NewMachine(NewPrompts("React", 10))
	require.NoError(t, m.Begin())
	require.True(t, m.ResolveMicCheck())

	m.Reset()
	assert.Equal(t, StageIdle, m.Stage())
	require.NoError(t, m.Begin())
	assert.True(t, m.ResolveMicCheck())
}

func TestMachine_StartInterview(t *testing.T) {
	m := NewMachine(NewPrompts("React", 10))
	_, err := m.StartInterview()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, m.Begin())
	in, err := m.StartInterview()
	require.NoError(t, err)
	assert.Equal(t, StageInterviewing, m.Stage())
	assert.Equal(t, 1, m.Question())
	assert.Equal(t, InstructionFirstQuestion, in.Kind)
	assert.Equal(t, 1, in.Question)
	assert.Contains(t, in.Text, "React components and their types")

	_, err = m.StartInterview()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachine_AdvanceInstructionMatchesIndex(t *testing.T) {
	m := newInterviewing(t)
	for want := 2; want <= 10; want++ {
		in, err := m.Advance()
		require.NoError(t, err)
		assert.Equal(t, want, m.Question())
		assert.Equal(t, want, in.Question)
		assert.Contains(t, in.Text, "question #"+strconv.Itoa(want)+" of 10")
	}
}

func TestMachine_AdvanceFromNineThenFinish(t *testing.T) {
	m := newInterviewing(t)
	for m.Question() < 9 {
		_, err := m.Advance()
		require.NoError(t, err)
	}

	in, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, InstructionNextQuestion, in.Kind)
	assert.Equal(t, 10, m.Question())
	assert.Contains(t, in.Text, "question #10 of 10")

	_, err = m.Advance()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	in, err = m.Next()
	require.NoError(t, err)
	assert.Equal(t, InstructionEvaluation, in.Kind)
	assert.Equal(t, StageCompleted, m.Stage())
	assert.Equal(t, 10, m.Question())

	_, err = m.Next()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StageCompleted, m.Stage())
	assert.Equal(t, 10, m.Question())
}

func TestMachine_FinishBeforeLastQuestionRejected(t *testing.T) {
	m := newInterviewing(t)
	_, err := m.Finish()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StageInterviewing, m.Stage())
	assert.Equal(t, 1, m.Question())
}

func TestMachine_StagesAreMonotonic(t *testing.T) {
	m := newInterviewing(t)
	last := m.Stage()
	for i := 0; i < 15; i++ {
		_, _ = m.Next()
		_ = m.Begin()
		_, _ = m.StartInterview()
		assert.GreaterOrEqual(t, m.Stage(), last)
		last = m.Stage()
		if m.Stage() == StageInterviewing {
			assert.GreaterOrEqual(t, m.Question(), 1)
			assert.LessOrEqual(t, m.Question(), 10)
		}
	}
	assert.Equal(t, StageCompleted, m.Stage())

	m.Reset()
	assert.Equal(t, StageIdle, m.Stage())
	assert.Equal(t, 0, m.Question())
}

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageIdle, "idle"},
		{StageMicCheck, "mic-check"},
		{StageInterviewing, "interviewing"},
		{StageCompleted, "completed"},
		{Stage(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.stage.String())
	}
}

func TestStage_TextRoundTrip(t *testing.T) {
	var s Stage
	require.NoError(t, s.UnmarshalText([]byte("interviewing")))
	assert.Equal(t, StageInterviewing, s)
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}
