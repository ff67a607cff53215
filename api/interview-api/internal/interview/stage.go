// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_interview

import (
	"errors"
	"fmt"
)

// Stage is the interview progress. Stages only move forward; Reset returns
// to StageIdle.
type Stage int

const (
	StageIdle Stage = iota
	StageMicCheck
	StageInterviewing
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageMicCheck:
		return "mic-check"
	case StageInterviewing:
		return "interviewing"
	case StageCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	for _, candidate := range []Stage{StageIdle, StageMicCheck, StageInterviewing, StageCompleted} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown interview stage %q", text)
}

var ErrInvalidTransition = errors.New("invalid interview transition")
