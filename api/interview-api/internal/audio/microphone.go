// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"context"
	"errors"
	"fmt"

	internal_type "github.com/rapidaai/interview/api/interview-api/internal/type"
)

var ErrConsentDenied = errors.New("microphone access denied")

// ConsentFunc asks the user whether the microphone may be used. It may block
// until the user answers.
type ConsentFunc func(ctx context.Context) (bool, error)

// SourceFunc opens the underlying capture once consent is granted.
type SourceFunc func(ctx context.Context) (internal_type.Capture, error)

// AlwaysConsent grants access without asking.
func AlwaysConsent(context.Context) (bool, error) { return true, nil }

type microphone struct {
	consent ConsentFunc
	source  SourceFunc
}

// NewMicrophone gates source behind consent.
func NewMicrophone(consent ConsentFunc, source SourceFunc) internal_type.Microphone {
	if consent == nil {
		consent = AlwaysConsent
	}
	return &microphone{consent: consent, source: source}
}

func (m *microphone) Acquire(ctx context.Context) (internal_type.Capture, error) {
	granted, err := m.consent(ctx)
	if err != nil {
		return nil, fmt.Errorf("microphone consent: %w", err)
	}
	if !granted {
		return nil, ErrConsentDenied
	}
	capture, err := m.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	return capture, nil
}

// Source picks the capture configured for the service: a looping PCM file when
// path is set, silence otherwise.
func Source(path string) SourceFunc {
	return func(context.Context) (internal_type.Capture, error) {
		if path == "" {
			return NewSilenceCapture(), nil
		}
		return NewFileCapture(path)
	}
}
