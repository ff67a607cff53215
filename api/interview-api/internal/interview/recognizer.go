// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_interview

import "strings"

type MatchKind string

const (
	// MatchConfirmation: the model confirmed it can hear the user.
	MatchConfirmation MatchKind = "confirmation"
	// MatchConfusion: the model fell back to a generic assistant persona and
	// the mic check has to be forced closed.
	MatchConfusion MatchKind = "confusion"
)

type Match struct {
	Kind   MatchKind
	Phrase string
}

// Recognizer decides whether a model reply ends the mic check.
type Recognizer struct {
	confirmation []string
	confusion    []string
}

func NewRecognizer(confirmation, confusion []string) *Recognizer {
	return &Recognizer{
		confirmation: normalize(confirmation),
		confusion:    normalize(confusion),
	}
}

// Match performs a case-insensitive substring search. Confirmation phrases
// are checked before confusion phrases.
func (r *Recognizer) Match(text string) (Match, bool) {
	lowered := strings.ToLower(text)
	if lowered == "" {
		return Match{}, false
	}
	for _, phrase := range r.confirmation {
		if strings.Contains(lowered, phrase) {
			return Match{Kind: MatchConfirmation, Phrase: phrase}, true
		}
	}
	for _, phrase := range r.confusion {
		if strings.Contains(lowered, phrase) {
			return Match{Kind: MatchConfusion, Phrase: phrase}, true
		}
	}
	return Match{}, false
}

func normalize(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
