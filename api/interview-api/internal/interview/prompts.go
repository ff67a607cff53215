// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_interview

import (
	"fmt"
	"strings"
)

// Prompts composes the instructions sent to the remote model at each stage.
type Prompts struct {
	Topic          string
	TotalQuestions int
}

func NewPrompts(topic string, totalQuestions int) Prompts {
	return Prompts{Topic: topic, TotalQuestions: totalQuestions}
}

func (p Prompts) MicCheck() string {
	return dedent(fmt.Sprintf(`
		You are a mock interviewer for %[1]s developers. First, we need to check if the user's microphone is working.
		Ask the user to say "Hi, I am ready to start" or something similar to check their microphone.
		Wait for their response. If you can hear them clearly, confirm that their microphone is working and that we're ready to begin the interview.
	`, p.Topic))
}

func (p Prompts) FirstQuestion() string {
	return dedent(fmt.Sprintf(`
		You are now a mock interviewer for %[1]s developers. The interview will consist of %[2]d questions focusing on %[1]s fundamentals.
		The interview has just started. Ask one question at a time and wait for the user's response.
		After the user answers, provide brief feedback on their answer before moving to the next question.
		Keep track of how well they're doing to provide an overall assessment at the end.
		For the first question, ask about %[1]s components and their types.
	`, p.Topic, p.TotalQuestions))
}

// NextQuestion asks for feedback on the previous answer followed by the
// given question number.
func (p Prompts) NextQuestion(number int) string {
	return dedent(fmt.Sprintf(`
		Ask the next question (question #%[1]d of %[2]d).
		Remember to provide brief feedback on their previous answer first.
		Make this a fundamental %[3]s interview question appropriate for beginners to intermediate developers.
	`, number, p.TotalQuestions, p.Topic))
}

func (p Prompts) Evaluation() string {
	return dedent(fmt.Sprintf(`
		The interview is now complete. Provide a comprehensive evaluation of the candidate's performance.
		Highlight their strengths and areas for improvement based on their responses to all %d questions.
		Give them an overall rating and suggestions for further learning.
	`, p.TotalQuestions))
}

func dedent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
