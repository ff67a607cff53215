// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	internal_interview "github.com/rapidaai/interview/api/interview-api/internal/interview"
	internal_session "github.com/rapidaai/interview/api/interview-api/internal/session"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run one interview in the terminal",
	Long: `console runs a single interview with the transcript printed to the terminal.
Type answers and press enter. Commands: /next, /finish, /stop.
Logs go to the configured LOG_FILE only.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	consent := func(ctx context.Context) (bool, error) {
		fmt.Fprint(out, "Allow the interviewer to use your microphone? [y/N]: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}

	app, err := newApplication(consent, commons.DisableStdout())
	if err != nil {
		return err
	}
	defer app.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	changed := make(chan struct{}, 1)
	app.session.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	ended := make(chan struct{})
	go printTranscript(ctx, out, app.session, changed, ended)

	fmt.Fprintln(out, "Connecting...")
	if err := app.session.Start(ctx); err != nil {
		return fmt.Errorf("unable to start the interview: %w", err)
	}
	defer app.session.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := in.ReadString('\n')
			if line = strings.TrimSpace(line); line != "" {
				lines <- line
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ended:
			fmt.Fprintln(out, "Session ended.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if done := runConsoleLine(out, app.session, line); done {
				return nil
			}
		}
	}
}

// runConsoleLine executes one input line and reports whether the console
// should exit.
func runConsoleLine(out io.Writer, session *internal_session.Session, line string) bool {
	var err error
	switch line {
	case "/stop":
		session.Stop()
		return true
	case "/next":
		err = session.Next()
	case "/finish":
		err = session.Finish()
	default:
		err = session.SubmitText(line)
	}
	if err != nil {
		fmt.Fprintf(out, "! %v\n", err)
	}
	return false
}

// printTranscript prints transcript entries not printed yet and stage
// changes. ended is closed once a started session drops back to idle.
func printTranscript(ctx context.Context, out io.Writer, session *internal_session.Session, changed <-chan struct{}, ended chan<- struct{}) {
	printed := make(map[string]bool)
	stage := internal_interview.StageIdle
	started := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}

		snap := session.Snapshot()
		if snap.Stage != stage {
			stage = snap.Stage
			switch stage {
			case internal_interview.StageMicCheck:
				started = true
				fmt.Fprintln(out, "-- microphone check --")
			case internal_interview.StageInterviewing:
				fmt.Fprintf(out, "-- interview: %d questions --\n", snap.TotalQuestions)
			case internal_interview.StageCompleted:
				fmt.Fprintln(out, "-- interview complete --")
			}
		}

		for _, entry := range session.Transcript() {
			key := entry.Role + ":" + entry.Content
			if printed[key] {
				continue
			}
			printed[key] = true
			fmt.Fprintf(out, "[%s] %s: %s\n", entry.Timestamp, entry.Role, entry.Content)
		}

		if started && stage == internal_interview.StageIdle && !snap.Starting {
			close(ended)
			return
		}
	}
}
