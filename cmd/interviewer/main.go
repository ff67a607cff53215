// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envPath string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "interviewer",
	Short: "Realtime voice mock interviews",
	Long: `interviewer runs mock technical interviews against a realtime voice model.
It checks the microphone first, then asks a fixed number of questions and
closes with an evaluation.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "Path to the .env configuration file")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if envPath != "" {
			_ = os.Setenv("ENV_PATH", envPath)
		}
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
