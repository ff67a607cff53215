// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	interviewApi "github.com/rapidaai/interview/api/interview-api/api"
	internal_audio "github.com/rapidaai/interview/api/interview-api/internal/audio"
	interview_routers "github.com/rapidaai/interview/api/interview-api/router"
	"github.com/rapidaai/interview/pkg/utils"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview HTTP API",
	Long: `serve exposes the interview session over HTTP: commands under /v1/interview,
a websocket stream of state and views, health checks and Prometheus metrics.
Microphone consent is implied by calling start.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApplication(internal_audio.AlwaysConsent)
	if err != nil {
		return err
	}
	defer app.logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if utils.FromEnvironmentStr(app.cfg.Env) == utils.PRODUCTION {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	iApi := interviewApi.NewInterviewApi(app.cfg, app.logger, app.session)
	go iApi.Run(ctx)

	interview_routers.HealthCheckRoutes(app.cfg, engine, app.logger)
	interview_routers.MetricsRoutes(engine, app.logger, app.registry)
	interview_routers.InterviewApiRoute(app.cfg, engine, app.logger, iApi)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", app.cfg.Host, app.cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Infow("Interview API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	app.logger.Infow("Shutting down interview API")
	app.session.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
