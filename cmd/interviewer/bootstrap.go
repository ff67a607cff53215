// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	internal_audio "github.com/rapidaai/interview/api/interview-api/internal/audio"
	channel_webrtc "github.com/rapidaai/interview/api/interview-api/internal/channel/webrtc"
	webrtc_internal "github.com/rapidaai/interview/api/interview-api/internal/channel/webrtc/internal"
	internal_observability "github.com/rapidaai/interview/api/interview-api/internal/observability"
	internal_session "github.com/rapidaai/interview/api/interview-api/internal/session"
	"github.com/rapidaai/interview/config"
	credential_client "github.com/rapidaai/interview/pkg/clients/credential"
	realtime_client "github.com/rapidaai/interview/pkg/clients/realtime"
	"github.com/rapidaai/interview/pkg/commons"
)

type application struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	registry *prometheus.Registry
	metrics  *internal_observability.Metrics
	session  *internal_session.Session
}

// newApplication loads configuration and wires one interview session.
// consent gates microphone acquisition.
func newApplication(consent internal_audio.ConsentFunc, loggerOpts ...commons.Option) (*application, error) {
	vConfig, err := config.InitConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []commons.Option{commons.Name(cfg.Name), commons.Level(cfg.LogLevel)}
	if cfg.LogFile != "" {
		opts = append(opts, commons.EnableFile(cfg.LogFile))
	}
	logger, err := commons.NewApplicationLogger(append(opts, loggerOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := internal_observability.NewMetrics(cfg.MetricsConfig.Namespace, registry)

	establisher := channel_webrtc.NewEstablisher(
		logger,
		webrtc_internal.FromAppConfig(cfg.WebRTCConfig, cfg.RealtimeConfig),
		realtime_client.NewRealtimeServiceClient(cfg.RealtimeConfig, logger),
		internal_audio.RecordingSinks(cfg.AudioConfig.RecordPath),
		cfg.RealtimeConfig.OpenTimeout,
	)

	session := internal_session.New(
		cfg.InterviewConfig,
		logger,
		credential_client.NewProvider(cfg.CredentialConfig, logger),
		internal_audio.NewMicrophone(consent, internal_audio.Source(cfg.AudioConfig.CaptureFile)),
		establisher,
		metrics,
	)

	logger.Infow("Interview service configured",
		"topic", cfg.InterviewConfig.Topic,
		"questions", cfg.InterviewConfig.TotalQuestions,
		"model", cfg.RealtimeConfig.Model,
		"env", cfg.Env)

	return &application{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		session:  session,
	}, nil
}
