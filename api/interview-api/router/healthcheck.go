// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_routers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	healthCheckApi "github.com/rapidaai/interview/api/health-check-api"
	internal_observability "github.com/rapidaai/interview/api/interview-api/internal/observability"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
)

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger) {
	logger.Info("Internal HealthCheckRoutes added to engine.")
	apiv1 := engine.Group("")
	hcApi := healthCheckApi.New(cfg, logger)
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}

func MetricsRoutes(engine *gin.Engine, logger commons.Logger, gatherer prometheus.Gatherer) {
	logger.Info("Metrics route added to engine.")
	engine.GET("/metrics", gin.WrapH(internal_observability.Handler(gatherer)))
}
