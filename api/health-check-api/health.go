// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
)

type healthCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
}

func New(cfg *config.AppConfig, logger commons.Logger) *healthCheckApi {
	return &healthCheckApi{cfg: cfg, logger: logger}
}

// Readiness reports whether the service can accept interviews.
func (hc *healthCheckApi) Readiness(c *gin.Context) {
	if hc.cfg.CredentialConfig.TokenURL == "" && hc.cfg.CredentialConfig.StaticKey == "" {
		hc.logger.Warnw("Readiness failed, no credential source configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true, "service": hc.cfg.Name, "version": hc.cfg.Version})
}

func (hc *healthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"healthy": true})
}
