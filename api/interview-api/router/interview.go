// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package interview_routers

import (
	"github.com/gin-gonic/gin"
	interviewApi "github.com/rapidaai/interview/api/interview-api/api"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
)

func InterviewApiRoute(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, iApi *interviewApi.InterviewApi) {
	logger.Info("Interview routes added to engine.")
	apiv1 := engine.Group("v1/interview")
	{
		apiv1.POST("/start", iApi.Start)
		apiv1.POST("/stop", iApi.Stop)
		apiv1.POST("/text", iApi.SubmitText)
		apiv1.POST("/next", iApi.Next)
		apiv1.POST("/advance", iApi.Advance)
		apiv1.POST("/finish", iApi.Finish)

		apiv1.GET("/state", iApi.State)
		apiv1.GET("/events", iApi.Events)
		apiv1.GET("/transcript", iApi.Transcript)
		apiv1.GET("/stream", iApi.Stream)
	}
}
