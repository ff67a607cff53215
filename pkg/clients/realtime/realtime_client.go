// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package realtime_client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/utils"
)

var (
	ErrNegotiationRejected = errors.New("realtime endpoint rejected the offer")
	ErrMalformedAnswer     = errors.New("realtime endpoint returned a malformed answer")
)

// RealtimeServiceClient exchanges a local SDP offer for the remote answer.
type RealtimeServiceClient interface {
	Negotiate(ctx context.Context, credential, offerSDP string) (string, error)
}

type realtimeServiceClient struct {
	logger  commons.Logger
	client  *resty.Client
	baseURL string
	model   string
}

func NewRealtimeServiceClient(cfg config.RealtimeConfig, logger commons.Logger) RealtimeServiceClient {
	return &realtimeServiceClient{
		logger:  logger,
		client:  resty.New().SetTimeout(cfg.OpenTimeout),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Negotiate posts the offer body verbatim and returns the answer body
// verbatim.
func (c *realtimeServiceClient) Negotiate(ctx context.Context, credential, offerSDP string) (string, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("model", c.model).
		SetHeader(utils.HEADER_AUTHORIZATION, utils.BearerToken(credential)).
		SetHeader(utils.HEADER_CONTENT_TYPE, utils.CONTENT_TYPE_SDP).
		SetBody(offerSDP).
		Post(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("negotiate: %w", err)
	}
	c.logger.Benchmark("realtime.Negotiate", time.Since(start))

	if !resp.IsSuccess() {
		c.logger.Warnw("Realtime endpoint rejected offer", "status", resp.StatusCode(), "model", c.model)
		return "", fmt.Errorf("%w: status %d", ErrNegotiationRejected, resp.StatusCode())
	}
	answer := resp.String()
	if !strings.HasPrefix(answer, "v=") {
		return "", ErrMalformedAnswer
	}
	return answer, nil
}
