// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package credential_client

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rapidaai/interview/config"
	"github.com/rapidaai/interview/pkg/commons"
	"github.com/rapidaai/interview/pkg/utils"
)

var ErrMissingCredential = errors.New("credential response has no client_secret.value")

// CredentialProvider mints the short-lived key used to negotiate a realtime
// session.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

type tokenResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

type httpProvider struct {
	logger   commons.Logger
	client   *resty.Client
	tokenURL string
}

// NewHTTPProvider fetches credentials from the token service at TokenURL.
func NewHTTPProvider(cfg config.CredentialConfig, logger commons.Logger) CredentialProvider {
	return &httpProvider{
		logger:   logger,
		client:   resty.New().SetTimeout(cfg.Timeout),
		tokenURL: cfg.TokenURL,
	}
}

func (p *httpProvider) Credential(ctx context.Context) (string, error) {
	var body tokenResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader(utils.HEADER_ACCEPT, utils.CONTENT_TYPE_JSON).
		ForceContentType(utils.CONTENT_TYPE_JSON).
		SetResult(&body).
		Get(p.tokenURL)
	if err != nil {
		return "", fmt.Errorf("fetch credential: %w", err)
	}
	if !resp.IsSuccess() {
		p.logger.Warnw("Credential service rejected request", "status", resp.StatusCode(), "url", p.tokenURL)
		return "", fmt.Errorf("fetch credential: unexpected status %d", resp.StatusCode())
	}
	if utils.IsEmpty(body.ClientSecret.Value) {
		return "", ErrMissingCredential
	}
	return body.ClientSecret.Value, nil
}

type staticProvider struct {
	key string
}

// NewStaticProvider always returns key. Meant for local development.
func NewStaticProvider(key string) CredentialProvider {
	return staticProvider{key: key}
}

func (p staticProvider) Credential(context.Context) (string, error) {
	if utils.IsEmpty(p.key) {
		return "", ErrMissingCredential
	}
	return p.key, nil
}

// NewProvider picks the static key when configured, the token service
// otherwise.
func NewProvider(cfg config.CredentialConfig, logger commons.Logger) CredentialProvider {
	if !utils.IsEmpty(cfg.StaticKey) {
		return NewStaticProvider(cfg.StaticKey)
	}
	return NewHTTPProvider(cfg, logger)
}
