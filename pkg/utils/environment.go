// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import "strings"

type InterviewEnvironment string

const (
	PRODUCTION  InterviewEnvironment = "production"
	DEVELOPMENT InterviewEnvironment = "development"
)

func (e InterviewEnvironment) Get() string {
	return string(e)
}

// FromEnvironmentStr parses an environment name, defaulting to DEVELOPMENT.
func FromEnvironmentStr(env string) InterviewEnvironment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production":
		return PRODUCTION
	default:
		return DEVELOPMENT
	}
}
