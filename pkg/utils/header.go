// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import "fmt"

const (
	HEADER_AUTHORIZATION = "Authorization"
	HEADER_CONTENT_TYPE  = "Content-Type"
	HEADER_ACCEPT        = "Accept"

	CONTENT_TYPE_SDP  = "application/sdp"
	CONTENT_TYPE_JSON = "application/json"
)

// BearerToken renders the Authorization header value for a credential.
func BearerToken(credential string) string {
	return fmt.Sprintf("Bearer %s", credential)
}
