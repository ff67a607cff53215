// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"strings"
	"time"
)

// IsEmpty reports whether s contains nothing but whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// DisplayTime formats t the way timestamps are shown next to events.
func DisplayTime(t time.Time) string {
	return t.Local().Format(time.TimeOnly)
}
