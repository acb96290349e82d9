// Package logutil keeps request and payload details safe to put in logs.
// Collections carry note bodies, so payloads are summarized by size and item
// IDs and never echoed.
package logutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"
)

const truncatedSuffix = "... [truncated]"

// sensitiveFragments match header names after lowercasing and dropping - and _.
var sensitiveFragments = []string{"auth", "token", "secret", "password", "apikey", "cookie", "credential"}

// IsSensitiveLogField reports whether a header or field name likely holds a secret.
func IsSensitiveLogField(key string) bool {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
	for _, frag := range sensitiveFragments {
		if strings.Contains(normalized, frag) {
			return true
		}
	}
	return false
}

// FormatHeadersForLog renders headers sorted by name with sensitive values redacted.
func FormatHeadersForLog(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(headers.Values(k), ", ")
		if IsSensitiveLogField(k) {
			value = "[REDACTED]"
		}
		parts = append(parts, fmt.Sprintf("%s=%q", strings.ToLower(k), value))
	}
	return strings.Join(parts, "; ")
}

// TruncateForLog returns value on one line, cut to at most maxChars bytes
// without splitting a UTF-8 sequence. maxChars <= 0 means no limit.
func TruncateForLog(value string, maxChars int) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "\n", `\n`)
	if maxChars <= 0 || len(normalized) <= maxChars {
		return normalized
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(normalized[cut]) {
		cut--
	}
	return normalized[:cut] + truncatedSuffix
}

// PayloadSummary describes a collection body by size, item count and up to
// maxIDs item IDs, e.g. `3 items, 96 bytes, ids=[n1 n2 ...]`.
func PayloadSummary(body []byte, maxIDs int) string {
	if len(body) == 0 {
		return "<empty>"
	}
	var items []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return fmt.Sprintf("%d bytes, not a collection", len(body))
	}

	ids := make([]string, 0, min(len(items), max(maxIDs, 0)))
	for _, it := range items {
		if len(ids) == cap(ids) {
			break
		}
		ids = append(ids, it.ID)
	}
	if len(items) > len(ids) {
		ids = append(ids, "...")
	}
	return fmt.Sprintf("%d items, %d bytes, ids=[%s]", len(items), len(body), strings.Join(ids, " "))
}
