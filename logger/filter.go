package logger

import "strings"

// redactedValue replaces sensitive header values in log output.
const redactedValue = "[REDACTED]"

// sensitiveHeaders are the header keys (lowercase) whose values never
// reach the log.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
	"x-session-token":     {},
}

// RedactHeaders returns a copy of the header map with sensitive values
// replaced. Matching is case-insensitive.
func RedactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return headers
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSensitiveHeader(k) {
			out[k] = redactedValue
		} else {
			out[k] = v
		}
	}
	return out
}

// IsSensitiveHeader reports whether a header key carries credentials or
// session material.
func IsSensitiveHeader(key string) bool {
	_, ok := sensitiveHeaders[strings.ToLower(key)]
	return ok
}
