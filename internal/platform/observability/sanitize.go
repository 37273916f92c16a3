package observability

import "unicode"

const (
	maxFieldLen  = 256
	maxRouteLen  = 180
	maxMethodLen = 10
	maxUserIDLen = 64
)

// scrub drops control characters and caps length. Strings that reach the log
// from outside (webhook payloads, search terms, shipping addresses) must not
// be able to forge or truncate log lines.
func scrub(value string, limit int) string {
	if limit <= 0 {
		limit = maxFieldLen
	}

	kept := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		kept = append(kept, r)
		if len(kept) == limit {
			break
		}
	}
	return string(kept)
}

// SanitizeRoute returns a log-safe chi route pattern.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return scrub(route, maxRouteLen)
}

// SanitizeMethod returns a log-safe HTTP method.
func SanitizeMethod(method string) string {
	return scrub(method, maxMethodLen)
}

// SanitizeUserID caps identifiers before they reach the log.
func SanitizeUserID(uid string) string {
	if uid == "" {
		return ""
	}
	return scrub(uid, maxUserIDLen)
}

// SanitizeField scrubs string event-field values; everything else passes
// through untouched.
func SanitizeField(value any) any {
	if s, ok := value.(string); ok {
		return scrub(s, maxFieldLen)
	}
	return value
}
