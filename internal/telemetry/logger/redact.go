package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// Sensitive key patterns whose values are partially masked. trayctl logs
// snapshot metadata, and user and machine names identify a person.
var sensitiveKeyPatterns = []string{
	"user",
	"host",
	"sid",
	"password",
	"secret",
	"credential",
}

// profilePath matches the account segment of a Windows profile path.
var profilePath = regexp.MustCompile(`(?i)([a-z]:\\+users\\+)([^\\]+)`)

// redactedValue is the placeholder for values too short to mask.
const redactedValue = "***REDACTED***"

// redactSensitive masks identifying data in an attribute.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strVal == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(strVal))
		}
		if masked := RedactString(strVal); masked != strVal {
			return slog.String(a.Key, masked)
		}
		return a
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the first two characters: "alice" -> "al***".
func maskValue(value string) string {
	if len(value) <= 3 {
		return redactedValue
	}
	return value[:2] + "***"
}

// RedactString masks the account name inside profile paths such as
// C:\Users\alice\AppData\Local\Temp. Other strings are returned unchanged.
func RedactString(value string) string {
	return profilePath.ReplaceAllStringFunc(value, func(m string) string {
		parts := profilePath.FindStringSubmatch(m)
		return parts[1] + maskValue(parts[2])
	})
}

// IsSensitiveKey checks if a key name suggests identifying content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
