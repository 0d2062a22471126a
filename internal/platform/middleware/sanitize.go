package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderBytes caps the size of any single header value.
const maxHeaderBytes = 8 << 10

var (
	// Probe patterns seen in scanner traffic. SQL probes are logged but not
	// blocked because every query in the store layer is parameterized;
	// script probes are rejected outright.
	sqlProbe    = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)
	scriptProbe = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize screens inbound requests for injection attempts before they
// reach a handler. Rejected requests receive a 400 Bad Request.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger is Sanitize with a logger for SQL probe warnings.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if reason := screenRequest(c.Request()); reason != "" {
				return echo.NewHTTPError(http.StatusBadRequest, reason)
			}
			warnSQLProbes(logger, c)
			return next(c)
		}
	}
}

// screenRequest inspects the path, headers, and query string of a request.
// It returns a rejection reason, or "" when the request is clean.
func screenRequest(req *http.Request) string {
	for _, p := range []string{req.URL.Path, req.URL.RawPath} {
		switch {
		case p == "":
		case hasTraversal(p):
			return "path traversal detected"
		case hasNullByte(p):
			return "null byte injection detected"
		}
	}

	for name, values := range req.Header {
		for _, v := range values {
			if len(v) > maxHeaderBytes {
				return "header value exceeds maximum size: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "header injection detected: " + name
			}
		}
	}

	for key, values := range req.URL.Query() {
		if hasNullByte(key) {
			return "null byte injection detected in query parameter"
		}
		if scriptProbe.MatchString(key) {
			return "script injection detected in query parameter"
		}
		for _, v := range values {
			if hasNullByte(v) {
				return "null byte injection detected in query parameter"
			}
			if scriptProbe.MatchString(v) {
				return "script injection detected in query parameter"
			}
		}
	}
	return ""
}

// warnSQLProbes logs query values matching known SQL injection probes so
// scanner activity shows up in the logs even though the request proceeds.
func warnSQLProbes(logger zerolog.Logger, c echo.Context) {
	for key, values := range c.Request().URL.Query() {
		for _, v := range values {
			if sqlProbe.MatchString(v) {
				logger.Warn().
					Str("param", key).
					Str("path", c.Request().URL.Path).
					Str("remote_ip", c.RealIP()).
					Msg("query parameter matches SQL injection probe")
			}
		}
	}
}

// hasTraversal reports whether s contains a dot-dot sequence in raw,
// percent-encoded, or double-encoded form.
func hasTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "..") ||
		strings.Contains(lower, "%2e%2e") ||
		strings.Contains(lower, "%252e")
}

// hasNullByte reports whether s contains a NUL byte, raw or percent-encoded.
func hasNullByte(s string) bool {
	return strings.ContainsRune(s, 0) ||
		strings.Contains(strings.ToLower(s), "%00")
}

// SanitizeString strips NUL and control characters from free-text input,
// keeping tabs and line breaks, and trims surrounding whitespace. Handlers
// apply it to user-supplied fields such as document titles before persisting.
func SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == 0 || (unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t') {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
