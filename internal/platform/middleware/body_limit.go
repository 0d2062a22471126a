package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// fallbackBodyLimit is used when a configured limit cannot be parsed.
const fallbackBodyLimit = 1 << 20

var errBodyTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")

// BodyLimit returns middleware that rejects oversized request bodies with
// HTTP 413. defaultLimit applies to most endpoints while uploadLimit applies
// to document uploads (POST /api/v1/documents), which carry multipart file
// content and can be far larger than JSON payloads.
//
// Limits are human-readable strings: "512K", "1M", "10M", "2G". A bare
// number is treated as bytes.
func BodyLimit(defaultLimit, uploadLimit string) echo.MiddlewareFunc {
	defaultBytes := parseLimit(defaultLimit)
	uploadBytes := parseLimit(uploadLimit)

	limitFor := func(req *http.Request) int64 {
		if req.Method == http.MethodPost && strings.HasPrefix(req.URL.Path, "/api/v1/documents") {
			return uploadBytes
		}
		return defaultBytes
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := limitFor(req)
			if req.ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit))
			}

			// The declared length can lie, so reads are capped as well.
			req.Body = newCappedBody(req.Body, limit)
			return next(c)
		}
	}
}

// cappedBody wraps a request body and fails any read past the limit, which
// catches bodies whose Content-Length was missing or wrong.
type cappedBody struct {
	io.ReadCloser
	remaining int64
	tripped   bool
}

func newCappedBody(rc io.ReadCloser, limit int64) *cappedBody {
	return &cappedBody{ReadCloser: rc, remaining: limit}
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.tripped {
		return 0, errBodyTooLarge
	}
	// Read one byte past the limit so an oversized body is detected even
	// when it arrives in limit-sized chunks.
	if max := b.remaining + 1; int64(len(p)) > max {
		p = p[:max]
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		b.tripped = true
		return 0, errBodyTooLarge
	}
	return n, err
}

// sizeSuffixes is ordered longest-first so "KB" wins over "B"-less "K".
var sizeSuffixes = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"G", 1 << 30},
	{"MB", 1 << 20},
	{"M", 1 << 20},
	{"KB", 1 << 10},
	{"K", 1 << 10},
}

// parseLimit converts a human-readable size ("1M", "512K", "2G", "4096")
// into bytes. Unparseable or negative values fall back to 1 MB.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallbackBodyLimit
	}

	var factor int64 = 1
	for _, suf := range sizeSuffixes {
		if strings.HasSuffix(s, suf.suffix) {
			factor = suf.factor
			s = strings.TrimSuffix(s, suf.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return fallbackBodyLimit
	}
	return n * factor
}
