// Package pagination translates limit, offset and page query parameters into
// bounded query windows and wraps list responses in a standard envelope.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one window of a paginated listing.
type Params struct {
	Limit  int
	Offset int
}

func intParam(c echo.Context, name string) int {
	v, _ := strconv.Atoi(c.QueryParam(name))
	return v
}

// FromContext reads limit, offset and page from the query string. Limits are
// clamped to MaxLimit; page is 1-based and wins over offset when both are
// present.
func FromContext(c echo.Context) Params {
	limit := intParam(c, "limit")
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	offset := intParam(c, "offset")
	if offset < 0 {
		offset = 0
	}
	if page := intParam(c, "page"); page >= 1 {
		offset = (page - 1) * limit
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext reports whether rows remain beyond this window.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Response is the envelope every list endpoint returns.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
