package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// paramsFor parses pagination out of a request with the given query string.
func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"empty query gets defaults", "", DefaultLimit, 0},
		{"explicit limit and offset", "limit=50&offset=10", 50, 10},
		{"limit clamped to maximum", "limit=5000", MaxLimit, 0},
		{"zero limit falls back to default", "limit=0", DefaultLimit, 0},
		{"negative limit falls back to default", "limit=-5", DefaultLimit, 0},
		{"garbage limit falls back to default", "limit=abc", DefaultLimit, 0},
		{"negative offset clamped to zero", "offset=-10", DefaultLimit, 0},
		{"page translates to offset", "page=3&limit=25", 25, 50},
		{"first page means zero offset", "page=1", DefaultLimit, 0},
		{"page wins over offset", "page=2&offset=99&limit=10", 10, 10},
		{"zero page is ignored", "page=0&offset=40", DefaultLimit, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(tt.query)
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("FromContext(%q) = {Limit:%d Offset:%d}, want {Limit:%d Offset:%d}",
					tt.query, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestParamsHasNext(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   bool
	}{
		{"rows remain", Params{Limit: 20, Offset: 0}, 50, true},
		{"window ends exactly at total", Params{Limit: 20, Offset: 30}, 50, false},
		{"last partial window", Params{Limit: 20, Offset: 40}, 50, false},
		{"empty result set", Params{Limit: 20, Offset: 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext(%d) = %v, want %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	beds := []string{"bed-1", "bed-2"}
	resp := NewResponse(beds, 42, 20, 0)

	if resp.Total != 42 || resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected HasMore with 42 rows and a 20-row window")
	}
	got, ok := resp.Data.([]string)
	if !ok || len(got) != 2 {
		t.Errorf("expected the data slice preserved, got %v", resp.Data)
	}
}

func TestNewResponse_LastPage(t *testing.T) {
	resp := NewResponse(nil, 42, 20, 40)
	if resp.HasMore {
		t.Error("expected HasMore false on the final window")
	}
}
