package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=0", DefaultLimit, 0},
		{"limit=-5&offset=-3", DefaultLimit, 0},
		{"limit=500", MaxLimit, 0},
		{"limit=abc", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := FromContext(ctxWithQuery(tt.query))
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("query %q: got %+v, want limit=%d offset=%d", tt.query, p, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !resp.HasMore {
		t.Error("expected has_more for partial page")
	}

	last := NewResponse([]int{1}, 10, 3, 9)
	if last.HasMore {
		t.Error("expected no more results past the final page")
	}
}

func TestNextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("NextOffset = %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected next page at total 100")
	}
	if p.HasNext(50) {
		t.Error("expected no next page at total 50")
	}
}
