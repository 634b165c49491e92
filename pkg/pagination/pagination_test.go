package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := FromContext(newContext("/?limit=50&offset=10"))
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_CapsAtMax(t *testing.T) {
	p := FromContext(newContext("/?limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := FromContext(newContext("/?limit=-5&offset=-3"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 10, 2, 0)
	if !resp.HasMore {
		t.Error("expected has_more true")
	}
	resp = NewResponse([]string{"a", "b"}, 2, 2, 0)
	if resp.HasMore {
		t.Error("expected has_more false")
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 20, Offset: 20}
	if p.NextOffset() != 40 {
		t.Errorf("expected next offset 40, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset 0, got %d", p.PreviousOffset())
	}
	if !p.HasPrevious() {
		t.Error("expected has previous")
	}
	if p.HasNext(30) {
		t.Error("expected no next page when total=30")
	}
}

func TestParams_SQL(t *testing.T) {
	p := Params{Limit: 25, Offset: 5}
	if got := p.SQL(); got != "LIMIT 25 OFFSET 5" {
		t.Errorf("unexpected SQL clause: %s", got)
	}
}
