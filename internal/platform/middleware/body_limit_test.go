package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func bodyLimitEcho(limit string) *echo.Echo {
	e := echo.New()
	e.Use(BodyLimit(limit))
	e.POST("/", func(c echo.Context) error {
		buf := make([]byte, 4096)
		for {
			_, err := c.Request().Body.Read(buf)
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					return he
				}
				break
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestBodyLimit_UnderLimit(t *testing.T) {
	e := bodyLimitEcho("1K")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 512)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestBodyLimit_OverLimitContentLength(t *testing.T) {
	e := bodyLimitEcho("1K")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", 2048)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestParseLimit(t *testing.T) {
	cases := map[string]int64{
		"1K":      1 << 10,
		"2M":      2 << 20,
		"1G":      1 << 30,
		"512":     512,
		"":        1 << 20,
		"garbage": 1 << 20,
	}
	for in, want := range cases {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q): expected %d, got %d", in, want, got)
		}
	}
}
