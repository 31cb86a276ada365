package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRequestIDRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})
	return r, &seen
}

func TestRequestIDGenerated(t *testing.T) {
	r, seen := newRequestIDRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	got := w.Header().Get(RequestIDHeader)
	if got == "" {
		t.Fatal("response missing request id header")
	}
	if *seen != got {
		t.Fatalf("handler saw %q, response carries %q", *seen, got)
	}
}

func TestRequestIDEchoesClientValue(t *testing.T) {
	r, seen := newRequestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Fatalf("request id = %q, want client-supplied-id", got)
	}
	if *seen != "client-supplied-id" {
		t.Fatalf("handler saw %q", *seen)
	}
}

func TestRequestIDRejectsOversizedClientValue(t *testing.T) {
	r, _ := newRequestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("a", 256))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	got := w.Header().Get(RequestIDHeader)
	if got == "" || len(got) > 128 {
		t.Fatalf("request id = %q, want a generated replacement", got)
	}
}
