package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesIndex(t *testing.T) {
	h := http.StripPrefix("/dashboard", Handler())

	for _, path := range []string{"/dashboard/", "/dashboard/unknown/route"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Honeypot live feed") {
			t.Fatalf("%s: expected dashboard markup", path)
		}
	}
}

func TestHandlerServesAssets(t *testing.T) {
	h := http.StripPrefix("/dashboard", Handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/app.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/ws/events") {
		t.Fatal("expected app.js to open the event feed")
	}
}

func TestHandlerCaching(t *testing.T) {
	h := http.StripPrefix("/dashboard", Handler())

	cases := map[string]string{
		"/dashboard/":           "no-cache",
		"/dashboard/sessions/7": "no-cache",
		"/dashboard/style.css":  "public, max-age=300",
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if got := rec.Header().Get("Cache-Control"); got != want {
			t.Fatalf("%s: expected Cache-Control %q, got %q", path, want, got)
		}
	}
}

func TestHandlerMissingAssetIsNotFound(t *testing.T) {
	h := http.StripPrefix("/dashboard", Handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/missing.js", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
