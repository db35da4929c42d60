package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rolecultura/role/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS("*")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/functions/check-slug", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if called {
		t.Fatalf("preflight reached the handler")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	CORS("")(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q, want *", got)
	}
}

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://role.com.br/agenda?x=1", nil))
	if rr.Code != http.StatusPermanentRedirect {
		t.Fatalf("status = %d, want 308", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://role.com.br/agenda?x=1" {
		t.Fatalf("Location = %q", loc)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("localhost status = %d, want 200", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "http://role.com.br/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("proxied https status = %d, want 200", rr.Code)
	}
}

func TestForceHTTPS_Disabled(t *testing.T) {
	rr := httptest.NewRecorder()
	ForceHTTPS(false)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://role.com.br/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	Security(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, k := range []string{"Strict-Transport-Security", "X-Frame-Options", "X-Content-Type-Options"} {
		if rr.Header().Get(k) == "" {
			t.Errorf("missing header %s", k)
		}
	}
}

func TestActor(t *testing.T) {
	var got string
	h := Actor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = auth.Actor(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "u_42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "u_42" {
		t.Fatalf("actor = %q, want u_42", got)
	}
}
