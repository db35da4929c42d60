package requestinfo

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rolecultura/role/internal/logger"
)

type fakeGeo map[string]*geoip2.City

func (f fakeGeo) City(ip net.IP) (*geoip2.City, error) {
	if c, ok := f[ip.String()]; ok {
		return c, nil
	}
	return nil, errors.New("not found")
}

func recife() *geoip2.City {
	c := &geoip2.City{}
	c.Country.IsoCode = "BR"
	c.City.Names = map[string]string{"en": "Recife", "pt-BR": "Recife"}
	return c
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"xff first valid", map[string]string{"X-Forwarded-For": "garbage, 200.1.2.3, 10.0.0.1"}, "10.0.0.9:1234", "200.1.2.3"},
		{"x-real-ip", map[string]string{"X-Real-Ip": "177.4.5.6"}, "10.0.0.9:1234", "177.4.5.6"},
		{"remote addr", nil, "189.7.8.9:5555", "189.7.8.9"},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = c.remote
		for k, v := range c.headers {
			r.Header.Set(k, v)
		}
		if got := clientIP(r); got.String() != c.want {
			t.Errorf("%s: clientIP = %v, want %s", c.name, got, c.want)
		}
	}
}

func TestPrimaryLang(t *testing.T) {
	for in, want := range map[string]string{
		"":                        "",
		"pt-BR,pt;q=0.9,en;q=0.8": "pt-br",
		"en;q=0.7":                "en",
		" es-AR , pt":             "es-ar",
	} {
		if got := primaryLang(in); got != want {
			t.Errorf("primaryLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseUA_Desktop(t *testing.T) {
	ua := parseUA("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/124.0.6367.91 Safari/537.36", "pt-BR")
	if ua.Browser != "Chrome" || ua.Device != "Desktop" || ua.OS != "macOS" || ua.IsBot {
		t.Fatalf("ua = %+v", ua)
	}
	if ua.PrimaryLang != "pt-br" {
		t.Fatalf("lang = %q", ua.PrimaryLang)
	}
}

func TestMiddleware_AttachesInfoAndLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := &Enricher{Geo: fakeGeo{"200.1.2.3": recife()}, Log: zap.New(core)}

	var got *Info
	h := e.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		logger.FromContext(r.Context()).Info("handled")
	}))

	r := httptest.NewRequest(http.MethodPost, "/functions/agenda-scheduler", nil)
	r.Header.Set("X-Forwarded-For", "200.1.2.3")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil || got.Geo.CountryISO != "BR" || got.Geo.City != "Recife" {
		t.Fatalf("info = %+v", got)
	}
	entries := logs.FilterMessage("handled").All()
	if len(entries) != 1 {
		t.Fatalf("handler log entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ip"] != "200.1.2.3" || fields["country"] != "BR" || fields["path"] != "/functions/agenda-scheduler" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestMiddleware_NoGeoReader(t *testing.T) {
	e := &Enricher{Log: zap.NewNop()}
	var got *Info
	h := e.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == nil || got.Geo.CountryISO != "" || got.Geo.IP == nil {
		t.Fatalf("info = %+v", got)
	}
}
