//
//  internal/requestinfo/requestinfo.go
//
//  Per-request caller metadata: user-agent fingerprint, client IP, and
//  best-effort geolocation.  The values are inert and safe to log.
//
//  Callers of the public functions range from the admin SPA to cron
//  triggers and scripts, so the fields end up on every request log line
//  and let operators tell a browser edit from an automated tick.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA holds the parsed user-agent properties.
type UA struct {
	Browser     string `json:"browser"`      // "Chrome", "Firefox", "Safari", ...
	Version     string `json:"version"`      // "124.0.6367"
	OS          string `json:"os"`           // "macOS", "Windows", "Android", ...
	Device      string `json:"device"`       // "Desktop", "Phone", "Tablet", ...
	IsBot       bool   `json:"bot"`          // crawler or script
	PrimaryLang string `json:"primary_lang"` // first Accept-Language tag
}

// Geo holds IP-based hints.  Empty when no database is configured or the
// address is unknown.
type Geo struct {
	IP         net.IP `json:"ip"`
	CountryISO string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
}

// Info is attached to the request context by Enricher.
type Info struct {
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

// GeoReader is satisfied by *geoip2.Reader.
type GeoReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// OpenGeo opens a GeoLite2-City database.  An empty path returns a nil
// reader, which disables geolocation.
func OpenGeo(path string) (*geoip2.Reader, error) {
	if path == "" {
		return nil, nil
	}
	return geoip2.Open(path)
}

type ctxKey struct{}

// FromContext returns the Info stored by Enricher, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func parseUA(header, acceptLang string) UA {
	u := uasurfer.Parse(header)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}
	return UA{
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     version(u.Browser.Version),
		OS:          osName,
		Device:      device(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// version renders "major.minor.patch" without trailing ".0" parts.
func version(v uasurfer.Version) string {
	parts := []string{strconv.Itoa(v.Major), strconv.Itoa(v.Minor), strconv.Itoa(v.Patch)}
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

func device(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// primaryLang returns the first language tag, lower-cased, without q-value.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}

func lookupGeo(r GeoReader, ip net.IP) Geo {
	g := Geo{IP: ip}
	if r == nil || ip == nil {
		return g
	}
	rec, err := r.City(ip)
	if err != nil || rec == nil {
		return g
	}
	g.CountryISO = rec.Country.IsoCode
	g.City = rec.City.Names["pt-BR"]
	if g.City == "" {
		g.City = rec.City.Names["en"]
	}
	return g
}
