// internal/app/router.go
//
// The single chi router shared by cmd/web and the router tests.
//
// Context
// -------
// Global middleware runs in order: panic recovery, security headers, the
// optional HTTPS redirect, request enrichment, and actor extraction.  The
// function registry owns `/functions`, and the editor API owns
// `/api/agenda` with its own CORS wrapper.
package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/agenda"
	"github.com/rolecultura/role/internal/autosave"
	"github.com/rolecultura/role/internal/function"
	"github.com/rolecultura/role/internal/lookup"
	"github.com/rolecultura/role/internal/middleware"
	"github.com/rolecultura/role/internal/requestinfo"
	"github.com/rolecultura/role/internal/slugcheck"
)

// RouterDeps is everything the HTTP surface needs.  Nil optional fields
// (CEP, Sessions, Geo) leave the matching routes unmounted or disabled.
type RouterDeps struct {
	ForceHTTPS bool
	CORSOrigin string

	Store     *agenda.Store
	Scheduler agenda.Runner
	Slugs     *slugcheck.Checker
	CEP       *lookup.Client
	Sessions  *autosave.Sessions
	Geo       requestinfo.GeoReader
	Log       *zap.Logger
}

// NewRouter assembles the middleware chain and every route.
//
//	/healthz                     liveness
//	/metrics                     Prometheus
//	/functions/<name>            function registry
//	/api/agenda[/...]            editor CRUD
//	/api/agenda/autosave/{sid}   server-side autosave sessions
func NewRouter(d RouterDeps) (http.Handler, *function.Registry) {
	enrich := &requestinfo.Enricher{Geo: d.Geo, Log: d.Log}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)
	r.Use(middleware.ForceHTTPS(d.ForceHTTPS))
	r.Use(enrich.Middleware)
	r.Use(middleware.Actor)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())

	reg := function.NewRegistry()
	reg.Register(&agenda.SchedulerFunction{Runner: d.Scheduler, CORSOrigin: d.CORSOrigin})
	reg.Register(&slugcheck.Function{Checker: d.Slugs, CORSOrigin: d.CORSOrigin})
	if d.CEP != nil {
		reg.Register(&lookup.Function{Client: d.CEP, CORSOrigin: d.CORSOrigin})
	}
	reg.Mount(r, "/functions")

	r.Route("/api/agenda", func(r chi.Router) {
		r.Use(middleware.CORS(d.CORSOrigin))
		if d.Sessions != nil {
			r.Mount("/autosave", (&autosave.API{Sessions: d.Sessions}).Routes())
		}
		r.Mount("/", (&agenda.API{Store: d.Store}).Routes())
	})
	return r, reg
}
