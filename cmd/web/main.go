// cmd/web/main.go
//
// ROLÊ – HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Bootstrap: config, logger, Vault references, database, migrations,
//     and the event publisher (see internal/app).
//
//  2. Build the function backends: slug checker, CEP lookup client with its
//     own LRU, and the server-side autosave sessions.
//
//  3. Open the optional GeoLite2 database for request enrichment.
//
//  4. Assemble the chi router and serve until SIGINT or SIGTERM, then drain.
//
// The scheduler never runs on a timer here.  An external trigger calls
// /functions/agenda-scheduler, or an operator runs `rolectl tick --every`.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/app"
	"github.com/rolecultura/role/internal/autosave"
	"github.com/rolecultura/role/internal/cache"
	"github.com/rolecultura/role/internal/lookup"
	"github.com/rolecultura/role/internal/requestinfo"
	"github.com/rolecultura/role/internal/server"
	"github.com/rolecultura/role/internal/slugcheck"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx, app.BootOptions{})
	if err != nil {
		log.Fatalf("boot: %v", err)
	}
	defer a.Close()
	cfg := a.Config

	//
	// ── Function backends ───────────────────────────────────────────────
	//
	cep := lookup.NewClient(cfg.Lookup.CEPBaseURL,
		cache.New[string, lookup.Address](cfg.Lookup.CacheSize), cfg.Lookup.Timeout)

	sessions := autosave.NewSessions(a.Store, autosave.SessionOptions{
		Debounce:      cfg.Autosave.Debounce,
		MinNameLength: cfg.Autosave.MinNameLength,
		IdleTTL:       cfg.Autosave.SessionIdle,
		Log:           a.Log.Named("autosave"),
	})
	defer sessions.Close()

	//
	// ── GeoIP (optional) ────────────────────────────────────────────────
	//
	var geo requestinfo.GeoReader
	if gr, err := requestinfo.OpenGeo(cfg.GeoIP.DBPath); err != nil {
		a.Log.Warn("geoip disabled", zap.String("path", cfg.GeoIP.DBPath), zap.Error(err))
	} else if gr != nil {
		defer gr.Close()
		geo = gr
	}

	//
	// ── Router + server ─────────────────────────────────────────────────
	//
	handler, reg := app.NewRouter(app.RouterDeps{
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
		CORSOrigin: cfg.HTTP.CORSOrigin,
		Store:      a.Store,
		Scheduler:  a.Scheduler,
		Slugs:      slugcheck.New(a.DB),
		CEP:        cep,
		Sessions:   sessions,
		Geo:        geo,
		Log:        a.Log,
	})
	a.Log.Info("functions mounted", zap.Strings("names", reg.Names()))

	if err := server.Run(ctx, server.New(cfg.HTTP.ListenAddr, handler), a.Log); err != nil {
		a.Log.Error("http server", zap.Error(err))
	}
}
