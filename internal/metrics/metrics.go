// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SweepTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenda_sweep_total",
			Help: "Scheduler sweeps executed, by direction.",
		}, []string{"direction"})

	SweepItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenda_sweep_items_total",
			Help: "Agenda items transitioned by the scheduler, by direction.",
		}, []string{"direction"})

	SweepErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenda_sweep_errors_total",
			Help: "Scheduler sweeps that failed, by direction.",
		}, []string{"direction"})

	SlugCheckTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slug_check_total",
			Help: "Slug availability checks, by table and result.",
		}, []string{"table", "result"})

	AutosaveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosave_total",
			Help: "Autosave debounce cycles, by result (saved, gated, skipped, dropped, failed).",
		}, []string{"result"})

	AutosaveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autosave_sessions",
			Help: "Autosave coordinators currently held in memory.",
		})

	CEPLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cep_lookup_total",
			Help: "CEP lookups, by result (hit, miss, not_found, error).",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		SweepTotal,
		SweepItemsTotal,
		SweepErrorsTotal,
		SlugCheckTotal,
		AutosaveTotal,
		AutosaveSessions,
		CEPLookupTotal,
	)
}
