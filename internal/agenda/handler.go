// internal/agenda/handler.go
//
// HTTP surface for the agenda lifecycle.
//
//   • SchedulerFunction – `/functions/agenda-scheduler`, any method, no body.
//     200 {success, timestamp, published, unpublished, total}
//     500 {success: false, error, timestamp}
//   • API               – editor CRUD mounted at `/api/agenda`.
//
// Both are thin: decode, call Store or Scheduler, encode.

package agenda

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/logger"
	"github.com/rolecultura/role/internal/middleware"
	"github.com/rolecultura/role/internal/respond"
)

/*──────────────────────────── scheduler function ───────────────────────────*/

// Runner is satisfied by *Scheduler.
type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

// SchedulerFunction exposes a Runner as a function endpoint.
type SchedulerFunction struct {
	Runner     Runner
	CORSOrigin string
}

func (f *SchedulerFunction) Name() string { return "agenda-scheduler" }

func (f *SchedulerFunction) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(f.CORSOrigin))
	r.HandleFunc("/", f.serve)
	return r
}

type tickResponse struct {
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
	Published   *int      `json:"published,omitempty"`
	Unpublished *int      `json:"unpublished,omitempty"`
	Total       *int      `json:"total,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func (f *SchedulerFunction) serve(w http.ResponseWriter, r *http.Request) {
	sum, err := f.Runner.Run(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("scheduler invocation failed", zap.Error(err))
		respond.JSON(w, http.StatusInternalServerError, tickResponse{
			Success:   false,
			Timestamp: sum.Timestamp,
			Error:     err.Error(),
		})
		return
	}
	respond.JSON(w, http.StatusOK, tickResponse{
		Success:     true,
		Timestamp:   sum.Timestamp,
		Published:   &sum.Published,
		Unpublished: &sum.Unpublished,
		Total:       &sum.Total,
	})
}

/*──────────────────────────── editor API ──────────────────────────────────*/

// API serves editor CRUD over a Store.
type API struct {
	Store *Store
	Now   func() time.Time
}

// Routes mounts the editor endpoints.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", a.create)
	r.Get("/{id}", a.get)
	r.Patch("/{id}/status", a.setStatus)
	r.Put("/{id}/schedule", a.setSchedule)
	r.Delete("/{id}", a.remove)
	return r
}

// itemView adds derived fields to the stored row.
type itemView struct {
	*Item
	State State  `json:"state"`
	Path  string `json:"path"`
}

func (a *API) view(it *Item) itemView {
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now()
	}
	return itemView{Item: it, State: it.State(now), Path: it.Path()}
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	var d Draft
	if err := respond.Decode(r, &d); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	it, err := a.Store.Create(r.Context(), d)
	if err != nil {
		a.fail(w, r, "create", err)
		return
	}
	respond.JSON(w, http.StatusCreated, a.view(it))
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	it, err := a.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, "get", err)
		return
	}
	respond.JSON(w, http.StatusOK, a.view(it))
}

func (a *API) setStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status Status `json:"status"`
	}
	if err := respond.Decode(r, &body); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := a.Store.SetStatus(r.Context(), chi.URLParam(r, "id"), body.Status); err != nil {
		a.fail(w, r, "set status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) setSchedule(w http.ResponseWriter, r *http.Request) {
	var sch Schedule
	if err := respond.Decode(r, &sch); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := a.Store.SetSchedule(r.Context(), chi.URLParam(r, "id"), sch); err != nil {
		a.fail(w, r, "set schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps domain errors to 4xx and everything else to a logged 500.
func (a *API) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Agenda item not found")
	case errors.Is(err, ErrSlugTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidSlug),
		errors.Is(err, ErrEmptyTitle),
		errors.Is(err, ErrBadSchedule):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Error("agenda "+op+" failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
