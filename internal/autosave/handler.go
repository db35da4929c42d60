// internal/autosave/handler.go
//
// HTTP surface for server-held autosave sessions.
//
// Context
// -------
// Mounted under `/api/agenda/autosave` behind the CORS and actor
// middleware.  The handler only decodes and maps errors; debouncing,
// gating, and saving live in Sessions and Coordinator.
package autosave

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rolecultura/role/internal/agenda"
	"github.com/rolecultura/role/internal/respond"
)

// API mounts the autosave endpoints under /api/agenda/autosave.
//
//	POST   /{session}  body: {"id": "", ...agenda.Draft}  → 202 Status
//	                                                        409 id differs
//	GET    /{session}                                     → 200 Status
//	DELETE /{session}                                     → 204
//
// The first POST binds the session to a record: the given id, or the one
// the first save inserts.  Later POSTs may omit the id.  A different id is
// refused with 409; end the session and open a new one to switch records.
//
// The POST reply reflects the state right after the update (normally
// "pending"); clients poll GET to show "saved at HH:MM:SS".
type API struct {
	Sessions *Sessions
}

type updateRequest struct {
	ID string `json:"id"`
	agenda.Draft
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{session}", a.update)
	r.Get("/{session}", a.status)
	r.Delete("/{session}", a.end)
	return r
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	st, err := a.Sessions.Update(r.Context(), chi.URLParam(r, "session"), req.ID, req.Draft)
	if errors.Is(err, ErrRecordMismatch) {
		respond.Error(w, http.StatusConflict, err.Error())
		return
	}
	respond.JSON(w, http.StatusAccepted, st)
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	st, ok := a.Sessions.Status(chi.URLParam(r, "session"))
	if !ok {
		respond.Error(w, http.StatusNotFound, "Autosave session not found")
		return
	}
	respond.JSON(w, http.StatusOK, st)
}

func (a *API) end(w http.ResponseWriter, r *http.Request) {
	if !a.Sessions.End(chi.URLParam(r, "session")) {
		respond.Error(w, http.StatusNotFound, "Autosave session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
