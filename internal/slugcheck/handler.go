// internal/slugcheck/handler.go
//
// `/functions/check-slug` for the admin forms.
//
// Context
// -------
// GET reads `table`, `slug`, and `excludeId` from the query string; POST
// takes the same fields as JSON.  Errors keep the exact strings the admin
// UI matches on: 400 for missing or unknown parameters, 500 for a bad body
// or a failed query.
package slugcheck

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/logger"
	"github.com/rolecultura/role/internal/middleware"
	"github.com/rolecultura/role/internal/respond"
)

// Function exposes a Checker at /functions/check-slug.
//
//	GET  ?table=venues&slug=teatro-santa-isabel&excludeId=v_12
//	POST {"table":"venues","slug":"teatro-santa-isabel","excludeId":"v_12"}
type Function struct {
	Checker    *Checker
	CORSOrigin string
}

func (f *Function) Name() string { return "check-slug" }

func (f *Function) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(f.CORSOrigin))
	r.Get("/", f.serve)
	r.Post("/", f.serve)
	return r
}

func (f *Function) serve(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req Request
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			log.Warn("check-slug: bad body", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	} else {
		qs := r.URL.Query()
		req = Request{Table: qs.Get("table"), Slug: qs.Get("slug"), ExcludeID: qs.Get("excludeId")}
	}

	res, err := f.Checker.Check(r.Context(), req)
	switch {
	case errors.Is(err, ErrMissingParams), errors.Is(err, ErrInvalidTable):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case err != nil:
		log.Error("check-slug: query failed",
			zap.String("table", req.Table), zap.String("slug", req.Slug), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "Database query failed")
	default:
		respond.JSON(w, http.StatusOK, res)
	}
}
