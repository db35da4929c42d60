// internal/lookup/handler.go
//
// `/functions/cep/{cep}`: 400 for a malformed CEP, 404 for an unknown one,
// 502 when the upstream fails, and a day-long public cache header on hits.
package lookup

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/logger"
	"github.com/rolecultura/role/internal/middleware"
	"github.com/rolecultura/role/internal/respond"
)

// Function serves GET /functions/cep/{cep}.
type Function struct {
	Client     *Client
	CORSOrigin string
}

func (f *Function) Name() string { return "cep" }

func (f *Function) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(f.CORSOrigin))
	r.Get("/{cep}", f.serve)
	return r
}

func (f *Function) serve(w http.ResponseWriter, r *http.Request) {
	addr, err := f.Client.Lookup(r.Context(), chi.URLParam(r, "cep"))
	switch {
	case errors.Is(err, ErrInvalidCEP):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case err != nil:
		logger.FromContext(r.Context()).Warn("cep lookup failed", zap.Error(err))
		respond.Error(w, http.StatusBadGateway, ErrUpstream.Error())
	default:
		w.Header().Set("Cache-Control", "public, max-age=86400")
		respond.JSON(w, http.StatusOK, addr)
	}
}
