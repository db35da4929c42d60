package app

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/agenda"
	"github.com/rolecultura/role/internal/autosave"
	"github.com/rolecultura/role/internal/cache"
	"github.com/rolecultura/role/internal/lookup"
	"github.com/rolecultura/role/internal/slugcheck"
)

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock, []string) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "mysql")

	store := agenda.NewStore(db)
	sessions := autosave.NewSessions(store, autosave.SessionOptions{Log: zap.NewNop()})
	t.Cleanup(sessions.Close)

	h, reg := NewRouter(RouterDeps{
		CORSOrigin: "*",
		Store:      store,
		Scheduler:  agenda.NewScheduler(store, nil, zap.NewNop()),
		Slugs:      slugcheck.New(db),
		CEP:        lookup.NewClient("http://127.0.0.1:0", cache.New[string, lookup.Address](4), time.Second),
		Sessions:   sessions,
		Log:        zap.NewNop(),
	})
	return h, mock, reg.Names()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRouter_RegistersFunctions(t *testing.T) {
	_, _, names := newTestRouter(t)
	if strings.Join(names, ",") != "agenda-scheduler,cep,check-slug" {
		t.Fatalf("functions = %v", names)
	}
}

func TestRouter_Routes(t *testing.T) {
	h, mock, _ := newTestRouter(t)

	if rr := get(h, "/healthz"); rr.Code != http.StatusNoContent {
		t.Fatalf("healthz = %d", rr.Code)
	}
	rr := get(h, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Fatalf("metrics = %d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing: %v", rr.Header())
	}

	if rr := get(h, "/functions/check-slug?table=users&slug=x"); rr.Code != http.StatusBadRequest {
		t.Fatalf("check-slug = %d", rr.Code)
	}
	if rr := get(h, "/functions/cep/abc"); rr.Code != http.StatusBadRequest {
		t.Fatalf("cep = %d", rr.Code)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM agenda_item WHERE id = ?")).
		WithArgs("ag_none").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if rr := get(h, "/api/agenda/ag_none"); rr.Code != http.StatusNotFound {
		t.Fatalf("agenda get = %d", rr.Code)
	}

	if rr := get(h, "/api/agenda/autosave/tab-x"); rr.Code != http.StatusNotFound {
		t.Fatalf("autosave status = %d", rr.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
