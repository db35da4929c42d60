package agenda

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/middleware"
)

func newTestRouter(s *Store) chi.Router {
	sched := NewScheduler(s, nil, zap.NewNop())
	sched.now = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	r.Use(middleware.Actor)
	r.Mount("/api/agenda", (&API{Store: s, Now: func() time.Time { return fixedNow }}).Routes())
	r.Mount("/functions/agenda-scheduler", (&SchedulerFunction{Runner: sched}).Routes())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(middleware.ActorHeader, "u_editor")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// Create a draft due one minute ago, invoke the scheduler, and re-fetch:
// the item is published and the audit field marks a system mutation.
func TestEndToEnd_ScheduledPublish(t *testing.T) {
	s, mock := newMockStore(t)
	h := newTestRouter(s)
	publishAt := fixedNow.Add(-time.Minute)

	// 1. create
	mock.ExpectExec(q("INSERT INTO agenda_item")).
		WithArgs(sqlmock.AnyArg(), "show-de-rock", "Show de Rock", "Olinda",
			nil, nil, nil, "draft", publishAt, fixedNow, fixedNow, "u_editor").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"title":"Show de Rock","city":"Olinda","publish_at":"` + publishAt.Format(time.RFC3339) + `"}`
	rr := do(t, h, http.MethodPost, "/api/agenda/", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body)
	}
	var created struct {
		ID    string `json:"id"`
		State string `json:"state"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.State != string(StateDraft) || created.Path != "/agenda/show-de-rock" {
		t.Fatalf("created = %+v", created)
	}

	// 2. scheduler tick
	mock.ExpectBegin()
	mock.ExpectQuery(q(pubSelect)).
		WithArgs(fixedNow, fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}).AddRow(created.ID, "show-de-rock"))
	mock.ExpectExec(q("UPDATE agenda_item SET status = ?, updated_at = ?, updated_by = NULL WHERE id IN (?)")).
		WithArgs("published", fixedNow, created.ID, "draft").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(q(unpubSelect)).
		WithArgs(fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}))
	mock.ExpectRollback()

	rr = do(t, h, http.MethodPost, "/functions/agenda-scheduler", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("tick status = %d body=%s", rr.Code, rr.Body)
	}
	var tick map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &tick)
	if tick["published"] != float64(1) || tick["unpublished"] != float64(0) {
		t.Fatalf("tick = %v", tick)
	}

	// 3. re-fetch
	mock.ExpectQuery(q("FROM agenda_item WHERE id = ?")).
		WithArgs(created.ID).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(
			created.ID, "show-de-rock", "Show de Rock", "Olinda", nil, nil, nil, "published",
			publishAt, nil, nil, fixedNow, fixedNow, nil))

	rr = do(t, h, http.MethodGet, "/api/agenda/"+created.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var got map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &got)
	if got["status"] != "published" || got["state"] != "published" {
		t.Fatalf("item = %v", got)
	}
	if v, present := got["updated_by"]; !present || v != nil {
		t.Fatalf("updated_by = %v, want null", v)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAPI_ErrorMapping(t *testing.T) {
	s, mock := newMockStore(t)
	h := newTestRouter(s)

	rr := do(t, h, http.MethodPost, "/api/agenda/", `{"title":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty title status = %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/api/agenda/", `{"title":"x","bogus":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rr.Code)
	}

	rr = do(t, h, http.MethodPatch, "/api/agenda/ag_1/status", `{"status":"archived"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid status code = %d", rr.Code)
	}

	mock.ExpectExec(q("UPDATE agenda_item SET deleted_at = ?")).
		WithArgs(fixedNow, fixedNow, "u_editor", "ag_gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	rr = do(t, h, http.MethodDelete, "/api/agenda/ag_gone", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing code = %d", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/api/agenda/ag_1/schedule",
		`{"publish_at":"2025-03-02T10:00:00Z","unpublish_at":"2025-03-01T10:00:00Z"}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "unpublish_at") {
		t.Fatalf("bad window code = %d body=%s", rr.Code, rr.Body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAPI_SetStatusRecordsActor(t *testing.T) {
	s, mock := newMockStore(t)
	h := newTestRouter(s)

	mock.ExpectExec(q("UPDATE agenda_item SET status = ?, updated_at = ?, updated_by = ? WHERE id = ?")).
		WithArgs("published", fixedNow, "u_editor", "ag_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := do(t, h, http.MethodPatch, "/api/agenda/ag_1/status", `{"status":"published"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status code = %d body=%s", rr.Code, rr.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
