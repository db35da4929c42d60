package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/rolecultura/role/internal/config"
)

var _ config.SecretGetter = (*Client)(nil)

// fakeKV serves one KV-v2 secret at secret/role.
func fakeKV(t *testing.T, hits *int32) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/v1/secret/data/role" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"data":{"db_password":"s3cr3t","port":5},"metadata":{"version":1}}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := vault.DefaultConfig()
	cfg.Address = srv.URL
	api, err := vault.NewClient(cfg)
	if err != nil {
		t.Fatalf("vault client: %v", err)
	}
	api.SetToken("test")
	return newClient(api, zap.NewNop())
}

func TestGetKV_CachesWithinTTL(t *testing.T) {
	var hits int32
	c := fakeKV(t, &hits)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := c.GetKV(ctx, "secret/role", "db_password", time.Minute)
		if err != nil {
			t.Fatalf("GetKV: %v", err)
		}
		if v != "s3cr3t" {
			t.Fatalf("value = %q", v)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("vault hits = %d, want 1", n)
	}

	if _, err := c.GetKV(ctx, "secret/role", "db_password", 0); err != nil {
		t.Fatalf("uncached GetKV: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("vault hits = %d, want 2", n)
	}
}

func TestGetKV_Errors(t *testing.T) {
	var hits int32
	c := fakeKV(t, &hits)
	ctx := context.Background()

	if _, err := c.GetKV(ctx, "", "k", 0); err == nil {
		t.Fatalf("empty path accepted")
	}
	if _, err := c.GetKV(ctx, "secret/role", "missing", 0); err == nil {
		t.Fatalf("missing key accepted")
	}
	if _, err := c.GetKV(ctx, "secret/role", "port", 0); err == nil {
		t.Fatalf("non-string value accepted")
	}
}
