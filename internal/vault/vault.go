// internal/vault/vault.go
//
// Vault client wrapper used to resolve `vault:` configuration values.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK with KV-v2 reads and a per-key cache.
//   - Keeps the token alive with a LifetimeWatcher in the background.
//   - Satisfies config.SecretGetter, so cmd/web and cmd/rolectl resolve the
//     database DSN, password, and NATS URL before validation.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, zap.L())           // during boot.
//  2. err = cfg.ResolveSecrets(ctx, cli)             // config references.
//
// Environment: VAULT_ADDR and VAULT_TOKEN, read by the SDK.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.Logger

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New builds a client from the environment and starts token renewal, which
// stops when ctx is done.
func New(ctx context.Context, log *zap.Logger) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	c := newClient(api, log)
	go c.renewLoop(ctx)
	return c, nil
}

func newClient(api *vault.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.L()
	}
	return &Client{api: api, log: log.Named("vault"), cache: make(map[string]cached)}
}

// GetKV fetches one key from a KV-v2 secret at "<mount>/<path>".  With
// ttl > 0 the value is cached for that long.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel, _ := strings.Cut(secretPath, "/")
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

/*──────────────────────────── token renewal ───────────────────────────────*/

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warn("token renew-self failed", zap.Error(err))
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Info("token is not renewable, rechecking in 1h")
			sleep(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			c.log.Warn("lifetime watcher init failed", zap.Error(err))
			sleep(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, w)
	}
}

// watch runs w until it stops or ctx is done.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warn("token renewal stopped", zap.Error(err))
			}
			sleep(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debug("token renewed", zap.Int("ttl_s", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
