// internal/lookup/cep.go
//
// CEP (Brazilian postal code) lookups through a ViaCEP-compatible API.
//
// Context
// -------
// The venue and organizer forms fill street, district, city, and state from
// the postal code.  The browser never calls the upstream directly; it goes
// through `/functions/cep/{cep}` so we can cache and rate-shape in one place.
//
//   - Results are kept in an injected bounded LRU keyed by the 8-digit CEP.
//   - Concurrent lookups of the same CEP share one upstream request
//     (singleflight).  The shared request runs detached from the caller
//     that started it, bounded by the client deadline, and each caller
//     waits only as long as its own context allows.
//   - Transient upstream failures (5xx, connection errors) are retried by
//     go-retryablehttp.  Unknown CEPs are not cached.
//
// Upstream contract: GET <base>/<cep>/json/ → 200 with the address, or 200
// with {"erro": true} when the CEP does not exist.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rolecultura/role/internal/cache"
	"github.com/rolecultura/role/internal/metrics"
)

var (
	ErrInvalidCEP = errors.New("CEP must have 8 digits")
	ErrNotFound   = errors.New("CEP not found")
	ErrUpstream   = errors.New("CEP service unavailable")
)

// Address is the normalised upstream record.
type Address struct {
	CEP        string `json:"cep"`
	Street     string `json:"street"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	IBGE       string `json:"ibge,omitempty"`
}

// viaCEP is the upstream body.  `erro` has been both a bool and the string
// "true" over the API's lifetime.
type viaCEP struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	IBGE        string `json:"ibge"`
	Erro        any    `json:"erro"`
}

func (v viaCEP) missing() bool {
	switch e := v.Erro.(type) {
	case bool:
		return e
	case string:
		return e == "true"
	}
	return false
}

// Client resolves CEPs.
type Client struct {
	base  string
	http  *retryablehttp.Client
	cache *cache.LRU[string, Address]
	sfg   singleflight.Group

	// deadline bounds one shared upstream fetch, retries included.
	deadline time.Duration
}

// NewClient returns a Client for baseURL (e.g. https://viacep.com.br/ws).
func NewClient(baseURL string, c *cache.LRU[string, Address], timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = leveled{zap.S().Named("cep")}
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     rc,
		cache:    c,
		deadline: time.Duration(rc.RetryMax+1) * timeout,
	}
}

// Normalize strips a single dash and surrounding space and checks for
// exactly 8 digits.
func Normalize(cep string) (string, error) {
	cep = strings.Replace(strings.TrimSpace(cep), "-", "", 1)
	if len(cep) != 8 {
		return "", ErrInvalidCEP
	}
	for _, r := range cep {
		if r < '0' || r > '9' {
			return "", ErrInvalidCEP
		}
	}
	return cep, nil
}

// Lookup returns the address for cep.
func (c *Client) Lookup(ctx context.Context, cep string) (Address, error) {
	cep, err := Normalize(cep)
	if err != nil {
		return Address{}, err
	}
	if a, ok := c.cache.Get(cep); ok {
		metrics.CEPLookupTotal.WithLabelValues("hit").Inc()
		return a, nil
	}

	ch := c.sfg.DoChan(cep, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.deadline)
		defer cancel()
		a, err := c.fetch(fctx, cep)
		if err != nil {
			return Address{}, err
		}
		c.cache.Add(cep, a)
		return a, nil
	})

	var (
		v   any
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.CEPLookupTotal.WithLabelValues("not_found").Inc()
	case err != nil:
		metrics.CEPLookupTotal.WithLabelValues("error").Inc()
	default:
		metrics.CEPLookupTotal.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return Address{}, err
	}
	return v.(Address), nil
}

func (c *Client) fetch(ctx context.Context, cep string) (Address, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+cep+"/json/", nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return Address{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Address{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var body viaCEP
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	if body.missing() {
		return Address{}, ErrNotFound
	}
	return Address{
		CEP:        cep,
		Street:     body.Logradouro,
		Complement: body.Complemento,
		District:   body.Bairro,
		City:       body.Localidade,
		State:      body.UF,
		IBGE:       body.IBGE,
	}, nil
}

// leveled adapts zap to retryablehttp.LeveledLogger.
type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...any)  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
