// internal/function/registry.go
//
// Function registry (cycle-free).
//
// A Function is a small, stateless HTTP endpoint in the style of a hosted
// serverless function: the agenda scheduler, the slug checker, the CEP
// lookup.  cmd/web builds one Registry, registers each Function, and mounts
// the lot under `/functions/<name>`.  Each Function owns its sub-router, so
// it decides its own methods and middleware (CORS, body limits).
//
// The registry is an explicit value rather than a package-level map so tests
// can assemble isolated routers.

package function

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Function contract.
//
// Routes() returns the router mounted at /functions/<Name()>, e.g.:
//
//	r := chi.NewRouter()
//	r.Use(middleware.CORS("*"))
//	r.HandleFunc("/", h.serve)
//	return r
type Function interface {
	Name() string
	Routes() chi.Router
}

// Registry holds Functions by name.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]Function
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{fns: map[string]Function{}}
}

// Register adds f.  Registering the same name twice panics, since it is
// always a wiring bug.
func (r *Registry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.fns[f.Name()]; dup {
		panic(fmt.Sprintf("function %q registered twice", f.Name()))
	}
	r.fns[f.Name()] = f
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Mount attaches every Function under prefix (e.g. "/functions").
func (r *Registry) Mount(router chi.Router, prefix string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.namesLocked() {
		router.Mount(prefix+"/"+name, r.fns[name].Routes())
	}
}

func (r *Registry) namesLocked() []string {
	out := make([]string, 0, len(r.fns))
	for n := range r.fns {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
