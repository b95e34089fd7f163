// Package inspect serves a read-only JSON view of a container graph over
// HTTP, for debugging endpoints:
//
//	mux.Mount("/debug/injector", inspect.Handler(c))
package inspect

import (
	"encoding/json"
	"net/http"

	"github.com/GoCodeAlone/injector"
	"github.com/go-chi/chi/v5"
)

// ProviderInfo describes one provider.
type ProviderInfo struct {
	Path       string   `json:"path"`
	Kind       string   `json:"kind"`
	Overridden bool     `json:"overridden"`
	Async      bool     `json:"async"`
	Related    []string `json:"related,omitempty"`
}

// ResourceInfo describes one resource.
type ResourceInfo struct {
	Path  string `json:"path"`
	State string `json:"state"`
	Async bool   `json:"async"`
}

// DependencyReport lists the unresolved dependencies.
type DependencyReport struct {
	Satisfied  bool     `json:"satisfied"`
	Unresolved []string `json:"unresolved"`
}

type handler struct {
	c *injector.Container
}

// Handler returns a router serving:
//
//	GET /providers          every named provider reachable from c
//	GET /providers/{name}   one top-level provider and what it references
//	GET /dependencies       the unresolved dependency paths
//	GET /resources          every resource and its lifecycle state
func Handler(c *injector.Container) http.Handler {
	h := &handler{c: c}
	r := chi.NewRouter()
	r.Get("/providers", h.providers)
	r.Get("/providers/{name}", h.provider)
	r.Get("/dependencies", h.dependencies)
	r.Get("/resources", h.resources)
	return r
}

func (h *handler) describe(p injector.Provider, withRelated bool) ProviderInfo {
	info := ProviderInfo{
		Path:       injector.FullName(p),
		Kind:       p.Kind().String(),
		Overridden: p.IsOverridden(),
		Async:      h.c.IsAsync(p),
	}
	if withRelated {
		for _, rel := range p.Related() {
			info.Related = append(info.Related, injector.FullName(rel))
		}
	}
	return info
}

func (h *handler) providers(w http.ResponseWriter, _ *http.Request) {
	out := []ProviderInfo{}
	for _, p := range h.c.Traverse() {
		if p.Parent() == nil {
			continue
		}
		out = append(out, h.describe(p, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) provider(w http.ResponseWriter, r *http.Request) {
	p, err := h.c.Provider(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.describe(p, true))
}

func (h *handler) dependencies(w http.ResponseWriter, _ *http.Request) {
	missing := h.c.CheckDependencies()
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, DependencyReport{Satisfied: len(missing) == 0, Unresolved: missing})
}

func (h *handler) resources(w http.ResponseWriter, _ *http.Request) {
	out := []ResourceInfo{}
	for _, p := range h.c.Traverse(injector.KindResource) {
		r, ok := p.(*injector.Resource)
		if !ok {
			continue
		}
		out = append(out, ResourceInfo{Path: injector.FullName(r), State: r.State().String(), Async: r.Async()})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
