// Package router groups route registrations into namespaces. A Router
// carries a name prefix and a middleware list that every route
// registered through it inherits; routers nest via IncludeRouter, with
// self- and circular-inclusion rejected the way the engine's original
// implementation rejects them.
package router

import (
	"fmt"

	"github.com/netresearch/ofelia/core"
)

// Router is a named group of routes. The root router (returned by New
// with no prefix, or the app's implicit root) has an empty prefix;
// every router included under it contributes "prefix:" to its
// descendants' full route names.
type Router struct {
	prefix     string
	parent     *Router
	root       *Router
	subRouters []*Router
	middleware []core.Middleware
	scheduler  *core.Scheduler
}

// New creates a standalone router with the given prefix (may be empty).
// It must be attached via IncludeRouter, or used directly as an app's
// root router via Bind, before routes registered on it take effect.
func New(prefix string) *Router {
	r := &Router{prefix: prefix}
	r.root = r
	return r
}

// Bind attaches this router directly to a scheduler as its root,
// bypassing IncludeRouter. Used once, by the application facade.
func (r *Router) Bind(s *core.Scheduler) {
	r.scheduler = s
}

// Use appends middleware that wraps every route registered through this
// router and its descendants, inherited in inclusion order.
func (r *Router) Use(m core.Middleware) {
	r.middleware = append(r.middleware, m)
}

// Root returns the top-most router in this router's inclusion chain.
func (r *Router) Root() *Router { return r.root }

// Parent returns the router this router was included into, or nil.
func (r *Router) Parent() *Router { return r.parent }

// IncludeRouter attaches child under r, prefixing every route child (and
// its own descendants) registers from then on with r's namespace.
// Re-including the same child under the same parent is a no-op.
// Self-inclusion and circular inclusion return an error rather than
// recursing forever.
func (r *Router) IncludeRouter(child *Router) error {
	if child.parent == r {
		return nil
	}
	if child == r {
		return core.ErrSelfInclusion
	}

	for p := r; p != nil; p = p.parent {
		if p == child {
			return core.ErrCircularInclusion
		}
	}
	if child.parent != nil {
		return fmt.Errorf("router: %w", core.ErrRouteAlreadyBound)
	}

	child.parent = r
	child.root = r.root
	propagateRoot(child)
	r.subRouters = append(r.subRouters, child)
	return nil
}

func propagateRoot(r *Router) {
	for _, sub := range r.subRouters {
		sub.root = r.root
		propagateRoot(sub)
	}
}

// fullName joins the prefixes from root to r, inclusive, with ":" and
// appends name.
func (r *Router) fullName(name string) string {
	var chain []string
	for p := r; p != nil; p = p.parent {
		if p.prefix != "" {
			chain = append([]string{p.prefix}, chain...)
		}
	}
	if len(chain) == 0 {
		return name
	}
	full := ""
	for _, seg := range chain {
		full += seg + ":"
	}
	return full + name
}

func (r *Router) effectiveScheduler() *core.Scheduler {
	for p := r; p != nil; p = p.parent {
		if p.scheduler != nil {
			return p.scheduler
		}
	}
	return nil
}

// inheritedMiddleware collects middleware from root to r, inclusive, so
// outer routers' middleware wraps inner routers' middleware.
func (r *Router) inheritedMiddleware() []core.Middleware {
	var chain []*Router
	for p := r; p != nil; p = p.parent {
		chain = append([]*Router{p}, chain...)
	}
	var out []core.Middleware
	for _, router := range chain {
		out = append(out, router.middleware...)
	}
	return out
}

// Register binds fn as a route named opts.Name (or its default),
// namespaced under this router's prefix chain, and wraps it with this
// router's inherited middleware on top of the scheduler's own.
func (r *Router) Register(fn any, opts core.RouteOptions) (*core.Route, error) {
	s := r.effectiveScheduler()
	if s == nil {
		return nil, fmt.Errorf("router: not attached to a scheduler")
	}

	if opts.Name != "" {
		opts.Name = r.fullName(opts.Name)
	}

	route, err := s.Registrator.Register(fn, opts)
	if err != nil {
		return nil, err
	}

	for _, m := range r.inheritedMiddleware() {
		s.AddRouteMiddleware(route.Name(), m)
	}
	return route, nil
}
