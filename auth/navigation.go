package auth

import "sync"

// Route names a view the client can be sent to.
type Route string

const (
	RouteLogin     Route = "login"
	RouteRegister  Route = "register"
	RouteDashboard Route = "dashboard"
)

// Navigator receives the navigation side effects of login and logout.
type Navigator interface {
	CurrentRoute() Route
	Navigate(to Route)
}

// Router is an in-memory Navigator that records every navigation.
type Router struct {
	mu      sync.RWMutex
	current Route
	history []Route
}

var _ Navigator = (*Router)(nil)

func NewRouter(start Route) *Router {
	return &Router{current: start}
}

func (r *Router) CurrentRoute() Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Router) Navigate(to Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = to
	r.history = append(r.history, to)
}

// History returns the routes navigated to, oldest first.
func (r *Router) History() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Route(nil), r.history...)
}
