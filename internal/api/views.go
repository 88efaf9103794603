package api

import (
	"sync"

	"powdercast/internal/view"
)

// sessionView binds one session's modal controller to the location it was
// opened for.
type sessionView struct {
	controller *view.Controller
	locationID string
}

// ViewRegistry keeps one view controller per browser session, keyed by
// the X-Session-ID header. Controllers are created on the first open and
// replaced when the session switches location.
type ViewRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionView
}

func NewViewRegistry() *ViewRegistry {
	return &ViewRegistry{sessions: make(map[string]*sessionView)}
}

// Acquire returns the session's controller, building a fresh one when the
// session is new or has moved to another location. The replaced
// controller's in-flight fetches die on their stale tokens.
func (r *ViewRegistry) Acquire(sessionID, locationID string, build func() *view.Controller) *view.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok && existing.locationID == locationID {
		return existing.controller
	}

	controller := build()
	r.sessions[sessionID] = &sessionView{controller: controller, locationID: locationID}
	return controller
}

// Lookup returns the session's controller without creating one.
func (r *ViewRegistry) Lookup(sessionID string) (*view.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sv, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return sv.controller, true
}
