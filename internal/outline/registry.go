package outline

import "sync"

// Registry keeps one outline per exam and serializes access to each.
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*workspace
	opts       []Option
}

type workspace struct {
	mu      sync.Mutex
	outline *Outline
}

// NewRegistry creates an empty registry. The options apply to every
// outline it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{workspaces: make(map[string]*workspace), opts: opts}
}

// Do runs fn with exclusive access to the outline stored under key,
// creating it from rootSlug on first use.
func (r *Registry) Do(key, rootSlug string, fn func(*Outline) error) error {
	r.mu.Lock()
	ws, ok := r.workspaces[key]
	if !ok {
		ws = &workspace{outline: New(rootSlug, r.opts...)}
		r.workspaces[key] = ws
	}
	r.mu.Unlock()

	ws.mu.Lock()
	defer ws.mu.Unlock()
	return fn(ws.outline)
}

// Has reports whether an outline exists for key.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.workspaces[key]
	return ok
}

// Reset drops the outline stored under key.
func (r *Registry) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, key)
}
