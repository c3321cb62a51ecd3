package gateway

import "sync"

// Navigator moves the client between surfaces (login, dashboard, ...).
type Navigator interface {
	// Location returns the current path.
	Location() string
	// Navigate performs a full navigation to path.
	Navigate(path string)
}

// History is an in-memory Navigator. It records every navigation and can
// notify a callback, which the CLI uses to prompt for a new login.
// Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	current string
	visited []string
	onVisit func(path string)
}

// NewHistory creates a History positioned at start.
func NewHistory(start string) *History {
	if start == "" {
		start = "/"
	}
	return &History{current: start}
}

// OnNavigate registers fn to run after each navigation.
func (h *History) OnNavigate(fn func(path string)) {
	h.mu.Lock()
	h.onVisit = fn
	h.mu.Unlock()
}

// Location implements Navigator.
func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Navigate implements Navigator.
func (h *History) Navigate(path string) {
	h.mu.Lock()
	h.current = path
	h.visited = append(h.visited, path)
	fn := h.onVisit
	h.mu.Unlock()

	if fn != nil {
		fn(path)
	}
}

// Visited returns every path navigated to, oldest first.
func (h *History) Visited() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.visited...)
}

// Compile-time check that History implements Navigator.
var _ Navigator = (*History)(nil)
