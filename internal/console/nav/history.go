package nav

import "sync"

// History is an in-memory model of the browser back/forward stack: the
// one shared mutable resource in this subsystem. Back fires popstate
// listeners the way the browser does; each mounted guard attaches its
// own listener and detaches it on unmount.
type History struct {
	mu        sync.Mutex
	entries   []string
	listeners map[int]func()
	nextID    int
}

// NewHistory creates a history stack with an initial entry.
func NewHistory(initial string) *History {
	return &History{
		entries:   []string{initial},
		listeners: make(map[int]func()),
	}
}

// Current returns the entry at the top of the stack, the visible URL.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Push appends a new entry.
func (h *History) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, path)
}

// Replace swaps the top entry without growing the stack.
func (h *History) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[len(h.entries)-1] = path
}

// Back pops the top entry and fires popstate listeners, mirroring the
// browser back button. The bottom entry never pops.
func (h *History) Back() {
	h.mu.Lock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	// Snapshot so listeners may push/replace or detach re-entrantly
	fns := make([]func(), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Listen attaches a popstate listener and returns its detach function.
func (h *History) Listen(fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Depth returns the number of entries on the stack.
func (h *History) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
