package terminal

import "sync"

// Registry maps session names to sessions, creating them lazily on first
// reference. Distinct names may be created concurrently; an individual
// session serializes its own internals, so the registry needs no lock
// around session operations once retrieved.
type Registry struct {
	shellPath  string
	workingDir string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds a registry whose sessions all spawn shellPath rooted
// at workingDir.
func NewRegistry(shellPath, workingDir string) *Registry {
	return &Registry{
		shellPath:  shellPath,
		workingDir: workingDir,
		sessions:   make(map[string]*Session),
	}
}

// GetOrCreate returns the named session, creating it on first reference.
func (r *Registry) GetOrCreate(name string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[name]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[name]; ok {
		return s, nil
	}

	s, err := NewSession(name, r.shellPath, r.workingDir)
	if err != nil {
		return nil, err
	}
	r.sessions[name] = s
	return s, nil
}

// Get returns the named session without creating it.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[name]
	return s, ok
}

// ResetAll resets every known session and reports the first error
// encountered, continuing to reset the rest.
func (r *Registry) ResetAll() error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Reset(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Names returns the currently known session names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sessions))
	for n := range r.sessions {
		names = append(names, n)
	}
	return names
}
