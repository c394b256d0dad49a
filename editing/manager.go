package editing

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager owns the live editing sessions, one per browser, and expires
// sessions left idle longer than the configured timeout.
type Manager struct {
	source        Source
	sink          Sink
	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewManager(source Source, sink Sink, idleTimeout, sweepInterval time.Duration) *Manager {
	return &Manager{
		source:        source,
		sink:          sink,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		sessions:      make(map[string]*Session),
		stopChan:      make(chan struct{}),
	}
}

// Create opens a session and loads its routes.
func (m *Manager) Create(ctx context.Context) (string, *Session, error) {
	s := NewSession(m.source, m.sink)
	if _, err := s.LoadParents(ctx); err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return id, s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) Start() {
	if m.sweepInterval <= 0 || m.idleTimeout <= 0 {
		return
	}
	go m.run()
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Manager) run() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Sweep(time.Now())
		}
	}
}

// Sweep drops sessions idle since before now minus the idle timeout and
// returns how many were removed. Unsaved edits in them are lost.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var idle []string
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > m.idleTimeout {
			idle = append(idle, id)
		}
	}
	for _, id := range idle {
		if m.sessions[id].HasUnsavedChanges() {
			log.Printf("editing: session %s expired with unsaved changes", id)
		}
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return len(idle)
}
