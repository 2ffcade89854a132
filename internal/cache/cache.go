// Package cache holds rendered export artifacts between refreshes.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically evicts expired entries of the registered caches.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	done    chan struct{}
	started bool
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup runs the eviction loop every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || interval <= 0 {
		return
	}
	m.started = true
	go m.loop(interval)
}

func (m *Manager) loop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				slog.Debug("Evicted expired cache entries", "count", n)
			}
		case <-m.stop:
			return
		}
	}
}

// CleanNow evicts expired entries once and returns the total removed.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()
	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the eviction loop and waits for it.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if !started {
		return
	}
	close(m.stop)
	<-m.done
}
