// Package netmon tracks backend connectivity. The Monitor holds the current
// online/offline flag and fans out transitions to subscribers; the Prober
// (prober.go) feeds it by periodically probing the backend. The flag is a
// best-effort hint only; the dispatcher treats any failed send as offline
// regardless of what the monitor claims.
package netmon

import (
	"sync"

	"github.com/rs/zerolog"
)

// Monitor is a concurrency-safe online/offline flag with transition
// subscriptions.
type Monitor struct {
	mu     sync.RWMutex
	online bool
	nextID int
	subs   map[int]func(bool)
	log    zerolog.Logger
}

// NewMonitor starts in the given state. Field devices usually boot online, so
// callers typically pass true and let the first failed probe flip it.
func NewMonitor(online bool, log zerolog.Logger) *Monitor {
	return &Monitor{
		online: online,
		subs:   make(map[int]func(bool)),
		log:    log.With().Str("component", "netmon").Logger(),
	}
}

// IsOnline returns the point-in-time connectivity snapshot.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records the new state and, on a transition, notifies every
// subscriber with the new value. Setting the current state again is a no-op.
// Callbacks run outside the monitor lock so a subscriber may call back into
// the monitor.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	cbs := make([]func(bool), 0, len(m.subs))
	for _, cb := range m.subs {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()

	m.log.Info().Bool("online", online).Msg("connectivity transition")
	for _, cb := range cbs {
		cb(online)
	}
}

// Subscribe registers cb for transition notifications and returns its
// deregistration handle. Subscribers are independent; unsubscribing one does
// not affect the others.
func (m *Monitor) Subscribe(cb func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}
