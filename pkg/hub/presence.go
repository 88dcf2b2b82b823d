package hub

import (
	"sort"
	"sync"
)

// Presence tracks how many live connections each identity holds. An
// identity is online iff its count is >= 1. Connected/Disconnected are the
// only mutation points and are linearized through the mutex, so concurrent
// connects and disconnects for the same identity can never produce a
// spurious offline edge while a connection survives.
type Presence struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewPresence() *Presence {
	return &Presence{counts: make(map[string]int)}
}

// Connected records one more live connection for the identity and reports
// whether this crossed the offline->online edge.
func (p *Presence) Connected(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[userID]++
	return p.counts[userID] == 1
}

// Disconnected records one connection going away and reports whether this
// crossed the online->offline edge. A disconnect without a matching connect
// is ignored.
func (p *Presence) Disconnected(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	count, ok := p.counts[userID]
	if !ok || count == 0 {
		return false
	}
	count--
	if count == 0 {
		delete(p.counts, userID)
		return true
	}
	p.counts[userID] = count
	return false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[userID] > 0
}

// Snapshot returns the identities currently online, sorted for stable
// output. Delivered to every newly connected client as users:online.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	online := make([]string, 0, len(p.counts))
	for userID := range p.counts {
		online = append(online, userID)
	}
	sort.Strings(online)
	return online
}
