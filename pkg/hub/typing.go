package hub

import (
	"sync"
	"time"
)

// typingTracker enforces a bounded lifetime on typing indicators. The
// original client-driven protocol could leave a receiver showing "typing"
// forever if the sender crashed mid-keystroke; here every typing:start takes
// a lease that the server expires itself, emitting an implicit typing:stop.
type typingTracker struct {
	mu     sync.Mutex
	ttl    time.Duration
	leases map[leaseKey]*typingLease
	expire func(senderID, receiverID, username string)
}

type leaseKey struct {
	senderID   string
	receiverID string
}

// typingLease carries a generation counter so an expiry callback whose timer
// fired just before the lease was renewed or stopped can recognize it no
// longer owns the lease.
type typingLease struct {
	gen      uint64
	username string
	timer    *time.Timer
}

func newTypingTracker(ttl time.Duration, expire func(senderID, receiverID, username string)) *typingTracker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &typingTracker{
		ttl:    ttl,
		leases: make(map[leaseKey]*typingLease),
		expire: expire,
	}
}

// Start takes or renews the lease for the (sender, receiver) pair. Renewal
// bumps the generation, so a previous arming whose timer already fired but
// whose callback has not yet run is silenced instead of emitting a spurious
// stop.
func (t *typingTracker) Start(senderID, receiverID, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := leaseKey{senderID, receiverID}
	lease, ok := t.leases[key]
	if ok {
		lease.timer.Stop()
	} else {
		lease = &typingLease{}
		t.leases[key] = lease
	}
	lease.gen++
	lease.username = username

	gen := lease.gen
	lease.timer = time.AfterFunc(t.ttl, func() { t.expireLease(key, gen) })
}

// expireLease is the timer callback. The expiry only stands if the lease
// still exists and this callback belongs to its latest arming.
func (t *typingTracker) expireLease(key leaseKey, gen uint64) {
	t.mu.Lock()
	lease, ok := t.leases[key]
	if !ok || lease.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.leases, key)
	username := lease.username
	t.mu.Unlock()

	t.expire(key.senderID, key.receiverID, username)
}

// Stop releases the lease explicitly. Reports whether a lease was active,
// so a stray typing:stop is not fanned out twice.
func (t *typingTracker) Stop(senderID, receiverID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := leaseKey{senderID, receiverID}
	lease, ok := t.leases[key]
	if !ok {
		return false
	}
	lease.timer.Stop()
	delete(t.leases, key)
	return true
}

// StopAllFor releases every lease the sender holds and returns the receiver
// identities that must be told typing stopped. Called when the sender's
// last connection drops.
func (t *typingTracker) StopAllFor(senderID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var receivers []string
	for key, lease := range t.leases {
		if key.senderID == senderID {
			lease.timer.Stop()
			delete(t.leases, key)
			receivers = append(receivers, key.receiverID)
		}
	}
	return receivers
}
