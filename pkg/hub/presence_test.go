package hub

import (
	"math/rand"
	"sync"
	"testing"
)

// The online flag must track the sign of the running connect/disconnect
// count for every interleaving.
func TestPresenceCountInvariant(t *testing.T) {
	p := NewPresence()
	rng := rand.New(rand.NewSource(42))

	const user = "user-1"
	active := 0

	for i := 0; i < 1000; i++ {
		if active == 0 || rng.Intn(2) == 0 {
			p.Connected(user)
			active++
		} else {
			p.Disconnected(user)
			active--
		}

		if got, want := p.IsOnline(user), active > 0; got != want {
			t.Fatalf("step %d: IsOnline = %v, want %v (active connections: %d)", i, got, want, active)
		}
	}
}

func TestPresenceEdgeEvents(t *testing.T) {
	p := NewPresence()

	if !p.Connected("a") {
		t.Error("first connection should cross the online edge")
	}
	if p.Connected("a") {
		t.Error("second connection must not report another online edge")
	}

	if p.Disconnected("a") {
		t.Error("one connection remains; no offline edge expected")
	}
	if !p.Disconnected("a") {
		t.Error("last disconnect should cross the offline edge")
	}

	// Disconnect without a matching connect is ignored.
	if p.Disconnected("a") {
		t.Error("unbalanced disconnect must not report an offline edge")
	}
}

// Exactly one offline edge per online period, regardless of how many
// connections the identity held.
func TestPresenceAtMostOneOfflineEdge(t *testing.T) {
	for _, conns := range []int{1, 2, 5, 20} {
		p := NewPresence()

		onlineEdges := 0
		for i := 0; i < conns; i++ {
			if p.Connected("u") {
				onlineEdges++
			}
		}
		offlineEdges := 0
		for i := 0; i < conns; i++ {
			if p.Disconnected("u") {
				offlineEdges++
			}
		}

		if onlineEdges != 1 || offlineEdges != 1 {
			t.Errorf("%d connections: got %d online and %d offline edges, want exactly 1 of each",
				conns, onlineEdges, offlineEdges)
		}
	}
}

func TestPresenceConcurrentChurn(t *testing.T) {
	p := NewPresence()

	var wg sync.WaitGroup
	var mu sync.Mutex
	onlineEdges, offlineEdges := 0, 0

	// Every goroutine is one connection's full lifecycle.
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			becameOnline := p.Connected("u")
			becameOffline := p.Disconnected("u")
			mu.Lock()
			if becameOnline {
				onlineEdges++
			}
			if becameOffline {
				offlineEdges++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if p.IsOnline("u") {
		t.Error("all connections closed; user must be offline")
	}
	if onlineEdges != offlineEdges {
		t.Errorf("edges must pair up: %d online, %d offline", onlineEdges, offlineEdges)
	}
	if onlineEdges < 1 {
		t.Error("at least one online period must have been observed")
	}
}

func TestPresenceSnapshot(t *testing.T) {
	p := NewPresence()
	p.Connected("b")
	p.Connected("a")
	p.Connected("a")
	p.Connected("c")
	p.Disconnected("c")

	got := p.Snapshot()
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot = %v, want %v", got, want)
		}
	}
}
