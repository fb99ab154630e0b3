package transport

import (
	"sync"
	"time"
)

// peerState tracks one source address's replay and authentication
// failure history, per spec.md §3's PeerState.
type peerState struct {
	lastSerial   uint64
	lastSeen     time.Time
	failureCount uint32
	firstFailure time.Time
}

const (
	failureWindow    = 10 * time.Second
	failureThreshold = 3
)

// peerTable is the mutex-guarded table of PeerState keyed by source
// address, held only for pointer-chasing per spec.md §5's shared
// resources note (never across crypto operations).
type peerTable struct {
	mu    sync.Mutex
	peers map[string]*peerState
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[string]*peerState)}
}

// checkReplay reports whether serial is acceptable for addr (strictly
// greater than its last accepted serial) without mutating state.
func (t *peerTable) checkReplay(addr string, serial uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[addr]
	if !ok {
		return true
	}
	return serial > p.lastSerial
}

// accept records a successful frame: advance last_serial, reset the
// failure count.
func (t *peerTable) accept(addr string, serial uint64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[addr]
	if !ok {
		p = &peerState{}
		t.peers[addr] = p
	}
	p.lastSerial = serial
	p.lastSeen = now
	p.failureCount = 0
}

// fail records an authentication or replay failure for addr and
// reports whether the 3-within-10s threshold of spec.md §4.10 has just
// been reached, in which case the caller should trigger a ban exactly
// once.
func (t *peerTable) fail(addr string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[addr]
	if !ok {
		p = &peerState{}
		t.peers[addr] = p
	}

	if p.failureCount == 0 || now.Sub(p.firstFailure) > failureWindow {
		p.firstFailure = now
		p.failureCount = 1
		return false
	}

	p.failureCount++
	p.lastSeen = now
	if p.failureCount == failureThreshold {
		return true
	}
	return false
}
