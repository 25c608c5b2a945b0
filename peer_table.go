package main

import (
	"errors"
	"sync"
)

// errNoSuchPeer reports that a push target is no longer connected. The
// broadcaster treats it as proof of disconnection and prunes the worker;
// every other push error is considered transient.
var errNoSuchPeer = errors.New("no such peer")

// workPusher delivers an out-of-band line to a previously identified
// connection. The production implementation is the peerTable; tests swap in
// recording fakes.
type workPusher interface {
	push(remote string, line []byte) error
}

// peerTable tracks live connections keyed by connection identity. The mutex
// is held only during map operations, never during network writes.
type peerTable struct {
	mu    sync.Mutex
	conns map[string]*MinerConn
}

func newPeerTable() *peerTable {
	return &peerTable{
		conns: make(map[string]*MinerConn),
	}
}

func (t *peerTable) add(mc *MinerConn) {
	if mc == nil {
		return
	}
	t.mu.Lock()
	t.conns[mc.remote] = mc
	t.mu.Unlock()
}

// remove drops mc from the table unless a newer connection has already
// claimed the same identity.
func (t *peerTable) remove(mc *MinerConn) {
	if mc == nil {
		return
	}
	t.mu.Lock()
	if current, ok := t.conns[mc.remote]; ok && current == mc {
		delete(t.conns, mc.remote)
	}
	t.mu.Unlock()
}

func (t *peerTable) count() int {
	t.mu.Lock()
	n := len(t.conns)
	t.mu.Unlock()
	return n
}

func (t *peerTable) snapshot() []*MinerConn {
	t.mu.Lock()
	out := make([]*MinerConn, 0, len(t.conns))
	for _, mc := range t.conns {
		out = append(out, mc)
	}
	t.mu.Unlock()
	return out
}

func (t *peerTable) push(remote string, line []byte) error {
	t.mu.Lock()
	mc := t.conns[remote]
	t.mu.Unlock()
	if mc == nil {
		return errNoSuchPeer
	}
	return mc.writeBytes(line)
}
