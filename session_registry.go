package main

import (
	"math"
	"sync"
)

// notifyCounterInitial seeds the notify id sequence. The counter also resets
// here instead of zero when it reaches the top of the uint32 range, so the
// maximum value is never emitted as a notification id.
const notifyCounterInitial uint32 = 16

// sessionRegistry is the single shared mutable aggregate of the stratum
// server: who subscribed, who is queued for jobs, and which connections are
// authorized workers. Every field is guarded by the registry's own RWMutex;
// nothing outside this file touches the collections directly.
type sessionRegistry struct {
	mu sync.RWMutex
	// subscribers keeps insertion order and duplicates: a miner that calls
	// mining.subscribe twice appears twice. Observable bookkeeping only.
	subscribers []string
	// jobQueue is the idempotent membership set of subscribed connections.
	// Delivery targets the workers map, not this set.
	jobQueue map[string]struct{}
	// workers maps connection identity to the worker label presented in a
	// successful mining.authorize. This is the broadcast target set.
	workers map[string]string
	// secretHash is nil when authorization is open to anyone.
	secretHash    *[32]byte
	notifyCounter uint32
}

func newSessionRegistry(sharedSecret string) *sessionRegistry {
	r := &sessionRegistry{
		jobQueue:      make(map[string]struct{}),
		workers:       make(map[string]string),
		notifyCounter: notifyCounterInitial,
	}
	if sharedSecret != "" {
		h := hashSecret(sharedSecret)
		r.secretHash = &h
	}
	return r
}

func (r *sessionRegistry) registerSubscriber(remote string) {
	r.mu.Lock()
	r.subscribers = append(r.subscribers, remote)
	r.jobQueue[remote] = struct{}{}
	r.mu.Unlock()
}

// authorizeWorker validates the supplied secret against the configured hash
// and, on success, records remote as an authorized worker. A mismatch leaves
// the registry untouched and reports false; that is a protocol-level result,
// not an error.
func (r *sessionRegistry) authorizeWorker(remote, workerLabel, secret string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.secretHash != nil {
		if hashSecret(secret) != *r.secretHash {
			return false
		}
	}
	r.workers[remote] = workerLabel
	return true
}

// nextNotifyID advances the notify counter under the registry lock so two
// concurrent broadcast rounds never share an id. At the top of the range the
// counter resets to notifyCounterInitial rather than incrementing past it.
func (r *sessionRegistry) nextNotifyID() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notifyCounter == math.MaxUint32 {
		r.notifyCounter = notifyCounterInitial
	} else {
		r.notifyCounter++
	}
	return r.notifyCounter
}

// snapshotWorkers returns a consistent point-in-time copy of the authorized
// worker map. Broadcast iterates the copy so pushes never run under the
// registry lock.
func (r *sessionRegistry) snapshotWorkers() map[string]string {
	r.mu.RLock()
	out := make(map[string]string, len(r.workers))
	for remote, label := range r.workers {
		out[remote] = label
	}
	r.mu.RUnlock()
	return out
}

// removeWorkers drops the given identities from the worker map in one
// exclusive step. Identities not present are ignored. The subscriber list and
// job queue set record subscription history and are deliberately not purged.
func (r *sessionRegistry) removeWorkers(gone map[string]struct{}) {
	if len(gone) == 0 {
		return
	}
	r.mu.Lock()
	for remote := range gone {
		delete(r.workers, remote)
	}
	r.mu.Unlock()
}

func (r *sessionRegistry) workerCount() int {
	r.mu.RLock()
	n := len(r.workers)
	r.mu.RUnlock()
	return n
}

func (r *sessionRegistry) subscriberCounts() (listLen, queueLen int) {
	r.mu.RLock()
	listLen = len(r.subscribers)
	queueLen = len(r.jobQueue)
	r.mu.RUnlock()
	return listLen, queueLen
}
