package main

import (
	"math"
	"sync"
	"testing"
)

func TestRegisterSubscriberQueueIdempotentListNot(t *testing.T) {
	reg := newSessionRegistry("")

	reg.registerSubscriber("10.0.0.1:4000")
	reg.registerSubscriber("10.0.0.1:4000")

	listLen, queueLen := reg.subscriberCounts()
	if listLen != 2 {
		t.Fatalf("expected subscriber list length 2 after re-subscribe, got %d", listLen)
	}
	if queueLen != 1 {
		t.Fatalf("expected job queue size 1 after re-subscribe, got %d", queueLen)
	}
}

func TestAuthorizeSecretGate(t *testing.T) {
	reg := newSessionRegistry("hunter2")

	if reg.authorizeWorker("10.0.0.1:4000", "w1", "wrong") {
		t.Fatalf("expected authorize with wrong secret to fail")
	}
	if n := reg.workerCount(); n != 0 {
		t.Fatalf("expected worker map unchanged after failed authorize, got %d entries", n)
	}

	if !reg.authorizeWorker("10.0.0.1:4000", "w1", "hunter2") {
		t.Fatalf("expected authorize with correct secret to succeed")
	}
	workers := reg.snapshotWorkers()
	if label := workers["10.0.0.1:4000"]; label != "w1" {
		t.Fatalf("expected worker map to contain w1, got %q", label)
	}
}

func TestAuthorizeNoSecretPassThrough(t *testing.T) {
	reg := newSessionRegistry("")
	if !reg.authorizeWorker("10.0.0.1:4000", "w1", "") {
		t.Fatalf("expected authorize to succeed with no configured secret")
	}
}

func TestNotifyCounterProgressionAndWraparound(t *testing.T) {
	reg := newSessionRegistry("")

	if id := reg.nextNotifyID(); id != 17 {
		t.Fatalf("expected first notify id 17, got %d", id)
	}
	if id := reg.nextNotifyID(); id != 18 {
		t.Fatalf("expected second notify id 18, got %d", id)
	}

	reg.mu.Lock()
	reg.notifyCounter = math.MaxUint32
	reg.mu.Unlock()

	if id := reg.nextNotifyID(); id != notifyCounterInitial {
		t.Fatalf("expected wraparound to %d, got %d", notifyCounterInitial, id)
	}
	if id := reg.nextNotifyID(); id != notifyCounterInitial+1 {
		t.Fatalf("expected normal incrementing after wraparound, got %d", id)
	}
}

func TestNotifyCounterNoDuplicateUnderConcurrency(t *testing.T) {
	reg := newSessionRegistry("")

	const rounds = 200
	ids := make(chan uint32, rounds)
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- reg.nextNotifyID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint32]struct{}, rounds)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate notify id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestRemoveWorkersLeavesSubscriptions(t *testing.T) {
	reg := newSessionRegistry("")
	reg.registerSubscriber("10.0.0.1:4000")
	reg.authorizeWorker("10.0.0.1:4000", "w1", "")

	reg.removeWorkers(map[string]struct{}{"10.0.0.1:4000": {}})

	if n := reg.workerCount(); n != 0 {
		t.Fatalf("expected worker removed, got %d entries", n)
	}
	listLen, queueLen := reg.subscriberCounts()
	if listLen != 1 || queueLen != 1 {
		t.Fatalf("expected subscription bookkeeping untouched by pruning, got list=%d queue=%d", listLen, queueLen)
	}
}

func TestRemoveWorkersUnknownIdentityIsNoop(t *testing.T) {
	reg := newSessionRegistry("")
	reg.authorizeWorker("10.0.0.1:4000", "w1", "")

	reg.removeWorkers(map[string]struct{}{"10.9.9.9:1": {}})

	if n := reg.workerCount(); n != 1 {
		t.Fatalf("expected worker map unchanged, got %d entries", n)
	}
}
