package main

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildNotifyLineShape(t *testing.T) {
	line := buildNotifyLine(17, `[2]`)
	want := `{"id":17,"method":"mining.notify","params":[2]}` + "\n"
	if string(line) != want {
		t.Fatalf("notify line mismatch:\ngot  %q\nwant %q", line, want)
	}
}

func TestPushWorkAllSameMessagePerRound(t *testing.T) {
	pusher := newFakePusher()
	s := newTestStratum(&fakeDispatcher{}, pusher)
	s.registry.authorizeWorker("10.0.0.1:4000", "w1", "")
	s.registry.authorizeWorker("10.0.0.2:4000", "w2", "")

	s.PushWorkAll(`["payload"]`)

	a := pusher.lines("10.0.0.1:4000")
	b := pusher.lines("10.0.0.2:4000")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one push per worker, got %d and %d", len(a), len(b))
	}
	if !bytes.Equal(a[0], b[0]) {
		t.Fatalf("recipients saw different messages:\n%q\n%q", a[0], b[0])
	}
	want := `{"id":17,"method":"mining.notify","params":["payload"]}` + "\n"
	if string(a[0]) != want {
		t.Fatalf("unexpected round message: got %q want %q", a[0], want)
	}
}

func TestPushWorkAllAdvancesNotifyIDPerRound(t *testing.T) {
	pusher := newFakePusher()
	s := newTestStratum(&fakeDispatcher{}, pusher)
	s.registry.authorizeWorker("10.0.0.1:4000", "w1", "")

	s.PushWorkAll(`[1]`)
	s.PushWorkAll(`[2]`)

	lines := pusher.lines("10.0.0.1:4000")
	if len(lines) != 2 {
		t.Fatalf("expected two pushes, got %d", len(lines))
	}
	if string(lines[0]) != `{"id":17,"method":"mining.notify","params":[1]}`+"\n" {
		t.Fatalf("unexpected first round: %q", lines[0])
	}
	if string(lines[1]) != `{"id":18,"method":"mining.notify","params":[2]}`+"\n" {
		t.Fatalf("unexpected second round: %q", lines[1])
	}
}

func TestPushWorkAllPrunesDeadPeers(t *testing.T) {
	pusher := newFakePusher()
	pusher.fail["10.0.0.1:4000"] = errNoSuchPeer

	s := newTestStratum(&fakeDispatcher{}, pusher)
	s.registry.authorizeWorker("10.0.0.1:4000", "wA", "")
	s.registry.authorizeWorker("10.0.0.2:4000", "wB", "")

	s.PushWorkAll(`[1]`)

	workers := s.registry.snapshotWorkers()
	if len(workers) != 1 {
		t.Fatalf("expected one worker after pruning, got %d", len(workers))
	}
	if workers["10.0.0.2:4000"] != "wB" {
		t.Fatalf("expected surviving worker wB, got %#v", workers)
	}

	// A subsequent round only targets the survivor.
	s.PushWorkAll(`[2]`)
	if n := len(pusher.lines("10.0.0.2:4000")); n != 2 {
		t.Fatalf("expected survivor to receive both rounds, got %d", n)
	}
}

func TestPushWorkAllRetainsPeerOnTransientError(t *testing.T) {
	pusher := newFakePusher()
	pusher.fail["10.0.0.1:4000"] = errors.New("write timeout")

	s := newTestStratum(&fakeDispatcher{}, pusher)
	s.registry.authorizeWorker("10.0.0.1:4000", "wA", "")

	s.PushWorkAll(`[1]`)

	if n := s.registry.workerCount(); n != 1 {
		t.Fatalf("expected transient push failure to retain worker, got %d entries", n)
	}
}

func TestPushWorkAllWithNoWorkersStillAdvancesCounter(t *testing.T) {
	s := newTestStratum(&fakeDispatcher{}, newFakePusher())

	s.PushWorkAll(`[1]`)
	if id := s.registry.nextNotifyID(); id != 18 {
		t.Fatalf("expected counter at 18 after one empty round, got %d", id)
	}
}
