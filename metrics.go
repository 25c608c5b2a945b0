package main

import "sync/atomic"

// poolMetrics aggregates the server's operational counters. Everything is
// atomic so the hot paths never contend on a mutex for bookkeeping.
type poolMetrics struct {
	subscribes      atomic.Uint64
	submitAccepted  atomic.Uint64
	submitRejected  atomic.Uint64
	broadcastRounds atomic.Uint64
	pushOK          atomic.Uint64
	pushGone        atomic.Uint64
	pushErrors      atomic.Uint64
}

func newPoolMetrics() *poolMetrics {
	return &poolMetrics{}
}

type metricsSnapshot struct {
	Subscribes      uint64
	SubmitAccepted  uint64
	SubmitRejected  uint64
	BroadcastRounds uint64
	PushOK          uint64
	PushGone        uint64
	PushErrors      uint64
}

func (m *poolMetrics) snapshot() metricsSnapshot {
	return metricsSnapshot{
		Subscribes:      m.subscribes.Load(),
		SubmitAccepted:  m.submitAccepted.Load(),
		SubmitRejected:  m.submitRejected.Load(),
		BroadcastRounds: m.broadcastRounds.Load(),
		PushOK:          m.pushOK.Load(),
		PushGone:        m.pushGone.Load(),
		PushErrors:      m.pushErrors.Load(),
	}
}

// logStatus emits the periodic one-line operational summary.
func (s *Stratum) logStatus(uptime string) {
	snap := s.metrics.snapshot()
	listLen, queueLen := s.registry.subscriberCounts()
	logger.Info("status",
		"uptime", uptime,
		"conns", s.peers.count(),
		"workers", s.registry.workerCount(),
		"subscribers", listLen,
		"job_queue", queueLen,
		"accepted", snap.SubmitAccepted,
		"rejected", snap.SubmitRejected,
		"broadcasts", snap.BroadcastRounds,
		"push_ok", snap.PushOK,
		"push_gone", snap.PushGone,
		"push_err", snap.PushErrors,
	)
}
