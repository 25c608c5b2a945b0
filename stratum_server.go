package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// drainTimeout bounds how long Close waits for in-flight handler goroutines.
const drainTimeout = 10 * time.Second

// identityFunc derives the connection identity used to key the session
// registry and peer table. The default is the remote socket address; tests
// and unusual transports may inject their own.
type identityFunc func(net.Conn) string

func remoteAddrIdentity(conn net.Conn) string {
	return conn.RemoteAddr().String()
}

// Stratum owns the session registry, the dispatcher handle, and the listener.
// One instance serves one bind address for the server's whole lifetime.
type Stratum struct {
	cfg        Config
	dispatcher JobDispatcher
	registry   *sessionRegistry
	peers      *peerTable
	pusher     workPusher
	metrics    *poolMetrics
	identity   identityFunc

	ln        net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	connWg    sync.WaitGroup
	closeOnce sync.Once
}

// newStratumCore wires the registry, peer table, and metrics without opening
// a listener. StartStratum is the production entry point; tests use this to
// drive the protocol handlers directly.
func newStratumCore(cfg Config, dispatcher JobDispatcher) *Stratum {
	if cfg.BroadcastFanout <= 0 {
		cfg.BroadcastFanout = defaultBroadcastFanout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Stratum{
		cfg:        cfg,
		dispatcher: dispatcher,
		registry:   newSessionRegistry(cfg.SharedSecret),
		peers:      newPeerTable(),
		metrics:    newPoolMetrics(),
		identity:   remoteAddrIdentity,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.pusher = s.peers
	return s
}

// StartStratum binds cfg.ListenAddr and begins accepting miners. A bind
// failure is fatal to construction: no server instance is returned.
func StartStratum(cfg Config, dispatcher JobDispatcher) (*Stratum, error) {
	s := newStratumCore(cfg, dispatcher)
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("stratum listen %s: %w", cfg.ListenAddr, err)
	}
	s.ln = ln
	logger.Info("stratum listening", "addr", ln.Addr().String())

	s.connWg.Add(1)
	go func() {
		defer s.connWg.Done()
		s.acceptLoop(ln)
	}()
	return s, nil
}

func (s *Stratum) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Stratum) acceptLoop(ln net.Listener) {
	limiter := newAcceptRateLimiter(s.cfg.MaxAcceptsPerSecond, s.cfg.MaxAcceptBurst)
	for {
		if !limiter.wait(s.ctx) {
			return
		}
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("accept error", "error", err)
			continue
		}
		if s.cfg.MaxConns > 0 && s.peers.count() >= s.cfg.MaxConns {
			logger.Warn("rejecting miner: at capacity", "remote", conn.RemoteAddr().String(), "max_conns", s.cfg.MaxConns)
			_ = conn.Close()
			continue
		}
		disableTCPNagle(conn)

		mc := newMinerConn(s, conn)
		s.peers.add(mc)

		s.connWg.Add(1)
		go func(mc *MinerConn) {
			defer s.connWg.Done()
			defer s.peers.remove(mc)
			mc.handle()
		}(mc)
	}
}

func disableTCPNagle(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
}

// Close stops accepting, disconnects miners, and waits for in-flight handler
// goroutines to finish (bounded by drainTimeout). Safe to call more than
// once.
func (s *Stratum) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.ln != nil {
			_ = s.ln.Close()
		}
		for _, mc := range s.peers.snapshot() {
			mc.Close("shutdown")
		}

		done := make(chan struct{})
		go func() {
			s.connWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(drainTimeout):
			logger.Warn("timed out waiting for miners to drain")
		}
	})
}
