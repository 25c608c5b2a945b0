package main

import (
	"context"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
)

const (
	feedRetryDelay     = 5 * time.Second
	feedReceiveTimeout = 1 * time.Second
)

// jobFeed subscribes to an upstream ZeroMQ publisher of job payloads. Each
// message replaces the dispatcher's current job and triggers a broadcast to
// every authorized worker, so new work reaches miners without waiting for a
// submission. The socket is rebuilt from scratch after any receive error.
type jobFeed struct {
	addr       string
	topic      string
	dispatcher *feedDispatcher
	srv        *Stratum
}

func newJobFeed(cfg Config, dispatcher *feedDispatcher, srv *Stratum) *jobFeed {
	return &jobFeed{
		addr:       cfg.ZMQJobAddr,
		topic:      cfg.ZMQJobTopic,
		dispatcher: dispatcher,
		srv:        srv,
	}
}

func (f *jobFeed) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := f.subscribeLoop(ctx); err != nil {
			logger.Warn("job feed error; reconnecting", "addr", f.addr, "error", err)
		}
		if err := sleepContext(ctx, feedRetryDelay); err != nil {
			return
		}
	}
}

func (f *jobFeed) subscribeLoop(ctx context.Context) error {
	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	defer sub.Close()

	if err := sub.SetSubscribe(f.topic); err != nil {
		return err
	}
	// Receive timeout keeps the loop responsive to ctx cancellation.
	if err := sub.SetRcvtimeo(feedReceiveTimeout); err != nil {
		return err
	}
	if err := sub.Connect(f.addr); err != nil {
		return err
	}
	logger.Info("watching job feed", "addr", f.addr, "topic", f.topic)

	for {
		if ctx.Err() != nil {
			return nil
		}
		frames, err := sub.RecvMessageBytes(0)
		if err != nil {
			eno := zmq4.AsErrno(err)
			if eno == zmq4.Errno(syscall.EAGAIN) || eno == zmq4.ETIMEDOUT {
				continue
			}
			return err
		}
		if len(frames) < 2 {
			logger.Warn("job feed message malformed", "frames", len(frames))
			continue
		}

		payload := string(frames[1])
		f.dispatcher.SetJob(payload)
		logger.Info("new job from feed", "bytes", len(payload))
		f.srv.PushWorkAll(payload)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
