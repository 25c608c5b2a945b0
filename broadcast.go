package main

import (
	"errors"
	"strconv"
	"sync"

	"github.com/remeh/sizedwaitgroup"
)

// buildNotifyLine assembles the newline-terminated mining.notify message for
// one broadcast round. The payload is spliced in verbatim, so every recipient
// of the round sees byte-identical output.
func buildNotifyLine(id uint32, payload string) []byte {
	buf := make([]byte, 0, 48+len(payload))
	buf = append(buf, `{"id":`...)
	buf = strconv.AppendUint(buf, uint64(id), 10)
	buf = append(buf, `,"method":"`...)
	buf = append(buf, methodNotify...)
	buf = append(buf, `","params":`...)
	buf = append(buf, payload...)
	buf = append(buf, '}', '\n')
	return buf
}

// PushWorkAll delivers payload to every authorized worker. Pushes run against
// a snapshot of the worker map so no registry lock is held during network
// writes; peers whose connection is gone are collected during the round and
// removed in a single exclusive step afterwards. Transient push failures keep
// the peer since they are not proof of disconnection.
func (s *Stratum) PushWorkAll(payload string) {
	notifyID := s.registry.nextNotifyID()
	line := buildNotifyLine(notifyID, payload)
	workers := s.registry.snapshotWorkers()

	s.metrics.broadcastRounds.Add(1)
	if debugLogging {
		logger.Debug("pushing work", "workers", len(workers), "notify_id", notifyID)
	}

	var (
		hupMu    sync.Mutex
		hupPeers map[string]struct{}
	)
	swg := sizedwaitgroup.New(s.cfg.BroadcastFanout)
	for remote := range workers {
		swg.Add()
		go func(remote string) {
			defer swg.Done()
			err := s.pusher.push(remote, line)
			switch {
			case err == nil:
				s.metrics.pushOK.Add(1)
			case errors.Is(err, errNoSuchPeer):
				s.metrics.pushGone.Add(1)
				if debugLogging {
					logger.Debug("worker no longer connected", "remote", remote)
				}
				hupMu.Lock()
				if hupPeers == nil {
					hupPeers = make(map[string]struct{})
				}
				hupPeers[remote] = struct{}{}
				hupMu.Unlock()
			default:
				s.metrics.pushErrors.Add(1)
				logger.Warn("push work error", "remote", remote, "error", err)
			}
		}(remote)
	}
	swg.Wait()

	if len(hupPeers) > 0 {
		s.registry.removeWorkers(hupPeers)
		logger.Info("pruned dead workers", "count", len(hupPeers), "remaining", s.registry.workerCount())
	}
}
