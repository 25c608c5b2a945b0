package main

// The three stratum methods are implemented as pure functions of
// (registry, dispatcher, params, connection identity); all transport concerns
// stay in MinerConn. That split keeps them testable without sockets.

// rpcSubscribe always succeeds: it records the subscription and hands back
// the dispatcher's initial payload when one exists, an empty array otherwise.
func (s *Stratum) rpcSubscribe(remote string) any {
	s.registry.registerSubscriber(remote)
	s.metrics.subscribes.Add(1)
	if debugLogging {
		logger.Debug("subscription request", "remote", remote)
	}

	payload, ok := s.dispatcher.Initial()
	if !ok {
		return []any{}
	}
	var result any
	if err := fastJSONUnmarshal([]byte(payload), &result); err != nil {
		logger.Warn("invalid initial payload", "payload", payload, "error", err)
		return []any{}
	}
	return result
}

// rpcAuthorize reports the registry's verdict as the protocol result. A bad
// secret is a plain false; miners poll and retry rather than parse error
// objects.
func (s *Stratum) rpcAuthorize(remote, workerLabel, secret string) bool {
	if !s.registry.authorizeWorker(remote, workerLabel, secret) {
		logger.Warn("authorization rejected", "remote", remote, "worker", workerLabel)
		return false
	}
	if debugLogging {
		logger.Debug("worker registered", "remote", remote, "worker", workerLabel)
	}
	return true
}

// rpcSubmit forwards the solution fields to the dispatcher and, when the
// dispatcher accepts, broadcasts the current job to every authorized worker.
// The first two positional params are service fields (worker and job ids)
// and are always skipped; non-string values in the tail are dropped.
func (s *Stratum) rpcSubmit(remote string, params any) bool {
	list, ok := params.([]any)
	if !ok {
		logger.Warn("invalid submit params shape", "remote", remote)
		s.metrics.submitRejected.Add(1)
		return false
	}

	fields := make([]string, 0, len(list))
	for i, v := range list {
		if i < 2 {
			continue
		}
		if str, isStr := v.(string); isStr {
			fields = append(fields, str)
		}
	}

	if err := s.dispatcher.Submit(fields); err != nil {
		logger.Warn("submission rejected", "remote", remote, "error", err)
		s.metrics.submitRejected.Add(1)
		return false
	}
	s.metrics.submitAccepted.Add(1)

	if payload, ok := s.dispatcher.Job(); ok {
		s.PushWorkAll(payload)
	}
	return true
}
