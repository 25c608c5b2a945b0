package main

import (
	"errors"
	"strings"
	"sync"
)

// JobDispatcher supplies job payloads and judges submitted solutions. The
// server treats payloads as opaque JSON text; what a job means is entirely
// the dispatcher's business.
type JobDispatcher interface {
	// Initial returns the payload handed to a newly subscribed miner, or
	// ok=false when there is nothing to hand out yet.
	Initial() (payload string, ok bool)
	// Job returns the current payload to broadcast after an accepted
	// submission, or ok=false to skip the broadcast.
	Job() (payload string, ok bool)
	// Submit judges a solution. The fields are the string tail of the
	// mining.submit params with the two leading service fields removed.
	Submit(fields []string) error
}

var (
	errEmptySubmission = errors.New("submission carried no solution fields")
	errNoActiveJob     = errors.New("no active job")
)

// feedDispatcher is the production JobDispatcher. The job feed replaces its
// current payload as upstream publishes new work; the first payload ever seen
// doubles as the initial payload for late subscribers. Accepted submissions
// are appended to the submission store when one is configured.
type feedDispatcher struct {
	mu      sync.RWMutex
	current string
	initial string
	store   *submissionStore
}

func newFeedDispatcher(store *submissionStore) *feedDispatcher {
	return &feedDispatcher{store: store}
}

// SetJob installs payload as the current job. Called by the job feed.
func (d *feedDispatcher) SetJob(payload string) {
	d.mu.Lock()
	if d.initial == "" {
		d.initial = payload
	}
	d.current = payload
	d.mu.Unlock()
}

func (d *feedDispatcher) Initial() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initial, d.initial != ""
}

func (d *feedDispatcher) Job() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current, d.current != ""
}

func (d *feedDispatcher) Submit(fields []string) error {
	if len(fields) == 0 {
		return errEmptySubmission
	}
	d.mu.RLock()
	current := d.current
	d.mu.RUnlock()
	if current == "" {
		return errNoActiveJob
	}
	if d.store != nil {
		if err := d.store.record(strings.Join(fields, " ")); err != nil {
			// Bookkeeping failure only; the solution itself was fine.
			logger.Warn("record submission", "error", err)
		}
	}
	return nil
}
