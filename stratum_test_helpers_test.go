package main

import "sync"

type fakeDispatcher struct {
	mu          sync.Mutex
	initial     string
	job         string
	submitErr   error
	submissions [][]string
}

func (d *fakeDispatcher) Initial() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initial, d.initial != ""
}

func (d *fakeDispatcher) Job() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.job, d.job != ""
}

func (d *fakeDispatcher) Submit(fields []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]string, len(fields))
	copy(cp, fields)
	d.submissions = append(d.submissions, cp)
	return d.submitErr
}

func (d *fakeDispatcher) submitted() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]string, len(d.submissions))
	copy(out, d.submissions)
	return out
}

// fakePusher records pushed lines per identity and can be told to fail
// specific identities with a fixed error.
type fakePusher struct {
	mu     sync.Mutex
	fail   map[string]error
	pushed map[string][][]byte
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		fail:   make(map[string]error),
		pushed: make(map[string][][]byte),
	}
}

func (p *fakePusher) push(remote string, line []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.fail[remote]; ok {
		return err
	}
	p.pushed[remote] = append(p.pushed[remote], append([]byte(nil), line...))
	return nil
}

func (p *fakePusher) lines(remote string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.pushed[remote]))
	copy(out, p.pushed[remote])
	return out
}

func newTestStratum(disp JobDispatcher, pusher workPusher) *Stratum {
	s := newStratumCore(Config{ListenAddr: "127.0.0.1:0", BroadcastFanout: 4}, disp)
	if pusher != nil {
		s.pusher = pusher
	}
	return s
}
