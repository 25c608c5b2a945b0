package main

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFeedDispatcherInitialIsFirstPayload(t *testing.T) {
	d := newFeedDispatcher(nil)

	if _, ok := d.Initial(); ok {
		t.Fatalf("expected no initial payload before the first job")
	}
	if _, ok := d.Job(); ok {
		t.Fatalf("expected no current job before the first job")
	}

	d.SetJob(`[1]`)
	d.SetJob(`[2]`)

	if initial, ok := d.Initial(); !ok || initial != `[1]` {
		t.Fatalf("expected initial payload to stay at first job, got %q ok=%v", initial, ok)
	}
	if job, ok := d.Job(); !ok || job != `[2]` {
		t.Fatalf("expected current job to follow the feed, got %q ok=%v", job, ok)
	}
}

func TestFeedDispatcherSubmitValidation(t *testing.T) {
	d := newFeedDispatcher(nil)

	if err := d.Submit([]string{"sol"}); !errors.Is(err, errNoActiveJob) {
		t.Fatalf("expected no-active-job error, got %v", err)
	}

	d.SetJob(`[1]`)
	if err := d.Submit(nil); !errors.Is(err, errEmptySubmission) {
		t.Fatalf("expected empty-submission error, got %v", err)
	}
	if err := d.Submit([]string{"sol"}); err != nil {
		t.Fatalf("expected submission accepted, got %v", err)
	}
}

func TestFeedDispatcherRecordsToStore(t *testing.T) {
	store, err := newSubmissionStore(filepath.Join(t.TempDir(), "submissions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	d := newFeedDispatcher(store)
	d.SetJob(`[1]`)
	if err := d.Submit([]string{"0xabc", "0xdef"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	n, err := store.count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one recorded submission, got %d", n)
	}
}
