package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

type mockFeed struct {
	mu  sync.Mutex
	evs []domain.ChangeEvent
	err error
}

func (m *mockFeed) EnqueueChanges(ctx context.Context, evs []domain.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.evs = append(m.evs, evs...)
	return nil
}

func (m *mockFeed) Events() []domain.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChangeEvent, len(m.evs))
	copy(out, m.evs)
	return out
}

func waitForEvents(t *testing.T, feed *mockFeed, expected int) []domain.ChangeEvent {
	t.Helper()
	deadline := time.Now().Add(200 * time.Millisecond)
	for {
		evs := feed.Events()
		if len(evs) == expected {
			return evs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d events, got %d", expected, len(evs))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishChangeDeliversAsync(t *testing.T) {
	shutdownChangeSender()
	t.Cleanup(shutdownChangeSender)

	feed := &mockFeed{}
	initChangeSender(feed, log.New())

	publishChange(domain.TaskCreated, "t1")
	publishChange(domain.TaskDeleted, "t2")

	// Workers may deliver the two jobs in either order.
	evs := waitForEvents(t, feed, 2)
	byTask := map[string]domain.ChangeEvent{}
	for _, ev := range evs {
		byTask[ev.TaskID] = ev
	}
	if byTask["t1"].Type != domain.TaskCreated || byTask["t2"].Type != domain.TaskDeleted {
		t.Fatalf("unexpected events: %#v", evs)
	}
	if byTask["t1"].ID == "" || byTask["t2"].ID == "" {
		t.Fatalf("expected generated event ids")
	}
	if byTask["t2"].Timestamp <= byTask["t1"].Timestamp {
		t.Fatalf("expected increasing timestamps, got %d then %d", byTask["t1"].Timestamp, byTask["t2"].Timestamp)
	}
}

func TestPublishChangeInlineFallback(t *testing.T) {
	shutdownChangeSender()
	t.Cleanup(shutdownChangeSender)

	// Sender never started: the event is published inline.
	feed := &mockFeed{}
	globalFeed = feed

	publishChange(domain.TaskUpdated, "t1")

	evs := feed.Events()
	if len(evs) != 1 || evs[0].Type != domain.TaskUpdated {
		t.Fatalf("expected inline publish, got %#v", evs)
	}
}

func TestPublishChangeWithoutFeedIsNoop(t *testing.T) {
	shutdownChangeSender()
	t.Cleanup(shutdownChangeSender)

	// Must not panic with no feed configured.
	publishChange(domain.TaskCreated, "t1")
}

func TestPublishChangeFailureIsSwallowed(t *testing.T) {
	shutdownChangeSender()
	t.Cleanup(shutdownChangeSender)

	feed := &mockFeed{err: errors.New("queue unavailable")}
	globalFeed = feed
	globalLog = log.New()

	// Best effort: a failing feed never panics or blocks the caller.
	publishChange(domain.TaskDeleted, "t1")
}
