package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tend-cli/internal/gateway"
	"tend-cli/internal/gateway/memory"
	"tend-cli/internal/model"
)

type recordingSink struct {
	mu  sync.Mutex
	evs []gateway.ChangeEvent
}

func (s *recordingSink) ApplyChange(ev gateway.ChangeEvent) {
	s.mu.Lock()
	s.evs = append(s.evs, ev)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evs)
}

func (s *recordingSink) first() gateway.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evs[0]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestManagerPumpsEvents(t *testing.T) {
	back := memory.New()
	me := back.Gateway("me@x.com")
	sink := &recordingSink{}
	m := NewManager(me, sink, nil)

	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	// The pump subscribes asynchronously; keep writing until a write lands
	// inside the live feed.
	n := 0
	waitFor(t, func() bool {
		if sink.count() > 0 {
			return true
		}
		n++
		_, _ = me.CreateList(ctx, model.List{Name: fmt.Sprintf("Inbox %d", n)})
		return false
	})

	got := sink.first()
	if got.Table != gateway.TableLists || got.Type != gateway.EventInsert {
		t.Fatalf("unexpected first event: %+v", got)
	}
}

func TestManagerStartIsIdempotentAndStopWaits(t *testing.T) {
	back := memory.New()
	sink := &recordingSink{}
	m := NewManager(back.Gateway("me@x.com"), sink, nil)

	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx) // no second pump
	if !m.Running() {
		t.Fatal("expected running")
	}
	m.Stop()
	if m.Running() {
		t.Fatal("expected stopped")
	}
	m.Stop() // second stop is a no-op
}
