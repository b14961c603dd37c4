// Package realtime pumps gateway change events into the store for as long
// as a session is active. The manager owns the subscription lifecycle so
// UIs only have to call Start and Stop.
package realtime

import (
	"context"
	"sync"
	"time"

	"tend-cli/internal/gateway"
)

// Sink receives decoded change events. *store.Store satisfies it.
type Sink interface {
	ApplyChange(ev gateway.ChangeEvent)
}

// Reloader is asked for a full refresh after a feed drops and reconnects,
// covering events missed in the gap.
type Reloader interface {
	Reload(ctx context.Context) error
}

const reconnectDelay = 2 * time.Second

// Manager runs one subscription per Start call. Start is idempotent while a
// feed is active; Stop tears it down and waits for the pump to exit.
type Manager struct {
	gw   gateway.Gateway
	sink Sink
	rel  Reloader

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewManager(gw gateway.Gateway, sink Sink, rel Reloader) *Manager {
	return &Manager{gw: gw, sink: sink, rel: rel}
}

// Start opens the feed and pumps events until Stop or ctx cancellation.
// Calling Start while running is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true
	go m.run(ctx, m.done)
}

// Stop closes the feed and blocks until the pump goroutine exits.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.started = false
	m.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether a pump is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// run subscribes in a loop, backing off between attempts. Feed drops are
// expected during network blips; a reload after reconnect covers whatever
// the gap swallowed.
func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		sub, err := m.gw.Subscribe(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}
		if !first && m.rel != nil {
			_ = m.rel.Reload(ctx)
		}
		first = false
		m.pump(ctx, sub)
	}
}

// pump drains one subscription until it closes or ctx ends.
func (m *Manager) pump(ctx context.Context, sub gateway.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			m.sink.ApplyChange(ev)
		}
	}
}
