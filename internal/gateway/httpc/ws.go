package httpc

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tend-cli/internal/gateway"
)

const pongWait = 60 * time.Second

type subscription struct {
	conn *websocket.Conn
	ch   chan gateway.ChangeEvent
	once sync.Once
}

func (s *subscription) Events() <-chan gateway.ChangeEvent { return s.ch }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() { err = s.conn.Close() })
	return err
}

// Subscribe dials the server's websocket feed. The returned channel closes
// when the connection drops; reconnect policy belongs to the caller.
func (c *Client) Subscribe(ctx context.Context) (gateway.Subscription, error) {
	wsURL := *c.base
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	}
	wsURL.Path = wsURL.Path + "/v1/ws"
	wsURL.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}

	sub := &subscription{conn: conn, ch: make(chan gateway.ChangeEvent, 64)}

	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	go func() {
		defer close(sub.ch)
		defer sub.Close()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		for {
			var ev gateway.ChangeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			select {
			case sub.ch <- ev:
			default:
				// Drop rather than stall the read loop; the store's
				// reload path covers gaps.
			}
		}
	}()

	return sub, nil
}
