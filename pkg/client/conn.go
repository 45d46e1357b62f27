// Package client connects to a ramblathon server as the writing session.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSessionBusy is returned by Dial when another session holds the server.
var ErrSessionBusy = errors.New("a session is already active")

// Conn is an admitted session.
type Conn struct {
	conn *websocket.Conn
	done chan struct{}
}

// URL builds the websocket endpoint for a host:port.
func URL(addr string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	return u.String()
}

// Dial connects and waits for the initial document.
func Dial(ctx context.Context, rawURL string) (*Conn, string, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return nil, "", fmt.Errorf("failed to dial %s: %w", rawURL, ErrSessionBusy)
		}
		return nil, "", fmt.Errorf("failed to dial %s: %w", rawURL, err)
	}

	mt, p, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, "", fmt.Errorf("failed to read initial document: %w", err)
	}
	if mt != websocket.TextMessage {
		_ = conn.Close()
		return nil, "", fmt.Errorf("unexpected initial message type %d", mt)
	}

	c := &Conn{conn: conn, done: make(chan struct{})}
	go c.drain()
	return c, string(p), nil
}

// drain reads until the connection fails so that control frames are handled
// and Done fires when the server goes away. The server sends nothing after
// the initial document.
func (c *Conn) drain() {
	defer close(c.done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Done is closed once the connection is gone.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Send submits one delta.
func (c *Conn) Send(delta string) error {
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(delta)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (c *Conn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}
