// Package gateway maintains the push-event WebSocket: one connection
// carrying every subscribed scope, and a router that fans typed events out
// to the state stores.
package gateway

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harmonic-chat/harmonic/internal/protocol"
	"go.uber.org/atomic"
)

// Connection wraps the WebSocket to the push-event endpoint.
type Connection struct {
	addr  string
	token string

	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	connected atomic.Bool

	onEvent      func(*protocol.Event)
	onDisconnect func(error)
}

// NewConnection creates an unconnected gateway connection.
func NewConnection(addr, token string) *Connection {
	return &Connection{
		addr:  addr,
		token: token,
		send:  make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

// SetHandlers installs the event and disconnect callbacks. Must be called
// before Connect.
func (c *Connection) SetHandlers(onEvent func(*protocol.Event), onDisconnect func(error)) {
	c.onEvent = onEvent
	c.onDisconnect = onDisconnect
}

// Connect dials the gateway and starts the read/write pumps.
func (c *Connection) Connect() error {
	if c.connected.Load() {
		return fmt.Errorf("already connected")
	}

	u, err := url.Parse(c.addr)
	if err != nil {
		return fmt.Errorf("invalid gateway address: %w", err)
	}
	if u.Scheme == "http" {
		u.Scheme = "ws"
	} else if u.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path = "/events"

	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", c.token)
	}

	conn, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}

	c.conn = conn
	c.done = make(chan struct{})
	c.connected.Store(true)

	go c.readPump()
	go c.writePump()

	return nil
}

// Disconnect closes the gateway connection.
func (c *Connection) Disconnect() {
	if !c.connected.Swap(false) {
		return
	}
	close(c.done)
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// IsConnected reports whether the connection is up.
func (c *Connection) IsConnected() bool {
	return c.connected.Load()
}

// Subscribe sends a subscribe frame for the given scopes.
func (c *Connection) Subscribe(scopes ...protocol.Scope) error {
	return c.sendCommand(protocol.NewSubscribe(scopes...))
}

// Unsubscribe sends an unsubscribe frame for the given scopes.
func (c *Connection) Unsubscribe(scopes ...protocol.Scope) error {
	return c.sendCommand(protocol.NewUnsubscribe(scopes...))
}

func (c *Connection) sendCommand(cmd *protocol.Command) error {
	if !c.connected.Load() {
		return fmt.Errorf("not connected")
	}
	data, err := cmd.Encode()
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump reads frames until the connection drops. Frames that fail to
// parse are logged and skipped; a frame this client does not understand must
// never take the connection down.
func (c *Connection) readPump() {
	var closeErr error
	defer func() {
		c.Disconnect()
		if c.onDisconnect != nil {
			c.onDisconnect(closeErr)
		}
	}()

	c.conn.SetReadLimit(512 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				closeErr = err
			}
			return
		}

		ev, err := protocol.ParseEvent(data)
		if err != nil {
			log.Printf("Dropping gateway frame: %v", err)
			continue
		}
		if c.onEvent != nil {
			c.onEvent(ev)
		}
	}
}

// writePump writes queued frames and pings on an interval.
func (c *Connection) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Failed to write gateway frame: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
