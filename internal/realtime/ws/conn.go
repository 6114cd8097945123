package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	ctrlTimeout    = 5 * time.Second

	// sendQueueSize bounds the per-connection outbound queue. Fan-out never
	// blocks on a slow socket; overflow drops the frame for that connection.
	sendQueueSize = 256
)

// Conn wraps one upgraded socket with a buffered outbound queue drained by a
// single writer goroutine, so room fan-out stays non-blocking and all writes
// (frames and pings) go through one place.
type Conn struct {
	id   string
	sock *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// newConn allocates the connection wrapper with a fresh opaque ID.
func newConn(sock *websocket.Conn) *Conn {
	return &Conn{
		id:     newConnID(),
		sock:   sock,
		send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// ID returns the opaque connection identifier assigned at upgrade time.
func (c *Conn) ID() string { return c.id }

// Enqueue hands a frame to the writer queue. It reports false when the
// queue is full or the connection is closing; the caller drops the frame.
func (c *Conn) Enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close makes Enqueue refuse further frames and closes the socket. Safe to
// call multiple times.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.sock.Close()
	})
}

// writePump drains the send queue and keeps the connection alive with
// periodic pings. It exits when the connection closes or a write fails.
func (c *Conn) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				// Close the socket to unblock the reader; the read loop owns
				// the detach path.
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout)); err != nil {
				c.Close()
				return
			}
		}
	}
}

// newConnID returns an opaque ID like "conn_20260901T120000_ab12cd34ef56".
func newConnID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return "conn_" + time.Now().UTC().Format("20060102T150405") + "_" + hex.EncodeToString(b[:])
}
