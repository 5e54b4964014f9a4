// Package server is the websocket edge of the relay: it upgrades connections,
// runs the join handshake, and shuttles frames between the socket and the
// room controller.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"babel-relay/contract"
	"babel-relay/domain/frame"
	"babel-relay/errors"
)

const (
	writeWait = 10 * time.Second
	// Voice frames carry base64 audio, so the read limit is generous.
	maxMessageSize = 1 << 20
)

var _ contract.FrameSink = (*Conn)(nil)

// Conn wraps one websocket connection. All writes go through a buffered send
// channel drained by writePump, so Deliver never blocks a room's fan-out: a
// slow or dead client gets ErrSendBufferFull / ErrConnClosed instead of
// holding everyone up.
type Conn struct {
	ws         *websocket.Conn
	send       chan frame.Frame
	done       chan struct{}
	closeOnce  sync.Once
	pingPeriod time.Duration
	log        *slog.Logger
}

func newConn(ws *websocket.Conn, sendBuffer int, pingPeriod time.Duration, log *slog.Logger) *Conn {
	return &Conn{
		ws:         ws,
		send:       make(chan frame.Frame, sendBuffer),
		done:       make(chan struct{}),
		pingPeriod: pingPeriod,
		log:        log,
	}
}

func (c *Conn) Deliver(_ context.Context, f frame.Frame) error {
	select {
	case <-c.done:
		return errors.ErrConnClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

// writePump is the only goroutine writing to the socket. It drains the send
// channel, keeps the connection alive with pings, and closes the socket on
// the way out so the read loop unblocks.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down. Idempotent; safe from any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// closeWithReason sends a coded close frame before tearing down, so the
// client can distinguish "fix your join and retry" rejections.
func (c *Conn) closeWithReason(code, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code+": "+reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
	c.Close()
}
