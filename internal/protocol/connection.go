// internal/protocol/connection.go
// Package protocol implements the DevTools wire session: one websocket
// connection to the browser, multiplexing id-correlated commands and
// asynchronous events across flattened target sessions.
package protocol

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/api/schemas"
)

const (
	// Protocol payloads (DOM snapshots, screenshots) can be large.
	wsReadBufferSize  = 1 << 20
	wsWriteBufferSize = 1 << 20

	wsHandshakeTimeout = 30 * time.Second
	wsCloseGracePeriod = 10 * time.Second
)

// Connection is the process-wide transport to one browser. All sessions share
// it; commands from any session are serialized onto the single write loop and
// correlated back by message ID.
type Connection struct {
	logger *zap.Logger
	wsURL  string
	conn   *websocket.Conn

	sendCh chan *cdproto.Message
	done   chan struct{}

	closeOnce sync.Once

	// msgID is shared across all sessions so a response routes by ID alone.
	msgID int64

	pendingMu sync.Mutex
	pending   map[int64]chan *cdproto.Message

	sessionsMu sync.RWMutex
	sessions   map[target.SessionID]*Session

	// root handles messages without a session ID (the browser target).
	root *Session
}

// Dial connects to the browser's DevTools websocket endpoint.
func Dial(ctx context.Context, wsURL string, logger *zap.Logger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
		ReadBufferSize:   wsReadBufferSize,
		WriteBufferSize:  wsWriteBufferSize,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial DevTools endpoint %q: %w", wsURL, err)
	}

	c := &Connection{
		logger:   logger.Named("protocol"),
		wsURL:    wsURL,
		conn:     conn,
		sendCh:   make(chan *cdproto.Message, 32), // keep Execute from blocking on bursts
		done:     make(chan struct{}),
		pending:  make(map[int64]chan *cdproto.Message),
		sessions: make(map[target.SessionID]*Session),
	}
	c.root = newSession(c, "")
	c.sessions[""] = c.root

	go c.readLoop()
	go c.writeLoop()

	return c, nil
}

// Root returns the browser-level session (commands without a session ID).
func (c *Connection) Root() *Session {
	return c.root
}

// AttachToTarget opens a flattened session to the given target and registers
// it for event routing.
func (c *Connection) AttachToTarget(ctx context.Context, tid target.ID) (*Session, error) {
	sid, err := target.AttachToTarget(tid).
		WithFlatten(true).
		Do(cdp.WithExecutor(ctx, c.root))
	if err != nil {
		return nil, fmt.Errorf("failed to attach to target %q: %w", tid, err)
	}

	s := newSession(c, sid)
	s.targetID = tid

	c.sessionsMu.Lock()
	c.sessions[sid] = s
	c.sessionsMu.Unlock()

	return s, nil
}

// Close tears down the websocket and fails every in-flight command.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsCloseGracePeriod))

		close(c.done)
		_ = c.conn.Close()
		c.failAll()

		c.sessionsMu.Lock()
		for id, s := range c.sessions {
			s.markClosed()
			delete(c.sessions, id)
		}
		c.sessionsMu.Unlock()
	})
	return err
}

// Done is closed once the connection has shut down, cleanly or not.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) nextID() int64 {
	return atomic.AddInt64(&c.msgID, 1)
}

// send enqueues a command and blocks until its response, ctx cancellation, or
// connection shutdown.
func (c *Connection) send(ctx context.Context, msg *cdproto.Message) (*cdproto.Message, error) {
	ch := make(chan *cdproto.Message, 1)
	c.pendingMu.Lock()
	c.pending[msg.ID] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, msg.ID)
		c.pendingMu.Unlock()
	}()

	select {
	case c.sendCh <- msg:
	case <-c.done:
		return nil, &schemas.TargetClosedError{Reason: "connection closed"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case reply := <-ch:
		if reply == nil {
			return nil, &schemas.TargetClosedError{Reason: "connection closed"}
		}
		return reply, nil
	case <-c.done:
		return nil, &schemas.TargetClosedError{Reason: "connection closed"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Connection) failAll() {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		// A nil reply signals the waiter that the transport is gone.
		select {
		case ch <- nil:
		default:
		}
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}

func (c *Connection) readLoop() {
	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			c.handleIOError(err)
			return
		}

		var msg cdproto.Message
		if err := easyjson.Unmarshal(buf, &msg); err != nil {
			c.logger.Error("Failed to decode protocol message.", zap.Error(err))
			continue
		}

		switch {
		case msg.ID != 0:
			c.routeResponse(&msg)
		case msg.Method != "":
			c.routeEvent(&msg)
		default:
			c.logger.Warn("Protocol message without ID or method.", zap.ByteString("payload", buf))
		}
	}
}

func (c *Connection) routeResponse(msg *cdproto.Message) {
	c.pendingMu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		// Response for a caller that gave up (ctx cancelled). Harmless.
		c.logger.Debug("Dropping response with no waiter.", zap.Int64("id", msg.ID))
		return
	}
	ch <- msg
}

func (c *Connection) routeEvent(msg *cdproto.Message) {
	// Detach events arrive on the root session but affect a child.
	if msg.Method == cdproto.MethodType("Target.detachedFromTarget") {
		if ev, err := cdproto.UnmarshalMessage(msg); err == nil {
			if detached, ok := ev.(*target.EventDetachedFromTarget); ok {
				c.dropSession(detached.SessionID)
			}
		}
	}

	c.sessionsMu.RLock()
	s := c.sessions[msg.SessionID]
	c.sessionsMu.RUnlock()
	if s == nil {
		c.logger.Debug("Event for unknown session.",
			zap.String("method", string(msg.Method)),
			zap.String("session_id", string(msg.SessionID)))
		return
	}
	s.dispatch(msg)
}

func (c *Connection) dropSession(sid target.SessionID) {
	c.sessionsMu.Lock()
	if s, ok := c.sessions[sid]; ok {
		s.markClosed()
		delete(c.sessions, sid)
	}
	c.sessionsMu.Unlock()
}

func (c *Connection) writeLoop() {
	for {
		select {
		case msg := <-c.sendCh:
			buf, err := easyjson.Marshal(msg)
			if err != nil {
				c.logger.Error("Failed to encode protocol message.", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				c.handleIOError(err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Connection) handleIOError(err error) {
	select {
	case <-c.done:
		// Already shutting down; the read/write loops die quietly.
		return
	default:
	}

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Warn("DevTools connection closed unexpectedly.", zap.Error(err))
	}
	_ = c.Close()
}
