// internal/protocol/session.go
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	jsoniter "github.com/json-iterator/go"
	"github.com/mailru/easyjson"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/api/schemas"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// eventBufferSize bounds each subscriber's queue. A subscriber that stops
// draining loses events rather than stalling the read loop.
const eventBufferSize = 64

// Event is one protocol notification delivered to a subscriber.
type Event struct {
	// Method is the protocol event name, e.g. "Page.lifecycleEvent".
	Method string
	// Data is the decoded cdproto event struct; nil when decoding failed.
	Data any
	// Params is the raw payload for callers that decode themselves.
	Params json.RawMessage
}

type subscription struct {
	methods map[string]struct{} // empty set means all events
	ch      chan *Event
}

// Session is one flattened protocol session: commands and events scoped to a
// single target (or to the browser itself, for the root session). It
// implements cdp.Executor, so cdproto command wrappers run against it via
// cdp.WithExecutor.
type Session struct {
	conn     *Connection
	id       target.SessionID
	targetID target.ID

	mu     sync.Mutex
	closed bool
	subs   map[*subscription]struct{}
}

var _ cdp.Executor = (*Session)(nil)

func newSession(c *Connection, sid target.SessionID) *Session {
	return &Session{
		conn: c,
		id:   sid,
		subs: make(map[*subscription]struct{}),
	}
}

// Conn returns the connection this session is multiplexed over.
func (s *Session) Conn() *Connection {
	return s.conn
}

// ID returns the protocol session ID; empty for the root session.
func (s *Session) ID() target.SessionID {
	return s.id
}

// TargetID returns the target this session is attached to.
func (s *Session) TargetID() target.ID {
	return s.targetID
}

// Context wraps ctx so cdproto command wrappers execute on this session.
func (s *Session) Context(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, s)
}

// Execute sends one protocol command and decodes its result. This is the
// cdp.Executor contract used by every generated cdproto wrapper.
func (s *Session) Execute(ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	msg := &cdproto.Message{
		ID:        s.conn.nextID(),
		SessionID: s.id,
		Method:    cdproto.MethodType(method),
	}
	if params != nil {
		buf, err := easyjson.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode params for %s: %w", method, err)
		}
		msg.Params = buf
	}

	reply, err := s.conn.send(ctx, msg)
	if err != nil {
		return err
	}
	if reply.Error != nil {
		return &schemas.ProtocolError{
			Method:  method,
			Code:    reply.Error.Code,
			Message: reply.Error.Message,
		}
	}
	if res != nil && len(reply.Result) > 0 {
		if err := easyjson.Unmarshal(reply.Result, res); err != nil {
			return fmt.Errorf("failed to decode result of %s: %w", method, err)
		}
	}
	return nil
}

// Send is the raw escape hatch: any method name, any params shape, raw JSON
// back. Use it for protocol surface cdproto has no wrapper for.
func (s *Session) Send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	msg := &cdproto.Message{
		ID:        s.conn.nextID(),
		SessionID: s.id,
		Method:    cdproto.MethodType(method),
	}
	if params != nil {
		buf, err := jsonAPI.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode params for %s: %w", method, err)
		}
		msg.Params = buf
	}

	reply, err := s.conn.send(ctx, msg)
	if err != nil {
		return nil, err
	}
	if reply.Error != nil {
		return nil, &schemas.ProtocolError{
			Method:  method,
			Code:    reply.Error.Code,
			Message: reply.Error.Message,
		}
	}
	return json.RawMessage(reply.Result), nil
}

// Subscribe registers for the named protocol events; with no methods it
// receives everything. The returned cancel func must be called to release the
// subscription. Events overflowing the subscriber's buffer are dropped.
func (s *Session) Subscribe(methods ...string) (<-chan *Event, func()) {
	sub := &subscription{
		methods: make(map[string]struct{}, len(methods)),
		ch:      make(chan *Event, eventBufferSize),
	}
	for _, m := range methods {
		sub.methods[m] = struct{}{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subs[sub]; ok {
				delete(s.subs, sub)
				close(sub.ch)
			}
			s.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Detach closes the session on the browser side and locally.
func (s *Session) Detach(ctx context.Context) error {
	if s.id == "" {
		return fmt.Errorf("cannot detach the root session")
	}
	err := target.DetachFromTarget().
		WithSessionID(s.id).
		Do(cdp.WithExecutor(ctx, s.conn.root))
	s.conn.dropSession(s.id)
	return err
}

// Closed reports whether the session has been detached or the connection lost.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &schemas.TargetClosedError{Reason: "session detached"}
	}
	return nil
}

// dispatch fans one event message out to matching subscribers. Runs on the
// connection's read loop, so it must never block.
func (s *Session) dispatch(msg *cdproto.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.subs) == 0 {
		return
	}

	method := string(msg.Method)
	var decoded any
	decodedOnce := false

	for sub := range s.subs {
		if len(sub.methods) > 0 {
			if _, ok := sub.methods[method]; !ok {
				continue
			}
		}
		if !decodedOnce {
			decodedOnce = true
			ev, err := cdproto.UnmarshalMessage(msg)
			if err != nil {
				s.conn.logger.Debug("Failed to decode event payload.",
					zap.String("method", method), zap.Error(err))
			} else {
				decoded = ev
			}
		}
		select {
		case sub.ch <- &Event{Method: method, Data: decoded, Params: json.RawMessage(msg.Params)}:
		default:
			s.conn.logger.Warn("Subscriber queue full; dropping event.",
				zap.String("method", method),
				zap.String("session_id", string(s.id)))
		}
	}
}

// markClosed flips the session to closed and ends all subscriptions. Called
// with the connection's session table already updated.
func (s *Session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
		delete(s.subs, sub)
	}
}
