// internal/protocol/connection_test.go
package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/actuate/api/schemas"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBrowser is a scripted DevTools endpoint. Each incoming command goes
// through handle; the returned message (if any) is written back. Events are
// injected with push.
type fakeBrowser struct {
	t      *testing.T
	server *httptest.Server

	mu     sync.Mutex
	conn   *websocket.Conn
	handle func(msg *cdproto.Message) *cdproto.Message

	ready chan struct{}
}

func newFakeBrowser(t *testing.T, handle func(msg *cdproto.Message) *cdproto.Message) *fakeBrowser {
	t.Helper()
	fb := &fakeBrowser{t: t, handle: handle, ready: make(chan struct{})}

	upgrader := websocket.Upgrader{}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		fb.mu.Lock()
		fb.conn = conn
		fb.mu.Unlock()
		close(fb.ready)

		for {
			_, buf, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg cdproto.Message
			require.NoError(t, easyjson.Unmarshal(buf, &msg))
			if reply := fb.handle(&msg); reply != nil {
				fb.write(reply)
			}
		}
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBrowser) wsURL() string {
	return "ws" + strings.TrimPrefix(fb.server.URL, "http")
}

func (fb *fakeBrowser) write(msg *cdproto.Message) {
	buf, err := easyjson.Marshal(msg)
	require.NoError(fb.t, err)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.NoError(fb.t, fb.conn.WriteMessage(websocket.TextMessage, buf))
}

// push injects an event once the client has connected.
func (fb *fakeBrowser) push(method string, sessionID string, params string) {
	<-fb.ready
	fb.write(&cdproto.Message{
		SessionID: target.SessionID(sessionID),
		Method:    cdproto.MethodType(method),
		Params:    easyjson.RawMessage(params),
	})
}

func dialFake(t *testing.T, fb *fakeBrowser) *Connection {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, fb.wsURL(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSendRoundTrip(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		assert.Equal(t, "Browser.getVersion", string(msg.Method))
		return &cdproto.Message{
			ID:     msg.ID,
			Result: easyjson.RawMessage(`{"product":"Chrome/140.0"}`),
		}
	})
	conn := dialFake(t, fb)

	raw, err := conn.Root().Send(context.Background(), "Browser.getVersion", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"product":"Chrome/140.0"}`, string(raw))
}

func TestSendParamsAreForwarded(t *testing.T) {
	got := make(chan string, 1)
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		got <- string(msg.Params)
		return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{}`)}
	})
	conn := dialFake(t, fb)

	_, err := conn.Root().Send(context.Background(), "Target.activateTarget",
		map[string]string{"targetId": "T1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"targetId":"T1"}`, <-got)
}

func TestProtocolErrorIsTyped(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		return &cdproto.Message{
			ID:    msg.ID,
			Error: &cdproto.Error{Code: -32000, Message: "No node with given id found"},
		}
	})
	conn := dialFake(t, fb)

	_, err := conn.Root().Send(context.Background(), "DOM.describeNode", nil)
	require.Error(t, err)

	var perr *schemas.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(-32000), perr.Code)
	assert.Contains(t, perr.Message, "No node")
}

func TestAttachRoutesBySession(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		switch string(msg.Method) {
		case "Target.attachToTarget":
			return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{"sessionId":"S1"}`)}
		case "Page.enable":
			// Must arrive scoped to the child session.
			assert.Equal(t, "S1", string(msg.SessionID))
			return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{}`)}
		}
		return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{}`)}
	})
	conn := dialFake(t, fb)

	sess, err := conn.AttachToTarget(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "S1", string(sess.ID()))

	_, err = sess.Send(context.Background(), "Page.enable", nil)
	require.NoError(t, err)
}

func TestSubscribeDeliversTypedEvents(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{"sessionId":"S1"}`)}
	})
	conn := dialFake(t, fb)

	sess, err := conn.AttachToTarget(context.Background(), "T1")
	require.NoError(t, err)

	events, cancel := sess.Subscribe("Page.lifecycleEvent")
	defer cancel()

	fb.push("Page.lifecycleEvent", "S1",
		`{"frameId":"F1","loaderId":"L1","name":"load","timestamp":1}`)
	// An event for a method we did not subscribe to must not arrive.
	fb.push("Page.frameResized", "S1", `{}`)

	select {
	case ev := <-events:
		require.NotNil(t, ev)
		assert.Equal(t, "Page.lifecycleEvent", ev.Method)
		lifecycle, ok := ev.Data.(*cdppage.EventLifecycleEvent)
		require.True(t, ok, "expected decoded lifecycle event, got %T", ev.Data)
		assert.Equal(t, "load", lifecycle.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for lifecycle event")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %q", ev.Method)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseFailsPendingCommands(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		return nil // never answer
	})
	conn := dialFake(t, fb)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Root().Send(context.Background(), "Browser.getVersion", nil)
		done <- err
	}()

	// Give the command time to land in the pending table.
	time.Sleep(50 * time.Millisecond)
	_ = conn.Close()

	select {
	case err := <-done:
		var closed *schemas.TargetClosedError
		assert.ErrorAs(t, err, &closed)
	case <-time.After(5 * time.Second):
		t.Fatal("pending command was not failed by Close")
	}
}

func TestExecuteOnClosedSession(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{"sessionId":"S1"}`)}
	})
	conn := dialFake(t, fb)

	sess, err := conn.AttachToTarget(context.Background(), "T1")
	require.NoError(t, err)

	sess.markClosed()
	_, err = sess.Send(context.Background(), "Page.enable", nil)
	var closed *schemas.TargetClosedError
	assert.ErrorAs(t, err, &closed)
	assert.True(t, sess.Closed())
}

func TestSubscribeCancelIsIdempotent(t *testing.T) {
	fb := newFakeBrowser(t, func(msg *cdproto.Message) *cdproto.Message {
		return &cdproto.Message{ID: msg.ID, Result: easyjson.RawMessage(`{}`)}
	})
	conn := dialFake(t, fb)

	_, cancel := conn.Root().Subscribe("Target.targetCreated")
	cancel()
	cancel()
}
