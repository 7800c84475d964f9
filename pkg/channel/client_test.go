package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/models"
)

type fakeServer struct {
	*httptest.Server
	messages chan []byte
	accepted atomic.Int32
	// dropFirst closes the first connection right after the upgrade.
	dropFirst bool
}

func newFakeServer(t *testing.T, dropFirst bool) *fakeServer {
	t.Helper()
	fs := &fakeServer{messages: make(chan []byte, 16), dropFirst: dropFirst}
	upgrader := websocket.Upgrader{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := fs.accepted.Add(1)
		if fs.dropFirst && n == 1 {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fs.messages <- data
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) endpoint() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

func waitOpen(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, c.WaitOpen(ctx))
}

func TestSendDeliversOneMessagePerEvent(t *testing.T) {
	fs := newFakeServer(t, false)
	c := New(Options{Endpoint: fs.endpoint()}, nil)
	defer c.Close()

	c.Connect()
	waitOpen(t, c)
	assert.Equal(t, Open, c.State())

	require.True(t, c.Send(models.NewDrag("#box", "10px", "20px", "file:///tmp/index.html")))

	select {
	case data := <-fs.messages:
		ev, err := models.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, models.KindDrag, ev.Kind)
		assert.Equal(t, "10px", ev.Position.Left)
		assert.Equal(t, "file:///tmp/index.html", ev.TargetFile)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not receive the event")
	}
}

func TestSendWhileDisconnectedDrops(t *testing.T) {
	c := New(Options{Endpoint: "ws://127.0.0.1:1"}, nil)
	defer c.Close()

	assert.Equal(t, Disconnected, c.State())
	assert.False(t, c.Send(models.NewInlineStyle("#box", "color: red;", "")))
}

func TestReconnectsAfterServerClose(t *testing.T) {
	fs := newFakeServer(t, true)
	var transitions []State
	states := make(chan State, 16)
	c := New(Options{
		Endpoint:       fs.endpoint(),
		ReconnectDelay: 20 * time.Millisecond,
		OnStateChange:  func(s State) { states <- s },
	}, nil)
	defer c.Close()

	c.Connect()

	timeout := time.After(3 * time.Second)
	opens := 0
	for opens < 2 {
		select {
		case s := <-states:
			transitions = append(transitions, s)
			if s == Open {
				opens++
			}
		case <-timeout:
			t.Fatalf("client did not reconnect; transitions %v", transitions)
		}
	}

	assert.Equal(t, []State{Connecting, Open, Disconnected, Connecting, Open}, transitions)
	assert.Equal(t, int32(2), fs.accepted.Load())
	assert.True(t, c.Send(models.NewInlineStyle("#box", "color: red;", "")))
}

func TestDialFailureRetriesWithSingleTimer(t *testing.T) {
	var dials atomic.Int32
	dialer := &websocket.Dialer{HandshakeTimeout: 100 * time.Millisecond}
	c := New(Options{
		Endpoint:       "ws://127.0.0.1:1",
		ReconnectDelay: 30 * time.Millisecond,
		Dialer:         dialer,
		OnStateChange: func(s State) {
			if s == Connecting {
				dials.Add(1)
			}
		},
	}, nil)
	defer c.Close()

	c.Connect()
	// Extra calls while a dial or timer is pending are ignored.
	c.Connect()
	c.Connect()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := c.WaitOpen(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConnectionUnavailable, errors.GetCode(err))

	n := dials.Load()
	assert.GreaterOrEqual(t, n, int32(2))
	// One attempt per delay at most, plus the first.
	assert.LessOrEqual(t, n, int32(200/30+2))
}

func TestCloseStopsReconnecting(t *testing.T) {
	fs := newFakeServer(t, false)
	c := New(Options{Endpoint: fs.endpoint(), ReconnectDelay: 10 * time.Millisecond}, nil)

	c.Connect()
	waitOpen(t, c)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, Disconnected, c.State())
	assert.False(t, c.Send(models.NewInlineStyle("#box", "color: red;", "")))

	err := c.WaitOpen(context.Background())
	assert.Equal(t, errors.ErrCodeConnectionUnavailable, errors.GetCode(err))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fs.accepted.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "open", Open.String())
}
