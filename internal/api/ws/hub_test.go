package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Write(sessionID string, data []byte) error {
	return m.Called(sessionID, data).Error(0)
}

func (m *mockSessions) Resize(sessionID string, rows, cols uint16) error {
	return m.Called(sessionID, rows, cols).Error(0)
}

func (m *mockSessions) Close(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func TestHubFiltersBySession(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), nil)
	all := hub.subscribe("")
	one := hub.subscribe("sess_a")

	hub.Emit(terminal.Event{Type: terminal.EventOutput, SessionID: "sess_b", Data: "x"})
	hub.Emit(terminal.Event{Type: terminal.EventOutput, SessionID: "sess_a", Data: "y"})

	assert.Len(t, all.send, 2)
	require.Len(t, one.send, 1)

	var e terminal.Event
	require.NoError(t, sonic.Unmarshal(<-one.send, &e))
	assert.Equal(t, "sess_a", e.SessionID)
	assert.Equal(t, "y", e.Data)
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t), nil)
	hub.bufferSize = 1
	slow := hub.subscribe("")

	hub.Emit(terminal.Event{Type: terminal.EventOutput, SessionID: "sess_a", Data: "1"})
	assert.Equal(t, 1, hub.Len())

	hub.Emit(terminal.Event{Type: terminal.EventOutput, SessionID: "sess_a", Data: "2"})
	assert.Equal(t, 0, hub.Len())

	// Buffered frame is still readable, then the queue is closed
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)

	assert.False(t, hub.sendTo(slow, []byte("late")))
	assert.False(t, hub.unsubscribe(slow))
}

func TestHubClose(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.subscribe("")
	hub.subscribe("sess_a")

	hub.Close()
	assert.Equal(t, 0, hub.Len())
	assert.NotPanics(t, func() {
		hub.Emit(terminal.Event{Type: terminal.EventExit, SessionID: "sess_a"})
	})
}

func startServer(t *testing.T, sessions SessionService) (*Hub, string) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zaptest.NewLogger(t), nil)
	handler := NewHandler(hub, sessions, zaptest.NewLogger(t), nil)

	router := gin.New()
	router.GET("/stream", handler.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(data, v))
}

func TestStreamDeliversEvents(t *testing.T) {
	hub, url := startServer(t, &mockSessions{})
	conn := dial(t, url+"?session=sess_a")

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.Emit(terminal.Event{Type: terminal.EventOutput, SessionID: "sess_b", Data: "ignored"})
	hub.Emit(terminal.Event{Type: terminal.EventOutput, SessionID: "sess_a", Data: "hello"})

	var e terminal.Event
	readJSON(t, conn, &e)
	assert.Equal(t, terminal.EventOutput, e.Type)
	assert.Equal(t, "hello", e.Data)
}

func TestInboundMessages(t *testing.T) {
	sessions := &mockSessions{}
	sessions.On("Write", "sess_a", []byte("ls\n")).Return(nil).Once()
	sessions.On("Close", "sess_x").Return(&terminal.Error{Kind: terminal.ErrSessionNotFound, SessionID: "sess_x"}).Once()
	defer sessions.AssertExpectations(t)

	_, url := startServer(t, sessions)
	conn := dial(t, url)

	tests := []struct {
		name string
		msg  Message
		want Reply
	}{
		{
			name: "input",
			msg:  Message{Type: "input", ID: "sess_a", Data: "ls\n"},
			want: Reply{Type: "ack", ID: "sess_a", Op: "input"},
		},
		{
			name: "close unknown",
			msg:  Message{Type: "close", ID: "sess_x"},
			want: Reply{Type: "error", ID: "sess_x", Op: "close", Error: "session not found: sess_x", Kind: "session_not_found"},
		},
		{
			name: "ping",
			msg:  Message{Type: "ping"},
			want: Reply{Type: "pong"},
		},
		{
			name: "unknown",
			msg:  Message{Type: "launch"},
			want: Reply{Type: "error", Op: "launch", Error: "unknown message type", Kind: "invalid_argument"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := sonic.Marshal(tt.msg)
			require.NoError(t, err)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))

			var got Reply
			readJSON(t, conn, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisconnectUnsubscribes(t *testing.T) {
	hub, url := startServer(t, &mockSessions{})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second)))

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}
