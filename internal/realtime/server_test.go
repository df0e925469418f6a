package realtime

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraft-ai/codecraft/backend/internal/artifact"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/services"
)

type socketHarness struct {
	env    *testEnv
	server *Server
	queue  *services.SyncQueue
	gen    *fakeGenerator
	url    string
}

func newSocketHarness(t *testing.T) *socketHarness {
	t.Helper()
	env := newTestEnv(t)
	gen := &fakeGenerator{}
	queue := services.NewSyncQueue()
	bridge := NewBridge(queue, gen, env.chat, env.hub, env.metrics)
	queue.SetProcessor(bridge.Process)

	channel := NewChannel(env.hub, env.chat, bridge, "@ai", env.metrics)
	auth := NewAuthenticator(&stubRevocations{}, env.projects)
	server := NewServer(env.hub, auth, channel, Options{HandshakeTimeout: 2 * time.Second, SendBuffer: 16}, env.metrics)

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		server.ServeConn(r.Context(), conn, r.URL.Query().Get("projectId"))
	}))
	t.Cleanup(srv.Close)

	return &socketHarness{
		env:    env,
		server: server,
		queue:  queue,
		gen:    gen,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (h *socketHarness) dial(t *testing.T, projectID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url+"/ws?projectId="+projectID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (h *socketHarness) join(t *testing.T, u *models.User) *websocket.Conn {
	t.Helper()
	conn := h.dial(t, strconv.FormatUint(uint64(h.env.project.ID), 10))
	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameAuth, Token: h.env.token(t, u)}))
	ev := readEvent(t, conn)
	require.Equal(t, FrameJoined, ev.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func readCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	return closeErr.Code
}

func TestServer_RejectsBadHandshakes(t *testing.T) {
	h := newSocketHarness(t)
	pid := strconv.FormatUint(uint64(h.env.project.ID), 10)

	t.Run("auth frame without token", func(t *testing.T) {
		conn := h.dial(t, pid)
		require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameAuth}))
		assert.Equal(t, CloseAuthRequired, readCloseCode(t, conn))
	})

	t.Run("first frame is not auth", func(t *testing.T) {
		conn := h.dial(t, pid)
		require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameProjectMessage, Text: "hi", Token: h.env.token(t, h.env.alice)}))
		assert.Equal(t, CloseAuthRequired, readCloseCode(t, conn))
	})

	t.Run("bad token", func(t *testing.T) {
		conn := h.dial(t, pid)
		require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameAuth, Token: "bogus"}))
		assert.Equal(t, CloseAuthFailed, readCloseCode(t, conn))
	})

	t.Run("malformed project", func(t *testing.T) {
		conn := h.dial(t, "abc")
		require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameAuth, Token: h.env.token(t, h.env.alice)}))
		assert.Equal(t, CloseInvalidProject, readCloseCode(t, conn))
	})

	t.Run("outsider", func(t *testing.T) {
		conn := h.dial(t, pid)
		require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameAuth, Token: h.env.token(t, h.env.carol)}))
		assert.Equal(t, CloseForbidden, readCloseCode(t, conn))
	})

	assert.Equal(t, 0, h.env.hub.RoomSize(h.env.project.ID), "rejected connections never join")
}

func TestServer_TriggerEndToEnd(t *testing.T) {
	h := newSocketHarness(t)
	reply, err := artifact.Encode(&artifact.Artifact{
		Summary:  "A counter",
		FileTree: artifact.FileTree{"index.js": artifact.File{Contents: "let n = 0"}},
	})
	require.NoError(t, err)
	h.gen.reply = reply

	alice := h.join(t, h.env.alice)
	bob := h.join(t, h.env.bob)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: FrameProjectMessage, Text: "@ai build a counter"}))

	first := readEvent(t, bob)
	require.Equal(t, FrameProjectMessage, first.Type)
	assert.Equal(t, "alice@x.com", first.Message.SenderEmail)
	assert.Equal(t, "@ai build a counter", first.Message.Text)

	second := readEvent(t, bob)
	require.Equal(t, FrameProjectMessage, second.Type)
	assert.Equal(t, models.AgentSenderEmail, second.Message.SenderEmail)

	decoded, ok := artifact.Decode(second.Message.Text)
	require.True(t, ok)
	files := artifact.Files(decoded.FileTree)
	require.Len(t, files, 1)
	assert.Equal(t, "index.js", files[0].Path)

	toAlice := readEvent(t, alice)
	assert.Equal(t, models.AgentSenderEmail, toAlice.Message.SenderEmail, "alice only gets the reply, not her own message")

	require.NoError(t, h.queue.Close())
	assert.Len(t, h.env.history(t), 2)
	assert.Equal(t, []string{"build a counter"}, h.gen.seen())
}

func TestServer_DisconnectLeavesRoom(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.join(t, h.env.alice)
	h.join(t, h.env.bob)
	require.Equal(t, 2, h.env.hub.RoomSize(h.env.project.ID))

	alice.Close()
	require.Eventually(t, func() bool {
		return h.env.hub.RoomSize(h.env.project.ID) == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Len(t, h.env.history(t), 0, "disconnect does not touch history")
}

func TestServer_EmptyMessageIsRejected(t *testing.T) {
	h := newSocketHarness(t)
	alice := h.join(t, h.env.alice)

	require.NoError(t, alice.WriteJSON(ClientFrame{Type: FrameProjectMessage, Text: "   "}))
	ev := readEvent(t, alice)
	assert.Equal(t, FrameError, ev.Type)
	assert.Equal(t, CodeEmptyMessage, ev.Code)
}
