package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jortega/karaokejam/internal/application/config"
	"github.com/jortega/karaokejam/internal/domain/events"
	"github.com/jortega/karaokejam/internal/domain/models"
	"github.com/jortega/karaokejam/internal/infra/adapters/memory"
	"github.com/jortega/karaokejam/internal/infra/ports/http/middleware"
	"github.com/jortega/karaokejam/internal/usecase"
)

type queueUpdateMsg struct {
	Type    string              `json:"type"`
	Payload []models.QueueEntry `json:"payload"`
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, usecase.RoomUsecase) {
	t.Helper()

	roomUsecase := usecase.NewRoomUsecase(memory.NewRoomRegistry())

	e := echo.New()
	e.Use(middleware.IdentityMiddleware(cfg.JWTSecret))
	e.GET("/ws", NewWebSocketHandler(cfg, roomUsecase).Handle)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return srv, roomUsecase
}

func testConfig() *config.Config {
	return &config.Config{Debug: true, Port: "3000"}
}

func wsURL(srv *httptest.Server, query string) string {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	return url
}

func dial(t *testing.T, srv *httptest.Server, query string, header http.Header) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, query), header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readQueueUpdate(t *testing.T, conn *websocket.Conn) []models.QueueEntry {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg queueUpdateMsg
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, events.TypeQueueUpdate, msg.Type)

	return msg.Payload
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}

	require.NoError(t, conn.WriteJSON(events.Message{Type: msgType, Payload: raw}))
}

func expectClose(t *testing.T, srv *httptest.Server, query string, header http.Header, wantCode int) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, query), header)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, wantCode, closeErr.Code)
}

func TestAttachRejectsMissingRoom(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	expectClose(t, srv, "", nil, CloseMissingRoom)
}

func TestAttachRejectsUnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	expectClose(t, srv, "room=ZZZZ", nil, CloseRoomNotFound)
}

func TestAttachAcceptsLowercaseAndLegacyParam(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, "sala="+strings.ToLower(roomID), nil)
	assert.Empty(t, readQueueUpdate(t, conn))
}

func TestAddSongThenPlayNextScenario(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, "room="+roomID, nil)

	// Attach-time snapshot is an empty queue.
	assert.Empty(t, readQueueUpdate(t, conn))

	send(t, conn, events.TypeAddSong, events.AddSongEvent{Song: "X - Y.mp4", Name: "Ana"})

	queue := readQueueUpdate(t, conn)
	require.Len(t, queue, 1)
	assert.Equal(t, "X - Y.mp4", queue[0].Song)
	assert.Equal(t, "Ana", queue[0].Name)

	send(t, conn, events.TypePlayNext, nil)
	assert.Empty(t, readQueueUpdate(t, conn))
}

func TestRemoveSongForeignOwnerScenario(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	a := dial(t, srv, "room="+roomID, nil)
	b := dial(t, srv, "room="+roomID, nil)

	assert.Empty(t, readQueueUpdate(t, a))
	assert.Empty(t, readQueueUpdate(t, b))

	send(t, a, events.TypeAddSong, events.AddSongEvent{Song: "X - Y.mp4", Name: "Ana"})

	queueA := readQueueUpdate(t, a)
	queueB := readQueueUpdate(t, b)
	require.Len(t, queueA, 1)
	assert.Equal(t, queueA, queueB)

	// Bob tries to cancel Ana's request: no-op, both still get a broadcast.
	send(t, b, events.TypeRemoveSong, events.RemoveSongEvent{ID: queueA[0].ID, Name: "Bob"})

	queueA = readQueueUpdate(t, a)
	queueB = readQueueUpdate(t, b)
	require.Len(t, queueA, 1)
	assert.Equal(t, "Ana", queueA[0].Name)
	assert.Equal(t, queueA, queueB)
}

func TestLastDisconnectDeletesRoom(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, "room="+roomID, nil)
	assert.Empty(t, readQueueUpdate(t, conn))

	require.NoError(t, conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	))
	conn.Close()

	require.Eventually(t, func() bool {
		return !uc.RoomExists(context.Background(), roomID)
	}, 2*time.Second, 20*time.Millisecond)

	expectClose(t, srv, "room="+roomID, nil, CloseRoomNotFound)
}

func TestTimeUpdateIsRelayedToAllConnections(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	host := dial(t, srv, "room="+roomID+"&host=1", nil)
	remote := dial(t, srv, "room="+roomID, nil)

	assert.Empty(t, readQueueUpdate(t, host))
	assert.Empty(t, readQueueUpdate(t, remote))

	send(t, host, events.TypeTimeUpdate, events.TimeUpdateEvent{CurrentTime: 42.5, Duration: 180, Song: "X - Y.mp4"})

	remote.SetReadDeadline(time.Now().Add(2 * time.Second))

	var relayed events.Message
	require.NoError(t, remote.ReadJSON(&relayed))
	assert.Equal(t, events.TypeTimeUpdate, relayed.Type)

	var ev events.TimeUpdateEvent
	require.NoError(t, json.Unmarshal(relayed.Payload, &ev))
	assert.Equal(t, 42.5, ev.CurrentTime)
	assert.Equal(t, "X - Y.mp4", ev.Song)
}

func TestGetQueueAnswersOnlyTheRequester(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	a := dial(t, srv, "room="+roomID, nil)
	b := dial(t, srv, "room="+roomID, nil)

	assert.Empty(t, readQueueUpdate(t, a))
	assert.Empty(t, readQueueUpdate(t, b))

	send(t, a, events.TypeGetQueue, nil)
	assert.Empty(t, readQueueUpdate(t, a))

	// B must stay silent.
	b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = b.ReadMessage()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") || websocket.IsUnexpectedCloseError(err))
}

func TestMalformedMessageKeepsConnectionAlive(t *testing.T) {
	srv, uc := newTestServer(t, testConfig())

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, "room="+roomID, nil)
	assert.Empty(t, readQueueUpdate(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The connection still works afterwards.
	send(t, conn, events.TypeAddSong, events.AddSongEvent{Song: "X - Y.mp4", Name: "Ana"})
	assert.Len(t, readQueueUpdate(t, conn), 1)
}

func signToken(t *testing.T, secret, name string) string {
	t.Helper()

	claims := &middleware.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: name,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return token
}

func TestAuthRequiredRejectsAnonymousRemote(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"

	srv, uc := newTestServer(t, cfg)

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	expectClose(t, srv, "room="+roomID, nil, CloseUnauthenticated)
}

func TestAuthRequiredExemptsHost(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"

	srv, uc := newTestServer(t, cfg)

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, "room="+roomID+"&host=1", nil)
	assert.Empty(t, readQueueUpdate(t, conn))
}

func TestAuthenticatedNameOverridesPayload(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"

	srv, uc := newTestServer(t, cfg)

	roomID, err := uc.CreateRoom(context.Background())
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Cookie", "jwt="+signToken(t, cfg.JWTSecret, "Ana"))

	conn := dial(t, srv, "room="+roomID, header)
	assert.Empty(t, readQueueUpdate(t, conn))

	send(t, conn, events.TypeAddSong, events.AddSongEvent{Song: "X - Y.mp4", Name: "Impostor"})

	queue := readQueueUpdate(t, conn)
	require.Len(t, queue, 1)
	assert.Equal(t, "Ana", queue[0].Name)
}
