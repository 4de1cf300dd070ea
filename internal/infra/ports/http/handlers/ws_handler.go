package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jortega/karaokejam/internal/application/config"
	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/application/metric"
	"github.com/jortega/karaokejam/internal/domain/events"
	"github.com/jortega/karaokejam/internal/infra/appctx"
	"github.com/jortega/karaokejam/internal/usecase"
)

// Close codes for attach rejections. Distinct codes let clients react
// differently: prompt for a new room code, redirect to login, or retry.
const (
	CloseMissingRoom     = 4000
	CloseUnauthenticated = 4001
	CloseRoomNotFound    = 4004
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	cfg *config.Config

	roomUsecase usecase.RoomUsecase
}

func NewWebSocketHandler(cfg *config.Config, roomUsecase usecase.RoomUsecase) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				origin := r.Header.Get("Origin")

				return origin == "" || origin == cfg.Domain
			},
		},
		cfg:         cfg,
		roomUsecase: roomUsecase,
	}
}

// safeConn serializes writes to one websocket. Broadcasts from room
// mutations and keepalive pings share it.
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeConn) WriteEvent(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	return s.conn.WriteJSON(v)
}

func (s *safeConn) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *safeConn) closeWith(code int, reason string) {
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("WebSocket upgrade error", slog.Any(constant.Error, err))
		return err
	}
	defer ws.Close()

	conn := &safeConn{conn: ws}

	roomID := strings.ToUpper(roomParam(c))
	if roomID == "" {
		conn.closeWith(CloseMissingRoom, "missing room")
		return nil
	}

	identity, _ := appctx.UserName(c.Request().Context())

	// Host connections are the privileged control surface; they skip the
	// identity requirement even when a secret is configured.
	isHost := c.QueryParam("host") == "1"
	if h.cfg.JWTSecret != "" && !isHost && identity == "" {
		conn.closeWith(CloseUnauthenticated, "unauthenticated")
		return nil
	}

	connID := uuid.New()

	if err := h.roomUsecase.Attach(c.Request().Context(), roomID, connID, conn); err != nil {
		conn.closeWith(CloseRoomNotFound, "room not found")
		return nil
	}

	metric.IncrementWSActiveConnections()

	// Cleanup must run exactly once, whichever side closes first.
	var detachOnce sync.Once
	detach := func() {
		detachOnce.Do(func() {
			h.roomUsecase.Detach(c.Request().Context(), roomID, connID)
			metric.DecrementWSActiveConnections()
		})
	}
	defer detach()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.logReadError(err, roomID, connID)
			return nil
		}

		var msg events.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed input is the client's problem, not the room's.
			slog.Warn(
				"discarding malformed message",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, roomID),
			)
			continue
		}

		if err := h.roomUsecase.HandleMessage(c.Request().Context(), roomID, connID, identity, msg); err != nil {
			slog.Error(
				"handle message",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, roomID),
				slog.String("type", msg.Type),
			)
		}
	}
}

// roomParam reads the room code from the handshake. The original remote
// clients send it as "sala"; "room" is the preferred spelling.
func roomParam(c echo.Context) string {
	if room := c.QueryParam("room"); room != "" {
		return room
	}

	return c.QueryParam("sala")
}

func (h *WebSocketHandler) logReadError(err error, roomID string, connID uuid.UUID) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info(
				"client disconnected",
				slog.String(constant.RoomID, roomID),
				slog.Any(constant.ConnID, connID),
			)
			return
		}
	}

	slog.Warn(
		"websocket read",
		slog.Any(constant.Error, err),
		slog.String(constant.RoomID, roomID),
		slog.Any(constant.ConnID, connID),
	)
}
