package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/application/metric"
	"github.com/jortega/karaokejam/internal/domain/events"
	"github.com/jortega/karaokejam/internal/domain/models"
	"github.com/jortega/karaokejam/internal/infra/adapters/memory"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomUsecase coordinates room lifecycle and dispatches inbound messages to
// the queue state machine.
type RoomUsecase interface {
	CreateRoom(ctx context.Context) (string, error)
	RoomExists(ctx context.Context, id string) bool

	// Attach binds a connection to a room. The room immediately unicasts
	// its queue snapshot to the new connection.
	Attach(ctx context.Context, roomID string, connID uuid.UUID, s models.Sender) error

	// Detach removes a connection and deletes the room when it was the
	// last one. Safe to call once per connection, from either close path.
	Detach(ctx context.Context, roomID string, connID uuid.UUID)

	// HandleMessage applies one inbound message. identity is the
	// provider-supplied display name, empty for unauthenticated
	// connections; when present it overrides the payload name.
	HandleMessage(ctx context.Context, roomID string, connID uuid.UUID, identity string, msg events.Message) error
}

type roomUsecase struct {
	registry memory.RoomRegistry
}

func NewRoomUsecase(registry memory.RoomRegistry) RoomUsecase {
	return &roomUsecase{registry: registry}
}

func (uc *roomUsecase) CreateRoom(ctx context.Context) (string, error) {
	room, err := uc.registry.CreateRoom()
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}

	slog.Info("room created", slog.String(constant.RoomID, room.ID()))

	return room.ID(), nil
}

func (uc *roomUsecase) RoomExists(ctx context.Context, id string) bool {
	return uc.registry.Exists(id)
}

func (uc *roomUsecase) Attach(ctx context.Context, roomID string, connID uuid.UUID, s models.Sender) error {
	// Attaching through the registry keeps the membership check and the
	// attach atomic against a concurrent last-detach deletion.
	room, ok := uc.registry.Attach(roomID, connID, s)
	if !ok {
		return ErrRoomNotFound
	}

	slog.Info(
		"connection attached",
		slog.String(constant.RoomID, room.ID()),
		slog.Any(constant.ConnID, connID),
		slog.Int("total_in_room", room.ConnCount()),
	)

	return nil
}

func (uc *roomUsecase) Detach(ctx context.Context, roomID string, connID uuid.UUID) {
	room, ok := uc.registry.Get(roomID)
	if !ok {
		return
	}

	remaining := room.Detach(connID)

	slog.Info(
		"connection detached",
		slog.String(constant.RoomID, room.ID()),
		slog.Any(constant.ConnID, connID),
		slog.Int("remaining_in_room", remaining),
	)

	if remaining == 0 && uc.registry.DeleteIfEmpty(room.ID()) {
		slog.Info("room empty, deleted", slog.String(constant.RoomID, room.ID()))
	}
}

func (uc *roomUsecase) HandleMessage(ctx context.Context, roomID string, connID uuid.UUID, identity string, msg events.Message) error {
	room, ok := uc.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	switch msg.Type {
	case events.TypeAddSong:
		var ev events.AddSongEvent

		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal addSong: %w", err)
		}

		name := ev.Name
		if identity != "" {
			name = identity
		}

		entry := room.AddSong(ev.Song, name)
		metric.RecordQueueMutation(msg.Type)

		slog.Info(
			"song queued",
			slog.String(constant.RoomID, room.ID()),
			slog.String(constant.Song, entry.Song),
			slog.String(constant.UserName, entry.Name),
		)

	case events.TypeRemoveSong:
		var ev events.RemoveSongEvent

		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal removeSong: %w", err)
		}

		name := ev.Name
		if identity != "" {
			name = identity
		}

		room.RemoveSong(ev.ID, name)
		metric.RecordQueueMutation(msg.Type)

	case events.TypePlayNext:
		room.PlayNext()
		metric.RecordQueueMutation(msg.Type)

	case events.TypeGetQueue:
		room.SendQueue(connID)

	case events.TypeControlAction, events.TypeTimeUpdate:
		// Pure relay: the host interprets these, the server holds no state.
		room.Relay(msg)

	default:
		slog.Warn(
			"ignoring unknown message type",
			slog.String("type", msg.Type),
			slog.String(constant.RoomID, room.ID()),
		)
	}

	return nil
}
