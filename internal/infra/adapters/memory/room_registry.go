package memory

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jortega/karaokejam/internal/application/metric"
	"github.com/jortega/karaokejam/internal/domain/models"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	roomCodeLength   = 4

	// maxGenerateAttempts bounds collision retries. With 26^4 codes this
	// only trips when the registry is effectively full.
	maxGenerateAttempts = 1000
)

// ErrCodeSpaceExhausted is returned when no free room code could be found.
// It fails the single creation request, never the process.
var ErrCodeSpaceExhausted = errors.New("room code space exhausted")

// RoomRegistry owns the set of active rooms in memory. State is ephemeral
// and resets on restart.
type RoomRegistry interface {
	CreateRoom() (*models.Room, error)
	Get(id string) (*models.Room, bool)
	Exists(id string) bool
	Delete(id string)

	// Attach binds a connection to the room under the registry lock, so
	// it cannot interleave with DeleteIfEmpty observing an empty room.
	// Reports false when no such room is registered.
	Attach(id string, connID uuid.UUID, s models.Sender) (*models.Room, bool)

	// DeleteIfEmpty removes the room only while it has no attached
	// connections, guarding against a new attach racing the last detach.
	// Reports whether the room was actually deleted.
	DeleteIfEmpty(id string) bool

	// Reap runs the idle-room collector until ctx is cancelled. Rooms that
	// were created but never attached are deleted after the TTL.
	Reap(ctx context.Context, ttl time.Duration)
}

type roomRegistry struct {
	rooms map[string]*models.Room

	mu sync.RWMutex
}

func NewRoomRegistry() RoomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*models.Room),
	}
}

func (r *roomRegistry) CreateRoom() (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.generateCodeLocked()
	if err != nil {
		return nil, err
	}

	room := models.NewRoom(code)
	r.rooms[code] = room

	metric.SetActiveRooms(len(r.rooms))

	return room, nil
}

func (r *roomRegistry) generateCodeLocked() (string, error) {
	buf := make([]byte, roomCodeLength)

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		for i := range buf {
			buf[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
		}

		code := string(buf)
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}

	return "", ErrCodeSpaceExhausted
}

func (r *roomRegistry) Get(id string) (*models.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[strings.ToUpper(id)]

	return room, ok
}

func (r *roomRegistry) Exists(id string) bool {
	_, ok := r.Get(id)

	return ok
}

func (r *roomRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rooms, strings.ToUpper(id))

	metric.SetActiveRooms(len(r.rooms))
}

func (r *roomRegistry) Attach(id string, connID uuid.UUID, s models.Sender) (*models.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[strings.ToUpper(id)]
	if !ok {
		return nil, false
	}

	room.Attach(connID, s)

	return room, true
}

func (r *roomRegistry) DeleteIfEmpty(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[strings.ToUpper(id)]
	if !ok || room.ConnCount() > 0 {
		return false
	}

	delete(r.rooms, strings.ToUpper(id))

	metric.SetActiveRooms(len(r.rooms))

	return true
}

func (r *roomRegistry) Reap(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reapAbandoned(ttl)
		}
	}
}

func (r *roomRegistry) reapAbandoned(ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, room := range r.rooms {
		if room.Abandoned(ttl) {
			delete(r.rooms, id)
			slog.Info("reaped abandoned room", slog.String("room_id", id))
		}
	}

	metric.SetActiveRooms(len(r.rooms))
}
