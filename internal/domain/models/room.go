package models

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/domain/events"
)

// QueueEntry is one request to play a catalog item, attributed to the
// participant who queued it. The head of a room's queue is the entry
// currently playing.
type QueueEntry struct {
	ID   int64  `json:"id"`
	Song string `json:"song"`
	Name string `json:"name"`
}

// Sender is the outbound half of an attached connection. Implementations
// must be safe for concurrent use.
type Sender interface {
	WriteEvent(v any) error
}

type queueUpdate struct {
	Type    string       `json:"type"`
	Payload []QueueEntry `json:"payload"`
}

// Room owns one ordered song queue and the set of connections attached to
// it. Every mutation and the broadcast it triggers run under one mutex, so
// each attached connection observes a monotonic sequence of snapshots.
type Room struct {
	id string

	mu           sync.Mutex
	nextEntryID  int64
	queue        []QueueEntry
	conns        map[uuid.UUID]Sender
	everAttached bool
	createdAt    time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		id:        id,
		queue:     make([]QueueEntry, 0),
		conns:     make(map[uuid.UUID]Sender),
		createdAt: time.Now(),
	}
}

func (r *Room) ID() string {
	return r.id
}

// Attach registers a connection and sends it the current snapshot before any
// later mutation can broadcast, so the new client never misses an update.
func (r *Room) Attach(connID uuid.UUID, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = s
	r.everAttached = true

	r.sendSnapshotLocked(connID, s)
}

// Detach removes a connection and reports how many remain.
func (r *Room) Detach(connID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, connID)

	return len(r.conns)
}

func (r *Room) ConnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.conns)
}

// Abandoned reports whether the room never saw a connection and has outlived
// the grace window between creation and first attach.
func (r *Room) Abandoned(ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return !r.everAttached && len(r.conns) == 0 && time.Since(r.createdAt) > ttl
}

// AddSong appends an entry with a fresh room-scoped id and broadcasts the
// new queue.
func (r *Room) AddSong(song, name string) QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEntryID++
	entry := QueueEntry{
		ID:   r.nextEntryID,
		Song: song,
		Name: name,
	}
	r.queue = append(r.queue, entry)

	r.broadcastQueueLocked()

	return entry
}

// RemoveSong deletes the first entry matching both id and name. Participants
// may only remove their own requests; a mismatch is a no-op, not an error.
// Ids of the surviving entries are untouched.
func (r *Room) RemoveSong(id int64, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for i, entry := range r.queue {
		if entry.ID == id && entry.Name == name {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			removed = true
			break
		}
	}

	r.broadcastQueueLocked()

	return removed
}

// PlayNext pops the head entry. No ownership check: this is the host's
// privileged action. No-op on an empty queue.
func (r *Room) PlayNext() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	popped := false
	if len(r.queue) > 0 {
		r.queue = r.queue[1:]
		popped = true
	}

	r.broadcastQueueLocked()

	return popped
}

// Queue returns a copy of the current queue in play order.
func (r *Room) Queue() []QueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked()
}

// snapshotLocked copies the queue. Always non-nil: an empty queue must
// marshal as [] on the wire, the remote clients index into the payload.
func (r *Room) snapshotLocked() []QueueEntry {
	snapshot := make([]QueueEntry, len(r.queue))
	copy(snapshot, r.queue)

	return snapshot
}

// SendQueue unicasts the snapshot to one connection, without broadcasting.
func (r *Room) SendQueue(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.conns[connID]
	if !ok {
		return
	}

	r.sendSnapshotLocked(connID, s)
}

// Relay broadcasts a message to every attached connection without touching
// the queue. Used for control actions and playback telemetry, which the
// server forwards unchanged.
func (r *Room) Relay(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for connID, s := range r.conns {
		if err := s.WriteEvent(v); err != nil {
			slog.Error(
				"relay to connection",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, r.id),
				slog.Any(constant.ConnID, connID),
			)
		}
	}
}

func (r *Room) broadcastQueueLocked() {
	update := queueUpdate{
		Type:    events.TypeQueueUpdate,
		Payload: r.snapshotLocked(),
	}

	for connID, s := range r.conns {
		if err := s.WriteEvent(update); err != nil {
			slog.Error(
				"broadcast queue to connection",
				slog.Any(constant.Error, err),
				slog.String(constant.RoomID, r.id),
				slog.Any(constant.ConnID, connID),
			)
		}
	}
}

func (r *Room) sendSnapshotLocked(connID uuid.UUID, s Sender) {
	update := queueUpdate{
		Type:    events.TypeQueueUpdate,
		Payload: r.snapshotLocked(),
	}

	if err := s.WriteEvent(update); err != nil {
		slog.Error(
			"send queue snapshot",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, r.id),
			slog.Any(constant.ConnID, connID),
		)
	}
}
