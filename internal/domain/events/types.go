package events

import "encoding/json"

// Message is the wire envelope for everything exchanged over a room
// connection. Payload stays raw until the type is known.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types.
const (
	TypeAddSong       = "addSong"
	TypeRemoveSong    = "removeSong"
	TypePlayNext      = "playNext"
	TypeGetQueue      = "getQueue"
	TypeControlAction = "controlAction"
	TypeTimeUpdate    = "timeUpdate"
)

// TypeQueueUpdate is outbound only: the full queue snapshot sent on attach,
// after every mutation, and in reply to getQueue.
const TypeQueueUpdate = "queueUpdate"

type AddSongEvent struct {
	Song string `json:"song"`
	Name string `json:"name,omitempty"`
}

type RemoveSongEvent struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type ControlActionEvent struct {
	Action string `json:"action"`
}

// TimeUpdateEvent is playback telemetry from the host. The server relays it
// verbatim; throttling is the sender's job.
type TimeUpdateEvent struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Song        string  `json:"song"`
}

// Control actions the host understands.
const (
	ActionPlayPause = "playPause"
	ActionSkip      = "skip"
)
