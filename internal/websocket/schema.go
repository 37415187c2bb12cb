package websocket

import "github.com/stemsi/perizinan-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client message.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot     Event = "snapshot"
	EventDisconnected Event = "disconnected"
	EventPong         Event = "pong"
	EventError        Event = "error"
)

// SnapshotResponse carries the full, enriched request list after a change.
type SnapshotResponse struct {
	Event    Event             `json:"event"`
	Requests []model.Perizinan `json:"requests"`
}

// DisconnectedResponse tells the client that the record store is unreachable.
// The next snapshot means delivery resumed.
type DisconnectedResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
