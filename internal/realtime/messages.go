package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/streamroom/backend/internal/session"
)

// WSMessage is the WebSocket message envelope. Every frame in both directions
// is one of these; Data holds the event-specific payload.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound events.
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventChat        = "chat"
	EventQueueAdd    = "queue-add"
	EventQueueRemove = "queue-remove"
	EventQueueClear  = "queue-clear"
	EventMediaPlay   = "media-play"
	EventMediaPause  = "media-pause"
	EventMediaSeek   = "media-seek"
)

// Outbound events.
const (
	EventJoinSuccess     = "join-success"
	EventRosterUpdated   = "roster-updated"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventMessageReceived = "message-received"
	EventQueueUpdated    = "queue-updated"
	EventPlaybackChanged = "playback-changed"
	EventRoomDestroyed   = "room-destroyed"
	EventError           = "error"
)

// Error codes carried by the error event.
const (
	CodeValidation  = "validation-error"
	CodeNotFound    = "not-found"
	CodeDuplicate   = "duplicate-connection"
	CodeRateLimited = "rate-limited"
	CodeForbidden   = "forbidden"
)

var errValidation = errors.New("validation failed")

// JoinPayload asks to join (or create) the room with the given code. The user
// ID must match the connection's authenticated identity.
type JoinPayload struct {
	RoomCode string `json:"room_code"`
	UserID   string `json:"user_id"`
}

func (p JoinPayload) validate() error {
	if !session.ValidRoomCode(p.RoomCode) {
		return fmt.Errorf("%w: room_code must be 8 alphanumeric characters", errValidation)
	}
	if _, err := uuid.Parse(p.UserID); err != nil {
		return fmt.Errorf("%w: user_id must be a UUID", errValidation)
	}
	return nil
}

// LeavePayload asks to leave the room the connection is currently in. The
// room code must match that room.
type LeavePayload struct {
	RoomCode string `json:"room_code"`
	UserID   string `json:"user_id"`
}

func (p LeavePayload) validate() error {
	if !session.ValidRoomCode(p.RoomCode) {
		return fmt.Errorf("%w: room_code must be 8 alphanumeric characters", errValidation)
	}
	if _, err := uuid.Parse(p.UserID); err != nil {
		return fmt.Errorf("%w: user_id must be a UUID", errValidation)
	}
	return nil
}

// ChatPayload carries a chat message; room and sender are taken from the
// connection state. Content limits are enforced by the session.
type ChatPayload struct {
	Content string `json:"content"`
}

func (p ChatPayload) validate() error {
	if p.Content == "" {
		return fmt.Errorf("%w: content is required", errValidation)
	}
	return nil
}

// QueueAddPayload adds a media item to the room's queue at the given end.
type QueueAddPayload struct {
	MediaID  string `json:"media_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Position string `json:"position"` // "head" or "tail"; empty means tail
}

func (p QueueAddPayload) validate() error {
	if p.URL == "" {
		return fmt.Errorf("%w: url is required", errValidation)
	}
	switch p.Position {
	case "", string(session.QueueHead), string(session.QueueTail):
		return nil
	default:
		return fmt.Errorf("%w: position must be head or tail", errValidation)
	}
}

func (p QueueAddPayload) queuePosition() session.QueuePosition {
	if p.Position == string(session.QueueHead) {
		return session.QueueHead
	}
	return session.QueueTail
}

// QueueRemovePayload removes a queue entry by its entry ID.
type QueueRemovePayload struct {
	EntryID string `json:"entry_id"`
}

func (p QueueRemovePayload) validate() error {
	if _, err := uuid.Parse(p.EntryID); err != nil {
		return fmt.Errorf("%w: entry_id must be a UUID", errValidation)
	}
	return nil
}

// PlaybackPayload carries a play/pause/seek position in seconds. MediaID is
// only honored for play, where it switches the selected media.
type PlaybackPayload struct {
	Position float64 `json:"position"`
	MediaID  string  `json:"media_id,omitempty"`
}

func (p PlaybackPayload) validate() error {
	if p.Position < 0 {
		return fmt.Errorf("%w: position must be >= 0", errValidation)
	}
	return nil
}

// ErrorPayload is sent to the originating connection when a command is
// rejected. Every rejected command names the operation that failed.
type ErrorPayload struct {
	Code       string `json:"code"`
	Op         string `json:"op"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

// JoinSuccessPayload is the snapshot sent to a joiner: full roster, retained
// chat history, queue, and the playback checkpoint to resolve locally.
type JoinSuccessPayload struct {
	You      session.Participant `json:"you"`
	Snapshot session.Snapshot    `json:"snapshot"`
}

// RosterPayload carries the current roster in join order.
type RosterPayload struct {
	RoomCode     string                `json:"room_code"`
	Participants []session.Participant `json:"participants"`
}

// PresencePayload announces one participant joining or leaving. NewHost is
// set on user-left when the departure caused a host promotion.
type PresencePayload struct {
	RoomCode    string               `json:"room_code"`
	Participant session.Participant  `json:"participant"`
	NewHost     *session.Participant `json:"new_host,omitempty"`
}

// ChatBroadcastPayload carries an accepted chat message to the room.
type ChatBroadcastPayload struct {
	RoomCode string          `json:"room_code"`
	Message  session.Message `json:"message"`
}

// QueuePayload carries the full queue after any queue mutation.
type QueuePayload struct {
	RoomCode string               `json:"room_code"`
	Queue    []session.QueueEntry `json:"queue"`
}

// PlaybackBroadcastPayload carries the new playback checkpoint, never a
// resolved position.
type PlaybackBroadcastPayload struct {
	RoomCode string                `json:"room_code"`
	Playback session.PlaybackState `json:"playback"`
}

// RoomDestroyedPayload tells remaining members their room was torn down.
type RoomDestroyedPayload struct {
	RoomCode string `json:"room_code"`
}
