package realtime

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamroom/backend/internal/session"
)

// RouterConfig tunes command handling.
type RouterConfig struct {
	// HostControlsPlayback restricts playback and queue mutation to the
	// room host. Off by default: anyone in the room can control playback.
	HostControlsPlayback bool
}

// Router is the only component that touches both the wire protocol and the
// session registry. It validates every inbound message, applies the matching
// session operation, and fans the result out through the hub. Each message
// kind has its own fan-out rule; failures are reported to the originating
// connection only and never mutate state.
type Router struct {
	registry *session.Registry
	hub      Sender
	cfg      RouterConfig
	logger   *zap.Logger
}

// NewRouter creates a command router over the given registry and hub.
func NewRouter(registry *session.Registry, hub Sender, cfg RouterConfig, logger *zap.Logger) *Router {
	return &Router{
		registry: registry,
		hub:      hub,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handle dispatches one inbound message from a connection. Unknown events and
// malformed payloads are rejected with an error event; nothing reaches
// session state unless validation passed.
func (r *Router) Handle(c Conn, msg WSMessage) {
	switch msg.Event {
	case EventJoin:
		r.handleJoin(c, msg.Data)
	case EventLeave:
		r.handleLeave(c, msg.Data)
	case EventChat:
		r.handleChat(c, msg.Data)
	case EventQueueAdd:
		r.handleQueueAdd(c, msg.Data)
	case EventQueueRemove:
		r.handleQueueRemove(c, msg.Data)
	case EventQueueClear:
		r.handleQueueClear(c)
	case EventMediaPlay, EventMediaPause, EventMediaSeek:
		r.handlePlayback(c, msg.Event, msg.Data)
	default:
		r.sendError(c, msg.Event, CodeValidation, "unknown event")
	}
}

// HandleDisconnect runs when a connection's transport closes. It is the same
// code path as an explicit leave, so abrupt closure and a leave command are
// indistinguishable to the rest of the room.
func (r *Router) HandleDisconnect(c Conn) {
	if c.Room() == "" {
		return
	}
	r.leaveCurrentRoom(c)
}

// DestroyRoom force-destroys a live session, notifying its members first.
// Used by the admin diagnostics API; normal destruction happens through the
// last participant leaving.
func (r *Router) DestroyRoom(roomCode string) error {
	if !r.registry.Exists(roomCode) {
		return session.ErrNotFound
	}
	r.hub.Broadcast(roomCode, EventRoomDestroyed, RoomDestroyedPayload{RoomCode: roomCode})
	r.registry.DestroySession(roomCode)
	r.hub.DropRoom(roomCode)
	return nil
}

func (r *Router) handleJoin(c Conn, data json.RawMessage) {
	var p JoinPayload
	if err := unmarshalPayload(data, &p); err != nil {
		r.sendError(c, EventJoin, CodeValidation, err.Error())
		return
	}
	if p.UserID != c.Identity().UserID.String() {
		r.sendError(c, EventJoin, CodeValidation, "user_id does not match connection identity")
		return
	}

	// One room per connection: joining while in a room leaves the old one
	// first, with the usual departure broadcasts.
	if c.Room() != "" && c.Room() != p.RoomCode {
		r.leaveCurrentRoom(c)
	}

	id := c.Identity()
	sess, joined, created, err := r.registry.JoinOrCreate(p.RoomCode, c.ID(), id.UserID, id.Username)
	switch {
	case errors.Is(err, session.ErrDuplicateConnection):
		r.sendError(c, EventJoin, CodeDuplicate, "already in this room")
		return
	case err != nil:
		r.sendError(c, EventJoin, CodeValidation, err.Error())
		return
	}

	c.SetRoom(p.RoomCode)
	r.hub.Join(p.RoomCode, c)

	c.Send(EventJoinSuccess, JoinSuccessPayload{You: joined, Snapshot: sess.Snapshot()})
	r.hub.BroadcastExcept(p.RoomCode, c.ID(), EventUserJoined, PresencePayload{
		RoomCode:    p.RoomCode,
		Participant: joined,
	})
	r.hub.BroadcastExcept(p.RoomCode, c.ID(), EventRosterUpdated, RosterPayload{
		RoomCode:     p.RoomCode,
		Participants: sess.Participants(),
	})

	r.logger.Info("participant joined",
		zap.String("room_code", p.RoomCode),
		zap.String("username", id.Username),
		zap.Bool("created", created),
	)
}

func (r *Router) handleLeave(c Conn, data json.RawMessage) {
	var p LeavePayload
	if err := unmarshalPayload(data, &p); err != nil {
		r.sendError(c, EventLeave, CodeValidation, err.Error())
		return
	}
	if c.Room() == "" || c.Room() != p.RoomCode {
		r.sendError(c, EventLeave, CodeNotFound, "not in that room")
		return
	}
	if err := r.leaveCurrentRoom(c); err != nil {
		// The session vanished between the membership check and the
		// departure, e.g. a concurrent force-destroy.
		r.sendError(c, EventLeave, CodeNotFound, "room not found")
	}
}

// leaveCurrentRoom is the single departure path shared by the leave command,
// disconnects, and auto-leave on re-join. The connection's room association
// is cleared even when the registry no longer knows the session.
func (r *Router) leaveCurrentRoom(c Conn) error {
	roomCode := c.Room()
	removed, newHost, destroyed, err := r.registry.Leave(roomCode, c.ID())
	c.SetRoom("")
	r.hub.Leave(roomCode, c.ID())
	if err != nil {
		return err
	}
	if destroyed {
		return nil
	}
	r.hub.Broadcast(roomCode, EventUserLeft, PresencePayload{
		RoomCode:    roomCode,
		Participant: removed,
		NewHost:     newHost,
	})
	if sess, err := r.registry.GetSession(roomCode); err == nil {
		r.hub.Broadcast(roomCode, EventRosterUpdated, RosterPayload{
			RoomCode:     roomCode,
			Participants: sess.Participants(),
		})
	}
	return nil
}

func (r *Router) handleChat(c Conn, data json.RawMessage) {
	var p ChatPayload
	if err := unmarshalPayload(data, &p); err != nil {
		r.sendError(c, EventChat, CodeValidation, err.Error())
		return
	}
	sess, ok := r.currentSession(c, EventChat)
	if !ok {
		return
	}
	id := c.Identity()
	msg, err := sess.AddMessage(id.UserID, id.Username, p.Content)
	if errors.Is(err, session.ErrInvalidContent) {
		r.sendError(c, EventChat, CodeValidation, "content must be non-empty and within the length limit")
		return
	}
	// Chat goes to everyone, sender included: the sender sees their message
	// in the same order as everyone else.
	r.hub.Broadcast(c.Room(), EventMessageReceived, ChatBroadcastPayload{
		RoomCode: c.Room(),
		Message:  msg,
	})
}

func (r *Router) handleQueueAdd(c Conn, data json.RawMessage) {
	var p QueueAddPayload
	if err := unmarshalPayload(data, &p); err != nil {
		r.sendError(c, EventQueueAdd, CodeValidation, err.Error())
		return
	}
	sess, ok := r.currentSession(c, EventQueueAdd)
	if !ok {
		return
	}
	if !r.allowMutation(c, sess, EventQueueAdd) {
		return
	}
	sess.AddToQueue(session.QueueItem{
		MediaID:  p.MediaID,
		Title:    p.Title,
		URL:      p.URL,
		MimeType: p.MimeType,
		AddedBy:  c.Identity().Username,
	}, p.queuePosition())
	r.broadcastQueue(c.Room(), sess)
}

func (r *Router) handleQueueRemove(c Conn, data json.RawMessage) {
	var p QueueRemovePayload
	if err := unmarshalPayload(data, &p); err != nil {
		r.sendError(c, EventQueueRemove, CodeValidation, err.Error())
		return
	}
	sess, ok := r.currentSession(c, EventQueueRemove)
	if !ok {
		return
	}
	if !r.allowMutation(c, sess, EventQueueRemove) {
		return
	}
	entryID, err := uuid.Parse(p.EntryID)
	if err != nil {
		r.sendError(c, EventQueueRemove, CodeValidation, "entry_id must be a valid UUID")
		return
	}
	if !sess.RemoveFromQueue(entryID) {
		r.sendError(c, EventQueueRemove, CodeNotFound, "no such queue entry")
		return
	}
	r.broadcastQueue(c.Room(), sess)
}

func (r *Router) handleQueueClear(c Conn) {
	sess, ok := r.currentSession(c, EventQueueClear)
	if !ok {
		return
	}
	if !r.allowMutation(c, sess, EventQueueClear) {
		return
	}
	sess.ClearQueue()
	r.broadcastQueue(c.Room(), sess)
}

func (r *Router) handlePlayback(c Conn, event string, data json.RawMessage) {
	var p PlaybackPayload
	if err := unmarshalPayload(data, &p); err != nil {
		r.sendError(c, event, CodeValidation, err.Error())
		return
	}
	sess, ok := r.currentSession(c, event)
	if !ok {
		return
	}
	if !r.allowMutation(c, sess, event) {
		return
	}

	var state session.PlaybackState
	switch event {
	case EventMediaPlay:
		state = sess.Play(p.MediaID, p.Position)
	case EventMediaPause:
		state = sess.Pause(p.Position)
	case EventMediaSeek:
		state = sess.Seek(p.Position)
	}

	// The originator already applied the transition locally; everyone else
	// gets the new checkpoint and resolves position themselves.
	r.hub.BroadcastExcept(c.Room(), c.ID(), EventPlaybackChanged, PlaybackBroadcastPayload{
		RoomCode: c.Room(),
		Playback: state,
	})
}

func (r *Router) broadcastQueue(roomCode string, sess *session.Session) {
	r.hub.Broadcast(roomCode, EventQueueUpdated, QueuePayload{
		RoomCode: roomCode,
		Queue:    sess.Queue(),
	})
}

// currentSession resolves the connection's room to its live session, emitting
// a not-found error for connections that are not in a room (or whose room is
// gone).
func (r *Router) currentSession(c Conn, op string) (*session.Session, bool) {
	if c.Room() == "" {
		r.sendError(c, op, CodeNotFound, "not in a room")
		return nil, false
	}
	sess, err := r.registry.GetSession(c.Room())
	if err != nil {
		c.SetRoom("")
		r.sendError(c, op, CodeNotFound, "room no longer exists")
		return nil, false
	}
	return sess, true
}

// allowMutation enforces the optional host-only control toggle for playback
// and queue mutation.
func (r *Router) allowMutation(c Conn, sess *session.Session, op string) bool {
	if !r.cfg.HostControlsPlayback {
		return true
	}
	p, ok := sess.Participant(c.ID())
	if !ok || !p.IsHost {
		r.sendError(c, op, CodeForbidden, "only the host can do that")
		return false
	}
	return true
}

func (r *Router) sendError(c Conn, op, code, message string) {
	c.Send(EventError, ErrorPayload{Code: code, Op: op, Message: message})
}

// unmarshalPayload decodes an event payload and runs its shape validation.
// Absent or malformed payloads fail before any session state is touched.
func unmarshalPayload(data json.RawMessage, v interface{ validate() error }) error {
	if len(data) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New("malformed payload")
	}
	return v.validate()
}
