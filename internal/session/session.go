// Package session holds the in-memory state of live rooms: who is connected,
// the bounded chat history, the shared media queue, and the playback
// checkpoint. All state is owned by this process; nothing here touches
// persistent storage.
package session

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Participant is one connection's membership in a session. A user with two
// tabs open is two participants with distinct connection IDs.
type Participant struct {
	ConnID   string    `json:"conn_id"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is a chat entry in a session's bounded history.
type Message struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// QueuePosition selects which end of the media queue an item is inserted at.
type QueuePosition string

const (
	QueueHead QueuePosition = "head"
	QueueTail QueuePosition = "tail"
)

// QueueItem is the caller-supplied part of a queue entry.
type QueueItem struct {
	MediaID  string
	Title    string
	URL      string
	MimeType string
	AddedBy  string
}

// QueueEntry is a media item in the shared queue. Entry IDs are assigned at
// insertion; the same media may appear multiple times with distinct entry IDs.
type QueueEntry struct {
	ID       uuid.UUID `json:"id"`
	MediaID  string    `json:"media_id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	MimeType string    `json:"mime_type"`
	AddedBy  string    `json:"added_by"`
}

// Snapshot is a consistent view of a session's state, taken under the session
// lock. It is what a late joiner receives: the playback checkpoint lets them
// resolve the current position locally.
type Snapshot struct {
	RoomCode     string        `json:"room_code"`
	Participants []Participant `json:"participants"`
	Messages     []Message     `json:"messages"`
	Queue        []QueueEntry  `json:"queue"`
	Playback     PlaybackState `json:"playback"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Limits bound per-session chat state.
type Limits struct {
	MaxMessages   int // chat history entries kept (oldest evicted first)
	MaxMessageLen int // maximum chat content length after trimming
}

// Session is one live room's authoritative state. All mutation goes through
// exported methods, each of which holds the session mutex for its duration;
// callers never see the collections mid-mutation.
type Session struct {
	roomCode  string
	createdAt time.Time
	limits    Limits

	mu           sync.Mutex
	participants map[string]*Participant
	joinOrder    []string // conn IDs, earliest first; head is next host
	messages     []Message
	queue        []QueueEntry
	playback     PlaybackState
}

func newSession(roomCode string, limits Limits, now time.Time) *Session {
	return &Session{
		roomCode:     roomCode,
		createdAt:    now,
		limits:       limits,
		participants: make(map[string]*Participant),
		playback:     PlaybackState{Rate: 1},
	}
}

// RoomCode returns the immutable room code this session was created under.
func (s *Session) RoomCode() string { return s.roomCode }

// CreatedAt returns the session creation time (diagnostics only; sessions are
// destroyed by emptiness, not age).
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// AddParticipant registers a connection as a participant. The first
// participant becomes host. A connection already present is rejected with
// ErrDuplicateConnection rather than merged.
func (s *Session) AddParticipant(connID string, userID uuid.UUID, username string) (Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[connID]; ok {
		return Participant{}, ErrDuplicateConnection
	}
	p := &Participant{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
		IsHost:   len(s.participants) == 0,
		JoinedAt: time.Now(),
	}
	s.participants[connID] = p
	s.joinOrder = append(s.joinOrder, connID)
	return *p, nil
}

// RemoveParticipant removes a connection from the session. If the removed
// participant was host and others remain, the earliest-joined remaining
// participant is promoted and returned as newHost. ok is false if the
// connection was not a participant.
func (s *Session) RemoveParticipant(connID string) (removed Participant, newHost *Participant, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.participants[connID]
	if !found {
		return Participant{}, nil, false
	}
	delete(s.participants, connID)
	for i, id := range s.joinOrder {
		if id == connID {
			s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
			break
		}
	}
	if p.IsHost && len(s.joinOrder) > 0 {
		next := s.participants[s.joinOrder[0]]
		next.IsHost = true
		promoted := *next
		newHost = &promoted
	}
	return *p, newHost, true
}

// Participant returns the participant for a connection, if present.
func (s *Session) Participant(connID string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[connID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Participants returns the roster in join order.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked()
}

func (s *Session) rosterLocked() []Participant {
	out := make([]Participant, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		out = append(out, *s.participants[id])
	}
	return out
}

// Len returns the number of participants.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// AddMessage appends a chat message. Content is trimmed; empty or over-length
// content is rejected with ErrInvalidContent and nothing is appended. The
// length limit counts characters, not bytes. When the history bound is
// reached the oldest entry is evicted.
func (s *Session) AddMessage(userID uuid.UUID, username, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > s.limits.MaxMessageLen {
		return Message{}, ErrInvalidContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := Message{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  username,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.messages = append(s.messages, m)
	if len(s.messages) > s.limits.MaxMessages {
		s.messages = s.messages[len(s.messages)-s.limits.MaxMessages:]
	}
	return m, nil
}

// Messages returns the retained chat history, oldest first.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AddToQueue inserts a media item at the requested end of the queue and
// assigns it a fresh entry ID. Duplicates of the same media are allowed.
func (s *Session) AddToQueue(item QueueItem, pos QueuePosition) QueueEntry {
	entry := QueueEntry{
		ID:       uuid.New(),
		MediaID:  item.MediaID,
		Title:    item.Title,
		URL:      item.URL,
		MimeType: item.MimeType,
		AddedBy:  item.AddedBy,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pos == QueueHead {
		s.queue = append([]QueueEntry{entry}, s.queue...)
	} else {
		s.queue = append(s.queue, entry)
	}
	return entry
}

// RemoveFromQueue removes the entry with the given ID. Returns false if no
// such entry exists; the queue is unchanged in that case.
func (s *Session) RemoveFromQueue(entryID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.queue {
		if e.ID == entryID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// ClearQueue removes all queue entries.
func (s *Session) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
}

// Queue returns the media queue in play order.
func (s *Session) Queue() []QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueueEntry, len(s.queue))
	copy(out, s.queue)
	return out
}

// Play replaces the playback checkpoint with a playing state at the given
// position and returns the new checkpoint. An empty mediaID keeps the current
// media selection.
func (s *Session) Play(mediaID string, at float64) PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback.play(mediaID, at, time.Now())
	return s.playback
}

// Pause replaces the playback checkpoint with a paused state at the given
// position and returns the new checkpoint.
func (s *Session) Pause(at float64) PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback.pause(at, time.Now())
	return s.playback
}

// Seek moves the playback position, preserving the play/pause state, and
// returns the new checkpoint.
func (s *Session) Seek(to float64) PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback.seek(to, time.Now())
	return s.playback
}

// Playback returns the current checkpoint.
func (s *Session) Playback() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

// Snapshot returns a consistent copy of the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	queue := make([]QueueEntry, len(s.queue))
	copy(queue, s.queue)
	return Snapshot{
		RoomCode:     s.roomCode,
		Participants: s.rosterLocked(),
		Messages:     msgs,
		Queue:        queue,
		Playback:     s.playback,
		CreatedAt:    s.createdAt,
	}
}
