package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a Registry.
type Options struct {
	Limits Limits
	// DestroyGrace delays destruction of an emptied session, so a participant
	// who drops briefly can rejoin without losing the room. Zero destroys
	// synchronously on last leave.
	DestroyGrace time.Duration
}

// Registry is the single source of truth mapping live room codes to sessions.
// Sessions are only reachable through lookup here, and a session is present
// exactly while it has at least one participant (modulo the optional destroy
// grace window). The registry mutex is always acquired before any session
// mutex, never the reverse.
type Registry struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*time.Timer // deferred destroys for emptied sessions
}

// NewRegistry creates an empty registry. Zero-value limits fall back to the
// reference bounds (100 chat entries, 1000 chars).
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	if opts.Limits.MaxMessages <= 0 {
		opts.Limits.MaxMessages = 100
	}
	if opts.Limits.MaxMessageLen <= 0 {
		opts.Limits.MaxMessageLen = 1000
	}
	return &Registry{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
		pending:  make(map[string]*time.Timer),
	}
}

// CreateSession creates a session for the room code with the given connection
// as host. Fails with ErrAlreadyExists if a live session holds the code.
func (r *Registry) CreateSession(roomCode, connID string, userID uuid.UUID, username string) (*Session, Participant, error) {
	if !ValidRoomCode(roomCode) {
		return nil, Participant{}, ErrInvalidRoomCode
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[roomCode]; ok {
		return nil, Participant{}, ErrAlreadyExists
	}
	return r.createLocked(roomCode, connID, userID, username)
}

// JoinOrCreate atomically joins the live session for the room code, creating
// it first if absent. Exactly one of two racing callers for an unseen code
// creates; the other joins the created session. created reports which case
// this call was.
func (r *Registry) JoinOrCreate(roomCode, connID string, userID uuid.UUID, username string) (sess *Session, p Participant, created bool, err error) {
	if !ValidRoomCode(roomCode) {
		return nil, Participant{}, false, ErrInvalidRoomCode
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[roomCode]; ok {
		r.cancelPendingLocked(roomCode)
		p, err := sess.AddParticipant(connID, userID, username)
		return sess, p, false, err
	}
	sess, p, err = r.createLocked(roomCode, connID, userID, username)
	return sess, p, err == nil, err
}

func (r *Registry) createLocked(roomCode, connID string, userID uuid.UUID, username string) (*Session, Participant, error) {
	sess := newSession(roomCode, r.opts.Limits, time.Now())
	p, err := sess.AddParticipant(connID, userID, username)
	if err != nil {
		return nil, Participant{}, err
	}
	r.sessions[roomCode] = sess
	r.logger.Info("session created", zap.String("room_code", roomCode), zap.String("host", username))
	return sess, p, nil
}

// Leave removes the connection from the room's session. If the removed
// participant was host and others remain, the earliest-joined remaining
// participant is promoted. When the last participant leaves, the session is
// destroyed — synchronously, or after the configured grace window if a grace
// period is set (a rejoin within the window cancels destruction).
func (r *Registry) Leave(roomCode, connID string) (removed Participant, newHost *Participant, destroyed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[roomCode]
	if !ok {
		return Participant{}, nil, false, ErrNotFound
	}
	removed, newHost, found := sess.RemoveParticipant(connID)
	if !found {
		return Participant{}, nil, false, ErrNotFound
	}
	if sess.Len() > 0 {
		return removed, newHost, false, nil
	}

	if r.opts.DestroyGrace <= 0 {
		r.destroyLocked(roomCode)
		return removed, nil, true, nil
	}
	r.schedulePendingLocked(roomCode)
	return removed, nil, false, nil
}

// GetSession returns the live session for the room code.
func (r *Registry) GetSession(roomCode string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[roomCode]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Exists reports whether a live session holds the room code.
func (r *Registry) Exists(roomCode string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[roomCode]
	return ok
}

// DestroySession removes the session for the room code. Idempotent; a missing
// code is a no-op.
func (r *Registry) DestroySession(roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[roomCode]; ok {
		r.destroyLocked(roomCode)
	}
}

// ListRoomCodes returns the codes of all live sessions.
func (r *Registry) ListRoomCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	return codes
}

func (r *Registry) destroyLocked(roomCode string) {
	delete(r.sessions, roomCode)
	r.cancelPendingLocked(roomCode)
	r.logger.Info("session destroyed", zap.String("room_code", roomCode))
}

func (r *Registry) schedulePendingLocked(roomCode string) {
	r.cancelPendingLocked(roomCode)
	r.pending[roomCode] = time.AfterFunc(r.opts.DestroyGrace, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		sess, ok := r.sessions[roomCode]
		if !ok || sess.Len() > 0 {
			return
		}
		r.destroyLocked(roomCode)
	})
	r.logger.Debug("session destroy deferred",
		zap.String("room_code", roomCode),
		zap.Duration("grace", r.opts.DestroyGrace),
	)
}

func (r *Registry) cancelPendingLocked(roomCode string) {
	if t, ok := r.pending[roomCode]; ok {
		t.Stop()
		delete(r.pending, roomCode)
	}
}
