package session

import "errors"

var (
	// ErrAlreadyExists is returned when creating a session for a room code
	// that already has a live session.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrNotFound is returned when operating on a room code with no live session.
	ErrNotFound = errors.New("session not found")
	// ErrDuplicateConnection is returned when a connection joins a session it
	// is already a participant of.
	ErrDuplicateConnection = errors.New("connection already in session")
	// ErrInvalidContent is returned for chat content that is empty after
	// trimming or exceeds the maximum length.
	ErrInvalidContent = errors.New("invalid message content")
	// ErrInvalidRoomCode is returned for a room code that is not 8 alphanumeric characters.
	ErrInvalidRoomCode = errors.New("invalid room code")
)
