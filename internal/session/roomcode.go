package session

import "crypto/rand"

const (
	roomCodeLen      = 8
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ValidRoomCode reports whether s is exactly 8 alphanumeric characters.
func ValidRoomCode(s string) bool {
	if len(s) != roomCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// NewRoomCode returns a random 8-character room code from an alphabet that
// avoids visually ambiguous characters. Uniqueness among live sessions is the
// registry's concern; codes may be reused after a session is destroyed.
func NewRoomCode() string {
	buf := make([]byte, roomCodeLen)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}
