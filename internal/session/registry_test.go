package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(Options{Limits: testLimits()}, zap.NewNop())
}

func TestCreateSessionAlreadyExists(t *testing.T) {
	r := newTestRegistry(t)
	if _, _, err := r.CreateSession("ROOMCODE", "conn-1", uuid.New(), "alice"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, _, err := r.CreateSession("ROOMCODE", "conn-2", uuid.New(), "bob"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second create: got %v, want ErrAlreadyExists", err)
	}
}

func TestCreateSessionInvalidCode(t *testing.T) {
	r := newTestRegistry(t)
	for _, code := range []string{"", "short", "waytoolongcode", "with spc!", "dash-one"} {
		if _, _, err := r.CreateSession(code, "conn-1", uuid.New(), "alice"); !errors.Is(err, ErrInvalidRoomCode) {
			t.Errorf("CreateSession(%q): got %v, want ErrInvalidRoomCode", code, err)
		}
	}
}

func TestDestroySessionIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateSession("ROOMCODE", "conn-1", uuid.New(), "alice")
	r.DestroySession("ROOMCODE")
	if r.Exists("ROOMCODE") {
		t.Error("session should be gone after destroy")
	}
	r.DestroySession("ROOMCODE") // no-op
	r.DestroySession("NEVERWAS") // no-op
}

// TestJoinLeaveScenario walks the canonical room lifecycle: create on first
// join, host carried by presence, destruction on last leave.
func TestJoinLeaveScenario(t *testing.T) {
	r := newTestRegistry(t)
	u1, u2 := uuid.New(), uuid.New()

	sess, p1, created, err := r.JoinOrCreate("ABC12345", "conn-1", u1, "u1")
	if err != nil || !created {
		t.Fatalf("first join: created=%v err=%v", created, err)
	}
	if !p1.IsHost {
		t.Error("u1 should be host")
	}
	if got := len(sess.Participants()); got != 1 {
		t.Errorf("roster size = %d, want 1", got)
	}

	_, p2, created, err := r.JoinOrCreate("ABC12345", "conn-2", u2, "u2")
	if err != nil || created {
		t.Fatalf("second join: created=%v err=%v", created, err)
	}
	if p2.IsHost {
		t.Error("u2 should not be host while u1 is present")
	}

	_, newHost, destroyed, err := r.Leave("ABC12345", "conn-1")
	if err != nil || destroyed {
		t.Fatalf("u1 leave: destroyed=%v err=%v", destroyed, err)
	}
	if newHost == nil || newHost.UserID != u2 {
		t.Fatalf("u2 should be promoted, got %+v", newHost)
	}

	_, _, destroyed, err = r.Leave("ABC12345", "conn-2")
	if err != nil || !destroyed {
		t.Fatalf("last leave: destroyed=%v err=%v", destroyed, err)
	}
	if r.Exists("ABC12345") {
		t.Error(`exists("ABC12345") should be false after last leave`)
	}
}

func TestLeaveUnknownRoomOrConnection(t *testing.T) {
	r := newTestRegistry(t)
	if _, _, _, err := r.Leave("NOSUCH00", "conn-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("leave unknown room: got %v, want ErrNotFound", err)
	}
	r.JoinOrCreate("ABC12345", "conn-1", uuid.New(), "alice")
	if _, _, _, err := r.Leave("ABC12345", "conn-9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("leave unknown conn: got %v, want ErrNotFound", err)
	}
}

// TestJoinOrCreateRace drives concurrent create-or-join calls at one unseen
// room code: exactly one caller creates, and all callers end up participants
// of the same single session.
func TestJoinOrCreateRace(t *testing.T) {
	r := newTestRegistry(t)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
		sessions = make(map[*Session]struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, _, created, err := r.JoinOrCreate("RACE0001", fmt.Sprintf("conn-%d", i), uuid.New(), fmt.Sprintf("user-%d", i))
			if err != nil {
				t.Errorf("JoinOrCreate: %v", err)
				return
			}
			mu.Lock()
			if created {
				creates++
			}
			sessions[sess] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if creates != 1 {
		t.Errorf("creates = %d, want exactly 1", creates)
	}
	if len(sessions) != 1 {
		t.Errorf("distinct sessions observed = %d, want 1", len(sessions))
	}
	sess, err := r.GetSession("RACE0001")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got := sess.Len(); got != callers {
		t.Errorf("participants = %d, want %d", got, callers)
	}
	if got := len(r.ListRoomCodes()); got != 1 {
		t.Errorf("live rooms = %d, want 1", got)
	}
}

// TestRegistryLivenessInvariant randomly interleaves joins and leaves across
// several room codes, asserting after every step that a session is registered
// iff it has at least one participant.
func TestRegistryLivenessInvariant(t *testing.T) {
	r := newTestRegistry(t)
	rng := rand.New(rand.NewSource(1))

	codes := []string{"ROOM0001", "ROOM0002", "ROOM0003", "ROOM0004"}
	// room code -> set of conn IDs currently joined, mirrored by the test
	joined := make(map[string]map[string]bool)
	for _, c := range codes {
		joined[c] = make(map[string]bool)
	}

	nextConn := 0
	for step := 0; step < 2000; step++ {
		code := codes[rng.Intn(len(codes))]
		if rng.Intn(2) == 0 || len(joined[code]) == 0 {
			connID := fmt.Sprintf("conn-%d", nextConn)
			nextConn++
			if _, _, _, err := r.JoinOrCreate(code, connID, uuid.New(), "u"); err != nil {
				t.Fatalf("step %d: join %s: %v", step, code, err)
			}
			joined[code][connID] = true
		} else {
			var connID string
			for id := range joined[code] {
				connID = id
				break
			}
			if _, _, _, err := r.Leave(code, connID); err != nil {
				t.Fatalf("step %d: leave %s: %v", step, code, err)
			}
			delete(joined[code], connID)
		}

		for _, c := range codes {
			want := len(joined[c]) > 0
			if got := r.Exists(c); got != want {
				t.Fatalf("step %d: exists(%s) = %v, want %v (participants=%d)",
					step, c, got, want, len(joined[c]))
			}
			if want {
				sess, err := r.GetSession(c)
				if err != nil {
					t.Fatalf("step %d: GetSession(%s): %v", step, c, err)
				}
				if sess.Len() != len(joined[c]) {
					t.Fatalf("step %d: %s has %d participants, want %d",
						step, c, sess.Len(), len(joined[c]))
				}
			}
		}
	}
}

func TestDestroyGraceWindow(t *testing.T) {
	r := NewRegistry(Options{Limits: testLimits(), DestroyGrace: 50 * time.Millisecond}, zap.NewNop())
	u := uuid.New()

	r.JoinOrCreate("GRACE001", "conn-1", u, "alice")
	_, _, destroyed, err := r.Leave("GRACE001", "conn-1")
	if err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if destroyed {
		t.Fatal("destruction should be deferred during the grace window")
	}

	// Rejoin within the window cancels the deferred destroy.
	if _, _, created, err := r.JoinOrCreate("GRACE001", "conn-2", u, "alice"); err != nil || created {
		t.Fatalf("rejoin: created=%v err=%v", created, err)
	}
	time.Sleep(120 * time.Millisecond)
	if !r.Exists("GRACE001") {
		t.Error("rejoined session must survive the grace timer")
	}

	// Leaving again with no rejoin lets the timer fire.
	r.Leave("GRACE001", "conn-2")
	time.Sleep(120 * time.Millisecond)
	if r.Exists("GRACE001") {
		t.Error("emptied session should be destroyed after the grace window")
	}
}
