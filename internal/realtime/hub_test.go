package realtime

import (
	"testing"

	"go.uber.org/zap"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub(zap.NewNop())
	a, b, c := newFakeConn("a"), newFakeConn("b"), newFakeConn("c")
	h.Join("ROOM0001", a)
	h.Join("ROOM0001", b)
	h.Join("ROOM0002", c)

	h.Broadcast("ROOM0001", "ping", nil)
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("room members got %d/%d events, want 1/1", len(a.events), len(b.events))
	}
	if len(c.events) != 0 {
		t.Error("broadcast leaked into another room")
	}

	h.BroadcastExcept("ROOM0001", a.ID(), "ping", nil)
	if len(a.events) != 1 {
		t.Error("excluded connection received the broadcast")
	}
	if len(b.events) != 2 {
		t.Errorf("b got %d events, want 2", len(b.events))
	}
}

func TestHubLeaveAndDrop(t *testing.T) {
	h := NewHub(zap.NewNop())
	a, b := newFakeConn("a"), newFakeConn("b")
	h.Join("ROOM0001", a)
	h.Join("ROOM0001", b)

	h.Leave("ROOM0001", a.ID())
	h.Broadcast("ROOM0001", "ping", nil)
	if len(a.events) != 0 {
		t.Error("departed connection still receiving")
	}
	if h.RoomSize("ROOM0001") != 1 {
		t.Errorf("RoomSize = %d, want 1", h.RoomSize("ROOM0001"))
	}

	h.DropRoom("ROOM0001")
	if h.RoomSize("ROOM0001") != 0 {
		t.Error("DropRoom left members behind")
	}
	h.Broadcast("ROOM0001", "ping", nil) // no-op, must not panic

	// Leave on empty/unknown rooms is a no-op.
	h.Leave("ROOM0001", b.ID())
	h.Leave("NEVERWAS", "conn-x")
}
