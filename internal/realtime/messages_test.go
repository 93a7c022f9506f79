package realtime

import (
	"testing"

	"github.com/google/uuid"
)

func TestJoinPayloadValidate(t *testing.T) {
	uid := uuid.NewString()
	tests := []struct {
		name    string
		payload JoinPayload
		wantErr bool
	}{
		{"valid", JoinPayload{RoomCode: "ABC12345", UserID: uid}, false},
		{"short code", JoinPayload{RoomCode: "ABC", UserID: uid}, true},
		{"long code", JoinPayload{RoomCode: "ABC123456", UserID: uid}, true},
		{"symbols in code", JoinPayload{RoomCode: "ABC-1234", UserID: uid}, true},
		{"empty user", JoinPayload{RoomCode: "ABC12345", UserID: ""}, true},
		{"non-uuid user", JoinPayload{RoomCode: "ABC12345", UserID: "u1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.payload.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueueAddPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload QueueAddPayload
		wantErr bool
	}{
		{"tail", QueueAddPayload{URL: "https://cdn.example/a.mp4", Position: "tail"}, false},
		{"head", QueueAddPayload{URL: "https://cdn.example/a.mp4", Position: "head"}, false},
		{"default position", QueueAddPayload{URL: "https://cdn.example/a.mp4"}, false},
		{"bad position", QueueAddPayload{URL: "https://cdn.example/a.mp4", Position: "middle"}, true},
		{"missing url", QueueAddPayload{Position: "tail"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.payload.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueueAddPayloadPosition(t *testing.T) {
	if got := (QueueAddPayload{Position: "head"}).queuePosition(); got != "head" {
		t.Errorf("queuePosition() = %v", got)
	}
	// Empty defaults to tail.
	if got := (QueueAddPayload{}).queuePosition(); got != "tail" {
		t.Errorf("queuePosition() = %v, want tail", got)
	}
}

func TestQueueRemovePayloadValidate(t *testing.T) {
	if err := (QueueRemovePayload{EntryID: uuid.NewString()}).validate(); err != nil {
		t.Errorf("valid entry id rejected: %v", err)
	}
	if err := (QueueRemovePayload{EntryID: "42"}).validate(); err == nil {
		t.Error("non-uuid entry id accepted")
	}
}

func TestPlaybackPayloadValidate(t *testing.T) {
	if err := (PlaybackPayload{Position: 0}).validate(); err != nil {
		t.Errorf("zero position rejected: %v", err)
	}
	if err := (PlaybackPayload{Position: 3600.5}).validate(); err != nil {
		t.Errorf("positive position rejected: %v", err)
	}
	if err := (PlaybackPayload{Position: -0.01}).validate(); err == nil {
		t.Error("negative position accepted")
	}
}

func TestChatPayloadValidate(t *testing.T) {
	if err := (ChatPayload{Content: "hi"}).validate(); err != nil {
		t.Errorf("valid chat rejected: %v", err)
	}
	if err := (ChatPayload{}).validate(); err == nil {
		t.Error("empty chat accepted at parse boundary")
	}
}
