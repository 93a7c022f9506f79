package session

import (
	"testing"
	"time"
)

func TestResolvedPositionRoundTrip(t *testing.T) {
	// A checkpoint resolved at its own LastUpdate must equal its position
	// exactly: zero elapsed time means zero drift.
	now := time.Now()
	state := PlaybackState{Position: 42.25, IsPlaying: true, Rate: 1, LastUpdate: now}
	if got := state.ResolvedPosition(now); got != 42.25 {
		t.Errorf("ResolvedPosition at LastUpdate = %v, want 42.25 exactly", got)
	}
}

func TestResolvedPositionWhilePlaying(t *testing.T) {
	base := time.Now()
	tests := []struct {
		name    string
		state   PlaybackState
		elapsed time.Duration
		want    float64
	}{
		{
			"one second at normal rate",
			PlaybackState{Position: 10, IsPlaying: true, Rate: 1, LastUpdate: base},
			time.Second, 11,
		},
		{
			"ten seconds at double rate",
			PlaybackState{Position: 5, IsPlaying: true, Rate: 2, LastUpdate: base},
			10 * time.Second, 25,
		},
		{
			"paused ignores elapsed time",
			PlaybackState{Position: 30, IsPlaying: false, Rate: 1, LastUpdate: base},
			time.Hour, 30,
		},
		{
			"clock skew before checkpoint clamps to zero",
			PlaybackState{Position: 7, IsPlaying: true, Rate: 1, LastUpdate: base},
			-5 * time.Second, 7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.ResolvedPosition(base.Add(tt.elapsed)); got != tt.want {
				t.Errorf("ResolvedPosition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolvedPositionMonotonic(t *testing.T) {
	base := time.Now()
	state := PlaybackState{Position: 3, IsPlaying: true, Rate: 1.5, LastUpdate: base}

	prev := state.ResolvedPosition(base)
	for step := time.Duration(0); step <= 10*time.Second; step += 250 * time.Millisecond {
		got := state.ResolvedPosition(base.Add(step))
		if got < prev {
			t.Fatalf("position regressed from %v to %v at +%v", prev, got, step)
		}
		prev = got
	}
}

func TestPlayPauseSeekCheckpoints(t *testing.T) {
	s := newSession("ABC12345", testLimits(), time.Now())

	state := s.Play("media-1", 10)
	if !state.IsPlaying || state.Position != 10 || state.MediaID != "media-1" {
		t.Errorf("after Play: %+v", state)
	}

	state = s.Seek(99)
	if !state.IsPlaying {
		t.Error("Seek must preserve the playing state")
	}
	if state.Position != 99 {
		t.Errorf("after Seek: position = %v, want 99", state.Position)
	}

	state = s.Pause(100)
	if state.IsPlaying || state.Position != 100 {
		t.Errorf("after Pause: %+v", state)
	}

	state = s.Seek(5)
	if state.IsPlaying {
		t.Error("Seek while paused must stay paused")
	}

	// Play without a media ID keeps the current selection.
	state = s.Play("", 0)
	if state.MediaID != "media-1" {
		t.Errorf("Play with empty media kept %q, want media-1", state.MediaID)
	}
}

func TestPlayStampsLastUpdate(t *testing.T) {
	s := newSession("ABC12345", testLimits(), time.Now())
	before := time.Now()
	state := s.Play("m", 0)
	after := time.Now()
	if state.LastUpdate.Before(before) || state.LastUpdate.After(after) {
		t.Errorf("LastUpdate %v outside [%v, %v]", state.LastUpdate, before, after)
	}
}
