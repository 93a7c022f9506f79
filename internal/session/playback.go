package session

import "time"

// PlaybackState is the authoritative playback checkpoint for a room. Position
// is only meaningful relative to LastUpdate: while playing, the current
// position is Position plus elapsed wall-clock time scaled by Rate. The
// checkpoint itself is what gets broadcast; receivers resolve it locally, so
// sync accuracy does not depend on message latency.
type PlaybackState struct {
	MediaID    string    `json:"media_id,omitempty"`
	Position   float64   `json:"position"`
	IsPlaying  bool      `json:"is_playing"`
	Rate       float64   `json:"rate"`
	LastUpdate time.Time `json:"last_update"`
}

// ResolvedPosition returns the playback position at the given instant. Paused
// checkpoints resolve to Position exactly; playing checkpoints advance by
// elapsed time times Rate. Elapsed time before LastUpdate is treated as zero
// so clock skew cannot move playback backwards.
func (p PlaybackState) ResolvedPosition(now time.Time) float64 {
	if !p.IsPlaying {
		return p.Position
	}
	elapsed := now.Sub(p.LastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return p.Position + elapsed*p.Rate
}

// play replaces the checkpoint with a playing state at the given position.
// An empty mediaID keeps whatever media was already selected.
func (p *PlaybackState) play(mediaID string, at float64, now time.Time) {
	if mediaID != "" {
		p.MediaID = mediaID
	}
	p.Position = at
	p.IsPlaying = true
	p.LastUpdate = now
}

// pause replaces the checkpoint with a paused state at the given position.
func (p *PlaybackState) pause(at float64, now time.Time) {
	p.Position = at
	p.IsPlaying = false
	p.LastUpdate = now
}

// seek moves the checkpoint to the given position, preserving play/pause.
func (p *PlaybackState) seek(to float64, now time.Time) {
	p.Position = to
	p.LastUpdate = now
}
