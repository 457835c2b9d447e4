// Package audio abstracts the output device behind a small channel engine.
// The mixer drives Channels through the Engine interface and never touches
// the speaker directly, so tests can substitute an in-memory engine.
package audio

import "time"

// Clip is one fully decoded audio source. Decoding happens up front so
// playback never stalls on I/O and restarts are instant.
type Clip interface {
	Path() string
	Duration() time.Duration
}

// Channel is one output voice, bound to a single Clip for its lifetime.
// Channels are not safe for concurrent use; the owning mixer serializes
// all access. Play, Stop, Pause, Resume, SetGain and Position must be
// called with the engine lock held so a batch of changes lands between
// device buffers as one unit. Gain and Busy read mixer-owned state and
// need only the caller's own synchronization.
type Channel interface {
	// Play restarts the clip from the beginning at the current gain.
	Play()
	// Stop halts playback and resets the position to zero.
	Stop()
	Pause()
	Resume()
	// Busy reports whether the channel was started and has neither been
	// stopped nor played through. Paused channels are busy.
	Busy() bool
	// SetGain sets the instantaneous linear gain, clamped to [0, 1].
	// It never touches the nominal volume the mixer keeps per track.
	SetGain(gain float64)
	Gain() float64
	Position() time.Duration
}

// Engine owns the output device and allocates one Channel per track.
type Engine interface {
	// LoadClip decodes the file at path fully into memory.
	LoadClip(path string) (Clip, error)
	// NewChannel binds clip to a fresh output channel, stopped and
	// silent. Must not be called with the engine lock held.
	NewChannel(clip Clip) (Channel, error)
	// Lock suspends rendering between device buffers so a batch of
	// channel calls applies atomically. Unlock resumes it.
	Lock()
	Unlock()
	// Close stops every channel and releases the device.
	Close()
}

// ClampGain bounds a gain or volume value to the valid [0, 1] range.
// Out-of-range values are clamped, never rejected.
func ClampGain(g float64) float64 {
	if g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}
