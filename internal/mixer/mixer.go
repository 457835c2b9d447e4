// Package mixer plays a song's combined mix and its separated stems in
// lockstep. The combined mix already contains every stem, so at most one
// layer may be audible at a time: either the combined mix alone, or the
// stem set with per-stem mutes. The mixer computes the full set of gain
// changes every mute needs to keep that duality intact.
package mixer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stemmix/stemmix/internal/audio"
	"github.com/stemmix/stemmix/internal/logger"
)

// OriginalName is the reserved track name for the undivided full mix.
const OriginalName = "original"

// track binds one stem to its decoded clip and output channel. The gain
// currently applied lives on the channel; nominal is the volume the
// track returns to when unmuted.
type track struct {
	name    string
	clip    audio.Clip
	channel audio.Channel
	nominal float64
}

// TrackState is a read-only view of one track for display layers.
type TrackState struct {
	Name   string
	Muted  bool
	Volume float64 // nominal volume, survives muting
}

// Mixer owns the track set and the playback state machine. All methods
// are safe for concurrent use; every mutating call holds the mixer lock
// for its full duration, so readers never observe a half-applied mode
// switch, and issues its channel batch inside one engine lock window so
// no half-applied batch ever reaches the device.
type Mixer struct {
	mu  sync.RWMutex
	eng audio.Engine

	original *track
	stems    map[string]*track
	order    []string // stem insertion order, for display

	status  Status
	started bool
}

// New returns an empty mixer driving the given engine. The engine is
// owned by the mixer from here on and released by Close.
func New(eng audio.Engine) *Mixer {
	return &Mixer{eng: eng, stems: make(map[string]*track)}
}

// AddTrack allocates a channel for a named stem. The reserved name
// OriginalName designates the combined mix. New tracks get nominal
// volume 1.0 and a stopped channel already carrying the combined-mode
// gain, so the layer duality holds before the first Play. Tracks cannot
// be added once playback has started.
func (m *Mixer) AddTrack(name string, clip audio.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("add track %q: %w", name, ErrSessionStarted)
	}
	if m.lookupLocked(name) != nil {
		return fmt.Errorf("add track %q: %w", name, ErrDuplicateTrack)
	}

	ch, err := m.eng.NewChannel(clip)
	if err != nil {
		return fmt.Errorf("add track %q: %w", name, err)
	}

	t := &track{name: name, clip: clip, channel: ch, nominal: 1.0}
	gain := 0.0
	if name == OriginalName {
		m.original = t
		gain = t.nominal
	} else {
		m.stems[name] = t
		m.order = append(m.order, name)
	}
	m.eng.Lock()
	ch.SetGain(gain)
	m.eng.Unlock()

	logger.Info("added track",
		logger.String("track", name),
		logger.String("clip", clip.Path()))
	return nil
}

// lookupLocked resolves a name to its track, or nil when absent. This is
// the only place the reserved name is special-cased.
func (m *Mixer) lookupLocked(name string) *track {
	if name == OriginalName {
		return m.original
	}
	return m.stems[name]
}

// forEachLocked visits every track, the combined mix first.
func (m *Mixer) forEachLocked(fn func(*track)) {
	if m.original != nil {
		fn(m.original)
	}
	for _, name := range m.order {
		fn(m.stems[name])
	}
}

// Tracks lists track names in display order, the combined mix first.
func (m *Mixer) Tracks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.order)+1)
	if m.original != nil {
		names = append(names, OriginalName)
	}
	return append(names, m.order...)
}

// Status returns the current transport state.
func (m *Mixer) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Snapshot returns a consistent view of every track, the combined mix
// first. Display layers poll this instead of the per-name accessors so
// they can never interleave with a mode switch.
func (m *Mixer) Snapshot() []TrackState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]TrackState, 0, len(m.order)+1)
	m.forEachLocked(func(t *track) {
		out = append(out, TrackState{Name: t.name, Muted: m.mutedLocked(t), Volume: t.nominal})
	})
	return out
}

// IsMuted reports whether the named track contributes nothing audible.
func (m *Mixer) IsMuted(name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := m.lookupLocked(name)
	if t == nil {
		return false, fmt.Errorf("is muted %q: %w", name, ErrUnknownTrack)
	}
	return m.mutedLocked(t), nil
}

// mutedLocked implements the duality rule. The combined mix is muted iff
// its own gain is zero. While the combined mix is audible it stands in
// for every stem, so a stem counts as muted only when both its gain and
// the combined mix's gain are zero.
func (m *Mixer) mutedLocked(t *track) bool {
	if t == m.original {
		return t.channel.Gain() == 0
	}
	return t.channel.Gain() == 0 && m.originalGainLocked() == 0
}

func (m *Mixer) originalGainLocked() float64 {
	if m.original == nil {
		return 0
	}
	return m.original.channel.Gain()
}

// Mute silences the named track. Muting anything while the combined mix
// is audible first switches layers: the combined mix goes silent and
// every stem comes up at its nominal volume, so "mute vocals" from
// combined mode leaves everything but vocals audible.
func (m *Mixer) Mute(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.lookupLocked(name)
	if t == nil {
		return fmt.Errorf("mute %q: %w", name, ErrUnknownTrack)
	}
	m.muteLocked(t)
	return nil
}

// Unmute restores the named track to its nominal volume. Unmuting the
// last muted stem collapses the mixer back to combined mode, as does
// unmuting the combined mix itself.
func (m *Mixer) Unmute(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.lookupLocked(name)
	if t == nil {
		return fmt.Errorf("unmute %q: %w", name, ErrUnknownTrack)
	}
	m.unmuteLocked(t)
	return nil
}

// ToggleMute flips the named track between muted and unmuted in one
// atomic step.
func (m *Mixer) ToggleMute(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.lookupLocked(name)
	if t == nil {
		return fmt.Errorf("toggle mute %q: %w", name, ErrUnknownTrack)
	}
	if m.mutedLocked(t) {
		m.unmuteLocked(t)
	} else {
		m.muteLocked(t)
	}
	return nil
}

func (m *Mixer) muteLocked(t *track) {
	if m.mutedLocked(t) {
		logger.Warn("track already muted", logger.String("track", t.name))
		return
	}

	logger.Info("muting track", logger.String("track", t.name))
	m.eng.Lock()
	if m.originalGainLocked() > 0 {
		m.enterStemsLocked()
	}
	t.channel.SetGain(0)
	m.eng.Unlock()
	m.logGainsLocked()
}

func (m *Mixer) unmuteLocked(t *track) {
	if !m.mutedLocked(t) {
		logger.Warn("track already unmuted", logger.String("track", t.name))
		return
	}

	logger.Info("unmuting track", logger.String("track", t.name))
	m.eng.Lock()
	if t == m.original {
		m.enterCombinedLocked()
	} else {
		t.channel.SetGain(t.nominal)
		if m.original != nil && m.allStemsAudibleLocked() {
			m.enterCombinedLocked()
		}
	}
	m.eng.Unlock()
	m.logGainsLocked()
}

// enterStemsLocked silences the combined mix and raises every stem to
// its nominal volume. Caller holds the mixer and engine locks.
func (m *Mixer) enterStemsLocked() {
	m.original.channel.SetGain(0)
	for _, name := range m.order {
		s := m.stems[name]
		s.channel.SetGain(s.nominal)
	}
}

// enterCombinedLocked raises the combined mix to its nominal volume and
// silences every stem. Caller holds the mixer and engine locks.
func (m *Mixer) enterCombinedLocked() {
	m.original.channel.SetGain(m.original.nominal)
	for _, name := range m.order {
		m.stems[name].channel.SetGain(0)
	}
}

// allStemsAudibleLocked reports whether every stem carries non-zero gain.
func (m *Mixer) allStemsAudibleLocked() bool {
	for _, name := range m.order {
		if m.stems[name].channel.Gain() == 0 {
			return false
		}
	}
	return true
}

// SetVolume stores the nominal volume for the named track, clamped to
// [0, 1]. The value reaches the channel immediately only when the
// channel is already carrying audio; silenced channels stay at gain zero
// and pick the value up on the next unmute or mode switch.
func (m *Mixer) SetVolume(name string, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.lookupLocked(name)
	if t == nil {
		return fmt.Errorf("set volume %q: %w", name, ErrUnknownTrack)
	}
	m.setVolumeLocked(t, volume)
	return nil
}

// AdjustVolume nudges the nominal volume by delta, clamping like SetVolume.
func (m *Mixer) AdjustVolume(name string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.lookupLocked(name)
	if t == nil {
		return fmt.Errorf("adjust volume %q: %w", name, ErrUnknownTrack)
	}
	m.setVolumeLocked(t, t.nominal+delta)
	return nil
}

func (m *Mixer) setVolumeLocked(t *track, volume float64) {
	t.nominal = audio.ClampGain(volume)
	if t.channel.Gain() > 0 {
		m.eng.Lock()
		t.channel.SetGain(t.nominal)
		m.eng.Unlock()
	}
	logger.Info("set volume",
		logger.String("track", t.name),
		logger.Float64("volume", t.nominal))
}

// Volume returns the nominal volume for the named track.
func (m *Mixer) Volume(name string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := m.lookupLocked(name)
	if t == nil {
		return 0, fmt.Errorf("volume %q: %w", name, ErrUnknownTrack)
	}
	return t.nominal, nil
}

// Play starts every channel together from the beginning. A fresh start
// resets gains to the combined-mode default: the full mix audible, all
// stems silent. While Playing this is a no-op; from Paused it resumes,
// so a single toggle key can drive both edges.
func (m *Mixer) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.status {
	case Playing:
		logger.Warn("already playing")
		return
	case Paused:
		m.resumeLocked()
		return
	}

	m.started = true
	m.eng.Lock()
	if m.original != nil {
		m.enterCombinedLocked()
	}
	m.forEachLocked(func(t *track) { t.channel.Play() })
	m.eng.Unlock()
	m.status = Playing
	logger.Info("playback started")
}

// Pause suspends every channel. Only meaningful while Playing.
func (m *Mixer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != Playing {
		logger.Warn("pause ignored", logger.String("status", m.status.String()))
		return
	}
	m.eng.Lock()
	m.forEachLocked(func(t *track) { t.channel.Pause() })
	m.eng.Unlock()
	m.status = Paused
	logger.Info("playback paused")
}

// Resume continues playback after a Pause.
func (m *Mixer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != Paused {
		logger.Warn("resume ignored", logger.String("status", m.status.String()))
		return
	}
	m.resumeLocked()
}

func (m *Mixer) resumeLocked() {
	m.eng.Lock()
	m.forEachLocked(func(t *track) { t.channel.Resume() })
	m.eng.Unlock()
	m.status = Playing
	logger.Info("playback resumed")
}

// Stop halts every channel from any state. Mute and volume state is kept;
// the next Play starts over in combined mode.
func (m *Mixer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == Stopped {
		logger.Warn("already stopped")
		return
	}
	m.stopAllLocked()
	m.status = Stopped
	logger.Info("playback stopped")
}

func (m *Mixer) stopAllLocked() {
	m.eng.Lock()
	m.forEachLocked(func(t *track) { t.channel.Stop() })
	m.eng.Unlock()
}

// Rewind restarts every channel from the beginning as one batch, keeping
// every gain and the transport status: a paused mixer stays paused at
// position zero, a stopped one is left alone.
func (m *Mixer) Rewind() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == Stopped {
		logger.Warn("rewind ignored while stopped")
		return
	}
	m.eng.Lock()
	m.forEachLocked(func(t *track) { t.channel.Stop() })
	m.forEachLocked(func(t *track) { t.channel.Play() })
	if m.status == Paused {
		m.forEachLocked(func(t *track) { t.channel.Pause() })
	}
	m.eng.Unlock()
	logger.Info("rewound all tracks")
}

// Position reports the combined mix's elapsed playback time.
func (m *Mixer) Position() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.original == nil {
		return 0
	}
	m.eng.Lock()
	defer m.eng.Unlock()
	return m.original.channel.Position()
}

// Duration reports the combined mix's total length.
func (m *Mixer) Duration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.original == nil {
		return 0
	}
	return m.original.clip.Duration()
}

// Close stops playback and releases the output device. The mixer must
// not be used afterwards.
func (m *Mixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != Stopped {
		m.stopAllLocked()
		m.status = Stopped
	}
	m.eng.Close()
	logger.Info("mixer closed")
}

// logGainsLocked snapshots every channel gain at debug level.
func (m *Mixer) logGainsLocked() {
	var b strings.Builder
	m.forEachLocked(func(t *track) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%.2f", t.name, t.channel.Gain())
	})
	logger.Debug("channel gains", logger.String("gains", b.String()))
}
