// Package audiotest provides an in-memory channel engine for exercising
// the mixer without an output device.
package audiotest

import (
	"fmt"
	"time"

	"github.com/stemmix/stemmix/internal/audio"
)

// Engine implements audio.Engine with synthetic clips. Every channel call
// is recorded together with the lock epoch it ran in, so tests can assert
// that a batch of channel operations landed in a single lock window and
// that no mutation happened outside one.
type Engine struct {
	ClipDur  time.Duration // duration reported by loaded clips
	LoadErr  error         // when set, LoadClip fails with it
	AllocErr error         // when set, NewChannel fails with it

	Loaded   []string
	Channels []*Channel
	Closed   bool

	locked     bool
	epoch      int
	violations []string
}

// NewEngine returns an engine whose clips all report a 3s duration.
func NewEngine() *Engine {
	return &Engine{ClipDur: 3 * time.Second}
}

func (e *Engine) LoadClip(path string) (audio.Clip, error) {
	if e.LoadErr != nil {
		return nil, &audio.EngineError{Op: "load clip", Err: e.LoadErr}
	}
	e.Loaded = append(e.Loaded, path)
	return &Clip{path: path, dur: e.ClipDur}, nil
}

func (e *Engine) NewChannel(clip audio.Clip) (audio.Channel, error) {
	if e.locked {
		e.violations = append(e.violations, "NewChannel called with engine lock held")
	}
	if e.AllocErr != nil {
		return nil, &audio.EngineError{Op: "new channel", Err: e.AllocErr}
	}
	c, ok := clip.(*Clip)
	if !ok {
		return nil, &audio.EngineError{Op: "new channel", Err: fmt.Errorf("foreign clip %T", clip)}
	}
	ch := &Channel{eng: e, clip: c}
	e.Channels = append(e.Channels, ch)
	return ch, nil
}

func (e *Engine) Lock() {
	if e.locked {
		e.violations = append(e.violations, "Lock while already locked")
	}
	e.locked = true
	e.epoch++
}

func (e *Engine) Unlock() {
	if !e.locked {
		e.violations = append(e.violations, "Unlock without lock")
	}
	e.locked = false
}

func (e *Engine) Close() { e.Closed = true }

// Violations lists every locking-contract breach observed so far.
func (e *Engine) Violations() []string { return e.violations }

// ChannelFor returns the channel allocated for the clip loaded from
// path, or nil if none exists.
func (e *Engine) ChannelFor(path string) *Channel {
	for _, c := range e.Channels {
		if c.clip.path == path {
			return c
		}
	}
	return nil
}

// Clip is a synthetic decoded source.
type Clip struct {
	path string
	dur  time.Duration
}

func (c *Clip) Path() string            { return c.path }
func (c *Clip) Duration() time.Duration { return c.dur }

// Op is one recorded channel call and the lock epoch it ran in.
type Op struct {
	Name  string
	Epoch int
	Gain  float64 // gain in effect after the call
}

// Channel records operations instead of producing sound.
type Channel struct {
	eng  *Engine
	clip *Clip
	Ops  []Op

	gain    float64
	playing bool
	paused  bool
}

func (c *Channel) record(name string) {
	if !c.eng.locked {
		c.eng.violations = append(c.eng.violations,
			fmt.Sprintf("%s on %q outside engine lock", name, c.clip.path))
	}
	c.Ops = append(c.Ops, Op{Name: name, Epoch: c.eng.epoch, Gain: c.gain})
}

func (c *Channel) Play() {
	c.playing = true
	c.paused = false
	c.record("play")
}

func (c *Channel) Stop() {
	c.playing = false
	c.paused = false
	c.record("stop")
}

func (c *Channel) Pause() {
	if c.playing {
		c.paused = true
	}
	c.record("pause")
}

func (c *Channel) Resume() {
	if c.playing {
		c.paused = false
	}
	c.record("resume")
}

func (c *Channel) Busy() bool { return c.playing }

func (c *Channel) Paused() bool { return c.paused }

func (c *Channel) SetGain(gain float64) {
	c.gain = audio.ClampGain(gain)
	c.record("gain")
}

func (c *Channel) Gain() float64 { return c.gain }

func (c *Channel) Position() time.Duration { return 0 }

// LastOp returns the most recent call with the given name, or a zero Op.
func (c *Channel) LastOp(name string) Op {
	for i := len(c.Ops) - 1; i >= 0; i-- {
		if c.Ops[i].Name == name {
			return c.Ops[i]
		}
	}
	return Op{}
}

// CountOp returns how many times the named call was recorded.
func (c *Channel) CountOp(name string) int {
	n := 0
	for _, op := range c.Ops {
		if op.Name == name {
			n++
		}
	}
	return n
}
