package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// SpeakerEngine renders channels through the beep speaker. One engine
// owns the output device for the life of the process.
type SpeakerEngine struct {
	rate    beep.SampleRate
	quality int
	ffmpeg  string
}

// NewSpeakerEngine opens the output device at the given rate. quality is
// the resampler quality used when a clip's native rate differs from the
// device rate; ffmpegBin is the binary used for fallback decoding.
func NewSpeakerEngine(sampleRate int, buffer time.Duration, quality int, ffmpegBin string) (*SpeakerEngine, error) {
	rate := beep.SampleRate(sampleRate)
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, &EngineError{Op: "speaker init", Err: err}
	}
	return &SpeakerEngine{rate: rate, quality: quality, ffmpeg: ffmpegBin}, nil
}

func (e *SpeakerEngine) LoadClip(path string) (Clip, error) {
	c, err := loadClip(path, e.ffmpeg)
	if err != nil {
		return nil, &EngineError{Op: "load clip", Err: err}
	}
	return c, nil
}

// NewChannel registers a silent, stopped voice for clip with the speaker.
// The voice stays registered until Close; starting and stopping toggle
// its control node rather than re-registering it, which is what keeps
// restarts free of allocation and device round-trips.
func (e *SpeakerEngine) NewChannel(clip Clip) (Channel, error) {
	c, ok := clip.(*bufferedClip)
	if !ok {
		return nil, &EngineError{Op: "new channel", Err: fmt.Errorf("clip %T not loaded by this engine", clip)}
	}

	src := c.streamer()
	ch := &speakerChannel{src: src, clipRate: c.format.SampleRate}
	ch.vol = &effects.Volume{Streamer: sustain{src}, Base: 2, Silent: true}
	ch.ctrl = &beep.Ctrl{
		Streamer: beep.Resample(e.quality, c.format.SampleRate, e.rate, ch.vol),
		Paused:   true,
	}
	speaker.Play(ch.ctrl)
	return ch, nil
}

func (e *SpeakerEngine) Lock() { speaker.Lock() }

func (e *SpeakerEngine) Unlock() { speaker.Unlock() }

func (e *SpeakerEngine) Close() {
	speaker.Clear()
	speaker.Close()
}

// speakerChannel is one voice: decoded samples, a gain stage and a pause
// control, mixed by the speaker with every other voice.
type speakerChannel struct {
	src      beep.StreamSeeker
	clipRate beep.SampleRate
	vol      *effects.Volume
	ctrl     *beep.Ctrl
	gain     float64
	playing  bool
}

func (c *speakerChannel) Play() {
	_ = c.src.Seek(0)
	c.ctrl.Paused = false
	c.playing = true
}

func (c *speakerChannel) Stop() {
	c.ctrl.Paused = true
	_ = c.src.Seek(0)
	c.playing = false
}

func (c *speakerChannel) Pause() {
	if c.playing {
		c.ctrl.Paused = true
	}
}

func (c *speakerChannel) Resume() {
	if c.playing {
		c.ctrl.Paused = false
	}
}

func (c *speakerChannel) Busy() bool {
	return c.playing && c.src.Position() < c.src.Len()
}

func (c *speakerChannel) SetGain(gain float64) {
	c.gain = ClampGain(gain)
	c.vol.Volume, c.vol.Silent = volumeFor(c.gain)
}

func (c *speakerChannel) Gain() float64 { return c.gain }

func (c *speakerChannel) Position() time.Duration {
	return c.clipRate.D(c.src.Position())
}

// volumeFor converts a linear gain to the exponent the gain stage wants.
// Zero gain has no finite exponent and maps to the silent flag instead.
func volumeFor(gain float64) (volume float64, silent bool) {
	if gain <= 0 {
		return 0, true
	}
	return math.Log2(gain), false
}

// sustain pads a drained streamer with silence instead of reporting it
// finished, so the speaker never evicts the voice and a later Play can
// rewind it.
type sustain struct {
	s beep.Streamer
}

func (p sustain) Stream(samples [][2]float64) (int, bool) {
	n, _ := p.s.Stream(samples)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (p sustain) Err() error { return p.s.Err() }
