package mixer

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stemmix/stemmix/internal/audio"
	"github.com/stemmix/stemmix/internal/audio/audiotest"
)

// newTestMixer builds a mixer over the mock engine with one track per
// name, loaded from "<name>.wav".
func newTestMixer(t *testing.T, names ...string) (*Mixer, *audiotest.Engine) {
	t.Helper()
	eng := audiotest.NewEngine()
	m := New(eng)
	for _, name := range names {
		clip, err := eng.LoadClip(name + ".wav")
		if err != nil {
			t.Fatalf("LoadClip(%s): %v", name, err)
		}
		if err := m.AddTrack(name, clip); err != nil {
			t.Fatalf("AddTrack(%s): %v", name, err)
		}
	}
	return m, eng
}

func gainOf(t *testing.T, eng *audiotest.Engine, name string) float64 {
	t.Helper()
	ch := eng.ChannelFor(name + ".wav")
	if ch == nil {
		t.Fatalf("no channel for %s", name)
	}
	return ch.Gain()
}

// checkDuality fails unless at most one layer is audible: whenever the
// combined mix carries gain, every stem must be silent.
func checkDuality(t *testing.T, m *Mixer, eng *audiotest.Engine, stems ...string) {
	t.Helper()
	origGain := gainOf(t, eng, OriginalName)
	for _, s := range stems {
		stemGain := gainOf(t, eng, s)
		if origGain > 0 && stemGain > 0 {
			t.Errorf("duality broken: combined mix at %v and stem %s at %v", origGain, s, stemGain)
		}
		muted, err := m.IsMuted(s)
		if err != nil {
			t.Fatalf("IsMuted(%s): %v", s, err)
		}
		if origGain == 0 && muted != (stemGain == 0) {
			t.Errorf("stem %s: muted=%v but gain=%v with combined mix silent", s, muted, stemGain)
		}
	}
}

// --- Construction ---

func TestAddTrackDuplicate(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")

	clip, _ := eng.LoadClip("vocals2.wav")
	if err := m.AddTrack("vocals", clip); !errors.Is(err, ErrDuplicateTrack) {
		t.Errorf("duplicate stem err = %v, want ErrDuplicateTrack", err)
	}
	if err := m.AddTrack("original", clip); !errors.Is(err, ErrDuplicateTrack) {
		t.Errorf("duplicate original err = %v, want ErrDuplicateTrack", err)
	}
}

func TestAddTrackAfterPlay(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()

	clip, _ := eng.LoadClip("late.wav")
	if err := m.AddTrack("late", clip); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("err = %v, want ErrSessionStarted", err)
	}
	// Membership stays fixed even after a stop: the set lives for the session.
	m.Stop()
	if err := m.AddTrack("late", clip); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("err after stop = %v, want ErrSessionStarted", err)
	}
}

func TestAddTrackEngineFailure(t *testing.T) {
	eng := audiotest.NewEngine()
	m := New(eng)
	clip, _ := eng.LoadClip("original.wav")

	eng.AllocErr = errors.New("out of voices")
	err := m.AddTrack("original", clip)
	var ee *audio.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want an EngineError", err)
	}
	if got := m.Tracks(); len(got) != 0 {
		t.Errorf("failed add left tracks behind: %v", got)
	}
}

func TestTracksOrderOriginalFirst(t *testing.T) {
	// Stems added before the combined mix must still list after it.
	m, _ := newTestMixer(t, "vocals", "drums", "original", "bass")

	want := []string{"original", "vocals", "drums", "bass"}
	got := m.Tracks()
	if len(got) != len(want) {
		t.Fatalf("Tracks() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tracks()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInitialState(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")

	if m.Status() != Stopped {
		t.Errorf("Status = %v, want Stopped", m.Status())
	}
	// Combined-mode default from construction: original carries gain,
	// stems are silent but not considered muted.
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain = %v, want 1.0", g)
	}
	if g := gainOf(t, eng, "vocals"); g != 0 {
		t.Errorf("vocals gain = %v, want 0", g)
	}
	for _, name := range []string{"original", "vocals", "drums"} {
		if muted, _ := m.IsMuted(name); muted {
			t.Errorf("IsMuted(%s) = true before any mute call", name)
		}
		if v, _ := m.Volume(name); v != 1.0 {
			t.Errorf("Volume(%s) = %v, want 1.0", name, v)
		}
	}
	checkDuality(t, m, eng, "vocals", "drums")
}

// --- Unknown tracks ---

func TestUnknownTrack(t *testing.T) {
	m, _ := newTestMixer(t, "original", "vocals")

	ops := map[string]func() error{
		"Mute":         func() error { return m.Mute("nope") },
		"Unmute":       func() error { return m.Unmute("nope") },
		"ToggleMute":   func() error { return m.ToggleMute("nope") },
		"SetVolume":    func() error { return m.SetVolume("nope", 0.5) },
		"AdjustVolume": func() error { return m.AdjustVolume("nope", 0.1) },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrUnknownTrack) {
			t.Errorf("%s: err = %v, want ErrUnknownTrack", name, err)
		}
	}
	if _, err := m.IsMuted("nope"); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("IsMuted: err = %v, want ErrUnknownTrack", err)
	}
	if _, err := m.Volume("nope"); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("Volume: err = %v, want ErrUnknownTrack", err)
	}
}

// --- Mute state machine ---

func TestMuteStemFromCombinedSwitchesLayers(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums", "bass")
	m.Play()

	if err := m.Mute("vocals"); err != nil {
		t.Fatal(err)
	}

	if g := gainOf(t, eng, "original"); g != 0 {
		t.Errorf("original gain = %v, want 0 after layer switch", g)
	}
	if g := gainOf(t, eng, "vocals"); g != 0 {
		t.Errorf("vocals gain = %v, want 0", g)
	}
	for _, s := range []string{"drums", "bass"} {
		if g := gainOf(t, eng, s); g != 1.0 {
			t.Errorf("%s gain = %v, want nominal 1.0", s, g)
		}
	}
	if muted, _ := m.IsMuted("vocals"); !muted {
		t.Error("IsMuted(vocals) = false, want true")
	}
	if muted, _ := m.IsMuted("drums"); muted {
		t.Error("IsMuted(drums) = true, want false")
	}
	if muted, _ := m.IsMuted("original"); !muted {
		t.Error("IsMuted(original) = false, want true")
	}
	checkDuality(t, m, eng, "vocals", "drums", "bass")
}

func TestMuteOriginalSwitchesToStems(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	if err := m.Mute("original"); err != nil {
		t.Fatal(err)
	}

	if g := gainOf(t, eng, "original"); g != 0 {
		t.Errorf("original gain = %v, want 0", g)
	}
	for _, s := range []string{"vocals", "drums"} {
		if g := gainOf(t, eng, s); g != 1.0 {
			t.Errorf("%s gain = %v, want 1.0", s, g)
		}
		if muted, _ := m.IsMuted(s); muted {
			t.Errorf("IsMuted(%s) = true, want false", s)
		}
	}
}

func TestMuteIdempotent(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	if err := m.Mute("vocals"); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()
	vocalOps := eng.ChannelFor("vocals.wav").CountOp("gain")

	if err := m.Mute("vocals"); err != nil {
		t.Fatal(err)
	}
	after := m.Snapshot()

	for i := range before {
		if before[i] != after[i] {
			t.Errorf("second Mute changed state: %+v -> %+v", before[i], after[i])
		}
	}
	if got := eng.ChannelFor("vocals.wav").CountOp("gain"); got != vocalOps {
		t.Errorf("redundant Mute touched the channel: %d gain ops, want %d", got, vocalOps)
	}
}

func TestUnmuteIdempotent(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()

	before := m.Snapshot()
	gainOps := eng.ChannelFor("vocals.wav").CountOp("gain")
	if err := m.Unmute("vocals"); err != nil {
		t.Fatal(err)
	}
	after := m.Snapshot()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("redundant Unmute changed state: %+v -> %+v", before[i], after[i])
		}
	}
	if got := eng.ChannelFor("vocals.wav").CountOp("gain"); got != gainOps {
		t.Errorf("redundant Unmute touched the channel: %d gain ops, want %d", got, gainOps)
	}
}

func TestUnmuteCollapsesToCombined(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums", "bass")
	m.Play()

	if err := m.Mute("vocals"); err != nil {
		t.Fatal(err)
	}
	if err := m.Unmute("vocals"); err != nil {
		t.Fatal(err)
	}

	// Back to the simplest valid state: combined mix audible, stems silent.
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain = %v, want 1.0", g)
	}
	for _, s := range []string{"vocals", "drums", "bass"} {
		if g := gainOf(t, eng, s); g != 0 {
			t.Errorf("%s gain = %v, want 0", s, g)
		}
	}
	checkDuality(t, m, eng, "vocals", "drums", "bass")
}

func TestUnmuteStemNoCollapseWhileOthersMuted(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	m.Mute("vocals") // layer switch, vocals muted
	m.Mute("drums")  // drums muted too
	if err := m.Unmute("vocals"); err != nil {
		t.Fatal(err)
	}

	// Drums still muted, so the mixer must stay in stems mode.
	if g := gainOf(t, eng, "original"); g != 0 {
		t.Errorf("original gain = %v, want 0 (no collapse yet)", g)
	}
	if g := gainOf(t, eng, "vocals"); g != 1.0 {
		t.Errorf("vocals gain = %v, want 1.0", g)
	}
	if muted, _ := m.IsMuted("drums"); !muted {
		t.Error("IsMuted(drums) = false, want true")
	}

	// Unmuting the last muted stem collapses back.
	if err := m.Unmute("drums"); err != nil {
		t.Fatal(err)
	}
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain after collapse = %v, want 1.0", g)
	}
	checkDuality(t, m, eng, "vocals", "drums")
}

func TestUnmuteOriginalCollapses(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	m.Mute("vocals") // stems mode, vocals muted
	if err := m.Unmute("original"); err != nil {
		t.Fatal(err)
	}

	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain = %v, want 1.0", g)
	}
	for _, s := range []string{"vocals", "drums"} {
		if g := gainOf(t, eng, s); g != 0 {
			t.Errorf("%s gain = %v, want 0", s, g)
		}
	}
	checkDuality(t, m, eng, "vocals", "drums")
}

func TestToggleMute(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	if err := m.ToggleMute("vocals"); err != nil {
		t.Fatal(err)
	}
	if muted, _ := m.IsMuted("vocals"); !muted {
		t.Error("first toggle should mute vocals")
	}
	if muted, _ := m.IsMuted("drums"); muted {
		t.Error("layer switch should leave drums audible")
	}

	if err := m.ToggleMute("vocals"); err != nil {
		t.Fatal(err)
	}
	// All stems audible again: collapsed to combined mode.
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain = %v, want 1.0 after collapse", g)
	}
	if muted, _ := m.IsMuted("vocals"); muted {
		t.Error("second toggle should unmute vocals")
	}
}

// --- Duality across arbitrary sequences ---

func TestDualityAcrossRandomSequences(t *testing.T) {
	stems := []string{"a", "b", "c"}
	m, eng := newTestMixer(t, "original", "a", "b", "c")
	m.Play()

	names := append([]string{OriginalName}, stems...)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 400; i++ {
		name := names[rng.Intn(len(names))]
		var err error
		switch rng.Intn(3) {
		case 0:
			err = m.Mute(name)
		case 1:
			err = m.Unmute(name)
		default:
			err = m.ToggleMute(name)
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		checkDuality(t, m, eng, stems...)
		if t.Failed() {
			t.Fatalf("duality broken at step %d", i)
		}
	}
	if v := eng.Violations(); len(v) != 0 {
		t.Errorf("locking violations: %v", v)
	}
}

// --- Volume ---

func TestVolumeClamp(t *testing.T) {
	m, _ := newTestMixer(t, "original", "vocals")

	if err := m.SetVolume("vocals", 1.7); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Volume("vocals"); v != 1.0 {
		t.Errorf("Volume after SetVolume(1.7) = %v, want 1.0", v)
	}
	if err := m.SetVolume("vocals", -0.3); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Volume("vocals"); v != 0.0 {
		t.Errorf("Volume after SetVolume(-0.3) = %v, want 0.0", v)
	}
}

func TestVolumeSurvivesMuteCycles(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	if err := m.SetVolume("vocals", 0.7); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		m.ToggleMute("vocals")
	}
	if v, _ := m.Volume("vocals"); v != 0.7 {
		t.Errorf("Volume drifted to %v after toggle cycles, want 0.7", v)
	}

	// Leave vocals audible in stems mode and confirm the gain matches.
	m.Mute("drums")
	if g := gainOf(t, eng, "vocals"); g != 0.7 {
		t.Errorf("vocals gain = %v, want nominal 0.7", g)
	}
}

func TestSetVolumeWhileMutedIsDeferred(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Mute("vocals") // stems mode, vocals muted

	if err := m.SetVolume("vocals", 0.4); err != nil {
		t.Fatal(err)
	}
	if g := gainOf(t, eng, "vocals"); g != 0 {
		t.Errorf("muted channel gain = %v, want 0", g)
	}
	if v, _ := m.Volume("vocals"); v != 0.4 {
		t.Errorf("nominal = %v, want 0.4", v)
	}

	m.Unmute("vocals")
	// All stems audible triggers the collapse, so check the nominal took
	// hold by switching back to stems mode.
	m.Mute("drums")
	if g := gainOf(t, eng, "vocals"); g != 0.4 {
		t.Errorf("vocals gain after unmute = %v, want 0.4", g)
	}
}

func TestSetVolumeAudibleStemApplies(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Mute("vocals") // stems mode, drums audible

	if err := m.SetVolume("drums", 0.3); err != nil {
		t.Fatal(err)
	}
	if g := gainOf(t, eng, "drums"); g != 0.3 {
		t.Errorf("drums gain = %v, want 0.3 immediately", g)
	}
}

func TestSetVolumeStemInCombinedStoredOnly(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play() // combined mode

	if err := m.SetVolume("vocals", 0.5); err != nil {
		t.Fatal(err)
	}
	// The combined mix is audible; raising the stem's channel would make
	// both layers heard at once.
	if g := gainOf(t, eng, "vocals"); g != 0 {
		t.Errorf("vocals gain = %v, want 0 while combined mix plays", g)
	}
	checkDuality(t, m, eng, "vocals", "drums")

	// The stored nominal surfaces on the next layer switch.
	m.Mute("drums")
	if g := gainOf(t, eng, "vocals"); g != 0.5 {
		t.Errorf("vocals gain after layer switch = %v, want 0.5", g)
	}
}

func TestSetVolumeOriginalApplies(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()

	if err := m.SetVolume("original", 0.6); err != nil {
		t.Fatal(err)
	}
	if g := gainOf(t, eng, "original"); g != 0.6 {
		t.Errorf("original gain = %v, want 0.6", g)
	}
}

func TestAdjustVolume(t *testing.T) {
	m, _ := newTestMixer(t, "original", "vocals")

	if err := m.AdjustVolume("vocals", -0.25); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Volume("vocals"); v != 0.75 {
		t.Errorf("Volume = %v, want 0.75", v)
	}
	if err := m.AdjustVolume("vocals", 0.5); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Volume("vocals"); v != 1.0 {
		t.Errorf("Volume = %v, want clamped 1.0", v)
	}
}

// --- Transport ---

func TestPlayStartsAllTogether(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()

	if m.Status() != Playing {
		t.Fatalf("Status = %v, want Playing", m.Status())
	}
	epoch := eng.ChannelFor("original.wav").LastOp("play").Epoch
	if epoch == 0 {
		t.Fatal("original never started")
	}
	for _, name := range []string{"vocals.wav", "drums.wav"} {
		op := eng.ChannelFor(name).LastOp("play")
		if op.Epoch != epoch {
			t.Errorf("%s started in epoch %d, want %d (one batch)", name, op.Epoch, epoch)
		}
	}
	// Fresh start presents the combined-mode default.
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain = %v, want 1.0", g)
	}
	if g := gainOf(t, eng, "vocals"); g != 0 {
		t.Errorf("vocals gain = %v, want 0", g)
	}
}

func TestPlayWhilePlayingIsNoop(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()

	plays := eng.ChannelFor("original.wav").CountOp("play")
	m.Play()
	if got := eng.ChannelFor("original.wav").CountOp("play"); got != plays {
		t.Errorf("second Play restarted channels: %d play ops, want %d", got, plays)
	}
}

func TestPlayFromPausedResumes(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Mute("vocals") // stems mode
	m.Pause()

	m.Play()

	if m.Status() != Playing {
		t.Errorf("Status = %v, want Playing", m.Status())
	}
	if got := eng.ChannelFor("original.wav").CountOp("play"); got != 1 {
		t.Errorf("Play from Paused restarted channels: %d play ops, want 1", got)
	}
	// Resuming must not reset the layer state.
	if g := gainOf(t, eng, "original"); g != 0 {
		t.Errorf("original gain = %v, want 0 (stems mode preserved)", g)
	}
	if g := gainOf(t, eng, "drums"); g != 1.0 {
		t.Errorf("drums gain = %v, want 1.0", g)
	}
}

func TestPauseResume(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()
	m.Pause()

	if m.Status() != Paused {
		t.Fatalf("Status = %v, want Paused", m.Status())
	}
	if !eng.ChannelFor("original.wav").Paused() {
		t.Error("original channel not paused")
	}

	m.Resume()
	if m.Status() != Playing {
		t.Errorf("Status = %v, want Playing", m.Status())
	}
	if eng.ChannelFor("original.wav").Paused() {
		t.Error("original channel still paused after Resume")
	}
}

func TestPauseIgnoredOutsidePlaying(t *testing.T) {
	m, eng := newTestMixer(t, "original")

	m.Pause()
	if m.Status() != Stopped {
		t.Errorf("Status = %v, want Stopped", m.Status())
	}
	if got := eng.ChannelFor("original.wav").CountOp("pause"); got != 0 {
		t.Errorf("pause ops = %d, want 0", got)
	}
}

func TestResumeIgnoredOutsidePaused(t *testing.T) {
	m, eng := newTestMixer(t, "original")
	m.Play()

	m.Resume()
	if m.Status() != Playing {
		t.Errorf("Status = %v, want Playing", m.Status())
	}
	if got := eng.ChannelFor("original.wav").CountOp("resume"); got != 0 {
		t.Errorf("resume ops = %d, want 0", got)
	}
}

func TestStopFromAnyState(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")

	m.Play()
	m.Stop()
	if m.Status() != Stopped {
		t.Errorf("Status after Playing->Stop = %v, want Stopped", m.Status())
	}

	m.Play()
	m.Pause()
	m.Stop()
	if m.Status() != Stopped {
		t.Errorf("Status after Paused->Stop = %v, want Stopped", m.Status())
	}

	stops := eng.ChannelFor("original.wav").CountOp("stop")
	m.Stop() // redundant
	if got := eng.ChannelFor("original.wav").CountOp("stop"); got != stops {
		t.Errorf("redundant Stop reached channels: %d stop ops, want %d", got, stops)
	}
}

func TestStopKeepsMuteState(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Mute("vocals")
	m.Stop()

	if g := gainOf(t, eng, "original"); g != 0 {
		t.Errorf("original gain = %v, want 0 (stems mode kept)", g)
	}
	if g := gainOf(t, eng, "drums"); g != 1.0 {
		t.Errorf("drums gain = %v, want 1.0", g)
	}

	// A fresh Play starts over in combined mode.
	m.Play()
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain after restart = %v, want 1.0", g)
	}
	if g := gainOf(t, eng, "drums"); g != 0 {
		t.Errorf("drums gain after restart = %v, want 0", g)
	}
}

// --- Rewind ---

func TestRewindRestartsAllInOneBatch(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Rewind()

	if m.Status() != Playing {
		t.Errorf("Status = %v, want Playing (rewind keeps status)", m.Status())
	}
	epoch := eng.ChannelFor("original.wav").LastOp("play").Epoch
	for _, name := range []string{"original.wav", "vocals.wav", "drums.wav"} {
		ch := eng.ChannelFor(name)
		stop := ch.LastOp("stop")
		play := ch.LastOp("play")
		if stop.Epoch != epoch || play.Epoch != epoch {
			t.Errorf("%s: stop epoch %d / play epoch %d, want both %d (single batch)",
				name, stop.Epoch, play.Epoch, epoch)
		}
	}
	if v := eng.Violations(); len(v) != 0 {
		t.Errorf("locking violations: %v", v)
	}
}

func TestRewindWhilePausedStaysPaused(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()
	m.Pause()
	m.Rewind()

	if m.Status() != Paused {
		t.Errorf("Status = %v, want Paused", m.Status())
	}
	for _, name := range []string{"original.wav", "vocals.wav"} {
		if !eng.ChannelFor(name).Paused() {
			t.Errorf("%s playing after rewind while paused", name)
		}
	}
}

func TestRewindWhileStoppedIgnored(t *testing.T) {
	m, eng := newTestMixer(t, "original")
	m.Rewind()

	if got := eng.ChannelFor("original.wav").CountOp("play"); got != 0 {
		t.Errorf("rewind while stopped started channels: %d play ops", got)
	}
	if m.Status() != Stopped {
		t.Errorf("Status = %v, want Stopped", m.Status())
	}
}

func TestRewindPreservesGains(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Mute("vocals")
	m.SetVolume("drums", 0.6)

	m.Rewind()

	if g := gainOf(t, eng, "original"); g != 0 {
		t.Errorf("original gain = %v, want 0", g)
	}
	if g := gainOf(t, eng, "vocals"); g != 0 {
		t.Errorf("vocals gain = %v, want 0", g)
	}
	if g := gainOf(t, eng, "drums"); g != 0.6 {
		t.Errorf("drums gain = %v, want 0.6", g)
	}
}

// --- Full scenario ---

func TestFiveTrackScenario(t *testing.T) {
	stems := []string{"vocals", "drums", "bass", "other"}
	m, eng := newTestMixer(t, "original", "vocals", "drums", "bass", "other")

	m.Play()
	if m.Status() != Playing {
		t.Fatalf("Status = %v, want Playing", m.Status())
	}
	// Combined mode: the original stands in for every stem.
	for _, s := range stems {
		if muted, _ := m.IsMuted(s); muted {
			t.Errorf("IsMuted(%s) = true in combined mode", s)
		}
	}

	m.ToggleMute("vocals")
	if muted, _ := m.IsMuted("original"); !muted {
		t.Error("IsMuted(original) = false after layer switch")
	}
	if muted, _ := m.IsMuted("vocals"); !muted {
		t.Error("IsMuted(vocals) = false, want true (requested mute applied)")
	}
	for _, s := range []string{"drums", "bass", "other"} {
		if muted, _ := m.IsMuted(s); muted {
			t.Errorf("IsMuted(%s) = true, want false", s)
		}
	}
	checkDuality(t, m, eng, stems...)

	m.ToggleMute("vocals")
	// Every stem unmuted again: collapse back to the combined mix.
	if muted, _ := m.IsMuted("original"); muted {
		t.Error("IsMuted(original) = true after collapse")
	}
	if g := gainOf(t, eng, "original"); g != 1.0 {
		t.Errorf("original gain = %v, want 1.0", g)
	}
	for _, s := range stems {
		if g := gainOf(t, eng, s); g != 0 {
			t.Errorf("%s gain = %v, want 0", s, g)
		}
	}
	checkDuality(t, m, eng, stems...)

	if v := eng.Violations(); len(v) != 0 {
		t.Errorf("locking violations: %v", v)
	}
}

// --- Snapshot / Close ---

func TestSnapshot(t *testing.T) {
	m, _ := newTestMixer(t, "original", "vocals", "drums")
	m.Play()
	m.Mute("vocals")
	m.SetVolume("drums", 0.8)

	snap := m.Snapshot()
	want := []TrackState{
		{Name: "original", Muted: true, Volume: 1.0},
		{Name: "vocals", Muted: true, Volume: 1.0},
		{Name: "drums", Muted: false, Volume: 0.8},
	}
	if len(snap) != len(want) {
		t.Fatalf("Snapshot len = %d, want %d", len(snap), len(want))
	}
	for i := range want {
		if snap[i] != want[i] {
			t.Errorf("Snapshot[%d] = %+v, want %+v", i, snap[i], want[i])
		}
	}
}

func TestCloseStopsAndReleasesEngine(t *testing.T) {
	m, eng := newTestMixer(t, "original", "vocals")
	m.Play()
	m.Close()

	if !eng.Closed {
		t.Error("engine not closed")
	}
	if m.Status() != Stopped {
		t.Errorf("Status = %v, want Stopped", m.Status())
	}
	if got := eng.ChannelFor("original.wav").CountOp("stop"); got != 1 {
		t.Errorf("stop ops = %d, want 1", got)
	}
}

func TestDuration(t *testing.T) {
	m, _ := newTestMixer(t, "original", "vocals")
	if got := m.Duration(); got != 3*time.Second {
		t.Errorf("Duration = %v, want 3s", got)
	}
}
