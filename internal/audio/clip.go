package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"gopkg.in/hraban/opus.v2"
)

const (
	// Ogg-opus always decodes at 48kHz; yt-dlp rips are stereo.
	opusRate     = 48000
	opusChannels = 2

	// Rate and layout ffmpeg decodes to on the fallback path.
	execRate     = 44100
	execChannels = 2
)

// bufferedClip holds a clip fully decoded at its native sample rate.
type bufferedClip struct {
	path   string
	buf    *beep.Buffer
	format beep.Format
}

func (c *bufferedClip) Path() string { return c.path }

func (c *bufferedClip) Duration() time.Duration {
	return c.format.SampleRate.D(c.buf.Len())
}

// streamer returns a fresh seekable cursor over the decoded samples.
func (c *bufferedClip) streamer() beep.StreamSeeker {
	return c.buf.Streamer(0, c.buf.Len())
}

// loadClip decodes the file at path by extension. Containers beep has no
// decoder for fall back to an ffmpeg subprocess when one is installed.
func loadClip(path, ffmpegBin string) (*bufferedClip, error) {
	var (
		s      beep.Streamer
		format beep.Format
		closer io.Closer
		err    error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".mp3", ".flac", ".ogg":
		f, ferr := os.Open(path)
		if ferr != nil {
			return nil, fmt.Errorf("open clip: %w", ferr)
		}
		var sc beep.StreamSeekCloser
		switch ext {
		case ".wav":
			sc, format, err = wav.Decode(f)
		case ".mp3":
			sc, format, err = mp3.Decode(f)
		case ".flac":
			sc, format, err = flac.Decode(f)
		case ".ogg":
			sc, format, err = vorbis.Decode(f)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		s, closer = sc, sc
	case ".opus":
		s, format, closer, err = decodeOpus(path)
		if err != nil {
			return nil, err
		}
	default:
		s, format, err = decodeExec(path, ffmpegBin)
		if err != nil {
			return nil, err
		}
	}

	buf := beep.NewBuffer(format)
	buf.Append(s)
	if closer != nil {
		closer.Close()
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("decode %s: no samples", path)
	}

	return &bufferedClip{path: path, buf: buf, format: format}, nil
}

// decodeOpus reads an ogg-opus file through the opus stream decoder.
func decodeOpus(path string) (beep.Streamer, beep.Format, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, fmt.Errorf("open clip: %w", err)
	}
	stream, err := opus.NewStream(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("open opus stream %s: %w", path, err)
	}

	var samples []int16
	pcm := make([]int16, 16384)
	for {
		n, err := stream.Read(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, beep.Format{}, nil, fmt.Errorf("decode opus %s: %w", path, err)
		}
		if n == 0 {
			break
		}
		samples = append(samples, pcm[:n*opusChannels]...)
	}

	format := beep.Format{SampleRate: opusRate, NumChannels: opusChannels, Precision: 2}
	return &pcmStreamer{samples: samples}, format, f, nil
}

// decodeExec runs ffmpeg to decode a file to raw interleaved stereo PCM.
func decodeExec(path, ffmpegBin string) (beep.Streamer, beep.Format, error) {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %q (no ffmpeg for fallback decode)", ErrUnsupportedFormat, filepath.Ext(path))
	}

	cmd := exec.Command(ffmpegBin,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(execRate),
		"-ac", fmt.Sprint(execChannels),
		"-loglevel", "error",
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure even byte count for int16 alignment
	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[i*2 : i*2+2]))
	}

	format := beep.Format{SampleRate: execRate, NumChannels: execChannels, Precision: 2}
	return &pcmStreamer{samples: samples}, format, nil
}

// pcmStreamer adapts interleaved stereo int16 PCM to beep's sample format.
type pcmStreamer struct {
	samples []int16
	pos     int
}

func (p *pcmStreamer) Stream(out [][2]float64) (int, bool) {
	n := 0
	for n < len(out) && p.pos+1 < len(p.samples) {
		out[n][0] = float64(p.samples[p.pos]) / 32768
		out[n][1] = float64(p.samples[p.pos+1]) / 32768
		p.pos += 2
		n++
	}
	return n, n > 0
}

func (p *pcmStreamer) Err() error { return nil }
