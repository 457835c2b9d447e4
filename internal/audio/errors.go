package audio

import "errors"

// ErrUnsupportedFormat is returned when a clip's container cannot be
// decoded natively and no ffmpeg binary is available to fall back on.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// EngineError wraps a failure of the output device or a clip decoder.
// Engine errors are fatal to the mixing session and are never retried.
type EngineError struct {
	Op  string // operation that failed, e.g. "speaker init"
	Err error
}

func (e *EngineError) Error() string {
	return "audio engine: " + e.Op + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }
