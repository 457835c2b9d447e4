package mixer

import "errors"

var (
	// ErrUnknownTrack is returned when an operation names a track that
	// was never added. Callers treat it as a programming error.
	ErrUnknownTrack = errors.New("unknown track")

	// ErrDuplicateTrack is returned when a track name is added twice.
	ErrDuplicateTrack = errors.New("duplicate track")

	// ErrSessionStarted is returned when a track is added after playback
	// has begun; membership is fixed for the life of a session.
	ErrSessionStarted = errors.New("playback already started")
)
