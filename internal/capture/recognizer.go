package capture

import (
	"context"
	"errors"
)

// ErrMicrophoneAccess indicates the microphone could not be opened.
var ErrMicrophoneAccess = errors.New("microphone access failed")

// ErrRecognizerUnavailable indicates no speech-to-text backend is configured.
var ErrRecognizerUnavailable = errors.New("speech recognizer unavailable")

// Handlers receive recognizer output. Both callbacks may fire from the
// recognizer's own goroutines; implementations must route them onto the
// session loop rather than mutating state directly.
type Handlers struct {
	OnSegment func(text string)
	OnError   func(err error)
}

// Recognizer is a start/stop speech-to-text stream.
type Recognizer interface {
	Start(ctx context.Context, handlers Handlers) error
	Stop(ctx context.Context) error
}

// Event is one recognizer notification routed through the session loop.
// Exactly one field is set.
type Event struct {
	Segment string
	Err     error
}
