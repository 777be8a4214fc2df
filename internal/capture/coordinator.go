package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/greenroom/internal/fsm"
	"github.com/rbright/greenroom/internal/interview"
)

// Coordinator owns camera and recognizer state for one session. Every
// method must be called from the session loop goroutine; recognizer
// callbacks are routed back onto that loop through emit.
type Coordinator struct {
	logger     *slog.Logger
	camera     Camera
	recognizer Recognizer
	ledger     *interview.Ledger
	emit       func(Event)

	state     fsm.State
	index     int
	buffer    string
	notice    string
	tornDown  bool
	cameraOn  bool
	recActive bool
}

// NewCoordinator wires camera, recognizer, and ledger for a session.
func NewCoordinator(logger *slog.Logger, camera Camera, recognizer Recognizer, ledger *interview.Ledger, emit func(Event)) *Coordinator {
	if camera == nil {
		camera = NopCamera{}
	}
	return &Coordinator{
		logger:     logger,
		camera:     camera,
		recognizer: recognizer,
		ledger:     ledger,
		emit:       emit,
		state:      fsm.StateIdle,
	}
}

// StartCamera acquires the camera. Failure is reported as a notice, never
// an error: the session runs audio-only when the camera is missing.
func (c *Coordinator) StartCamera(ctx context.Context) {
	if err := c.camera.Acquire(ctx); err != nil {
		c.logger.Warn("camera unavailable, continuing audio-only", "error", err)
		c.notice = "camera unavailable; continuing audio-only"
		return
	}
	c.cameraOn = true
}

// Recording reports whether speech capture is live.
func (c *Coordinator) Recording() bool {
	return c.state == fsm.StateRecording
}

// Transcript returns the active question's accumulated text.
func (c *Coordinator) Transcript() string {
	return c.buffer
}

// TakeNotice returns and clears the pending user-facing notice, if any.
func (c *Coordinator) TakeNotice() string {
	notice := c.notice
	c.notice = ""
	return notice
}

// Toggle flips speech capture on or off for the active question.
// It returns the new recording state.
func (c *Coordinator) Toggle(ctx context.Context) (bool, error) {
	if c.state == fsm.StateRecording {
		return false, c.stopRecognizer(ctx, fsm.EventStop)
	}

	next, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		return false, err
	}

	if c.recognizer == nil {
		return false, ErrRecognizerUnavailable
	}
	handlers := Handlers{
		OnSegment: func(text string) { c.emit(Event{Segment: text}) },
		OnError:   func(err error) { c.emit(Event{Err: err}) },
	}
	if err := c.recognizer.Start(ctx, handlers); err != nil {
		return false, fmt.Errorf("start speech capture: %w", err)
	}

	c.state = next
	c.recActive = true
	c.logger.Info("recording started", "question_index", c.index)
	return true, nil
}

// ApplySegment folds one recognized segment into the transcript and mirrors
// it into the ledger. Segments arriving after capture stopped are dropped.
func (c *Coordinator) ApplySegment(text string) {
	if c.state != fsm.StateRecording {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.buffer += text + " "
	if err := c.ledger.Set(c.index, strings.TrimSpace(c.buffer)); err != nil {
		c.logger.Error("record answer", "question_index", c.index, "error", err)
	}
}

// ApplyRecognizerError handles a failure reported by the recognizer stream.
// Losing microphone access is the one hard failure: it forces recording off
// and the text captured so far stays in the ledger. Every other recognition
// error is logged and the stream keeps running.
func (c *Coordinator) ApplyRecognizerError(ctx context.Context, err error) {
	c.logger.Error("speech recognizer error", "error", err)
	if c.state != fsm.StateRecording {
		return
	}
	if !errors.Is(err, ErrMicrophoneAccess) {
		return
	}

	if stopErr := c.recognizer.Stop(ctx); stopErr != nil {
		c.logger.Warn("stop recognizer after error", "error", stopErr)
	}
	c.recActive = false

	c.state, _ = fsm.Transition(c.state, fsm.EventFail)
	c.state, _ = fsm.Transition(c.state, fsm.EventReset)

	c.notice = "microphone access lost; recording stopped"
}

// SwitchIndex moves the coordinator to another question, stopping any live
// capture first and loading that question's stored answer as the buffer.
func (c *Coordinator) SwitchIndex(ctx context.Context, index int) error {
	if c.state == fsm.StateRecording {
		if err := c.stopRecognizer(ctx, fsm.EventStop); err != nil {
			return err
		}
	}

	answer, err := c.ledger.Answer(index)
	if err != nil {
		return err
	}
	c.index = index
	c.buffer = answer
	if c.buffer != "" {
		c.buffer += " "
	}
	return nil
}

// Reset discards the active question's answer, stopping capture first.
func (c *Coordinator) Reset(ctx context.Context) error {
	if c.state == fsm.StateRecording {
		if err := c.stopRecognizer(ctx, fsm.EventStop); err != nil {
			return err
		}
	}
	c.buffer = ""
	return c.ledger.Reset(c.index)
}

// Teardown stops capture and releases the camera. Safe to call repeatedly.
func (c *Coordinator) Teardown(ctx context.Context) {
	if c.tornDown {
		return
	}
	c.tornDown = true

	if c.recActive {
		if err := c.recognizer.Stop(ctx); err != nil {
			c.logger.Warn("stop recognizer during teardown", "error", err)
		}
		c.recActive = false
	}
	c.state = fsm.StateIdle

	if c.cameraOn {
		c.camera.Release()
		c.cameraOn = false
	}
}

func (c *Coordinator) stopRecognizer(ctx context.Context, event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	if err := c.recognizer.Stop(ctx); err != nil {
		return fmt.Errorf("stop speech capture: %w", err)
	}
	c.recActive = false
	c.state = next
	c.logger.Info("recording stopped", "question_index", c.index)
	return nil
}
