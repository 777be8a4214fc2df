// Package session runs the interview event loop: the countdown, question
// navigation, capture toggling, and the finish/exit endgame. All state
// mutation happens on the loop goroutine; IPC handlers and recognizer
// callbacks only enqueue work.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rbright/greenroom/internal/capture"
	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/ipc"
	"github.com/rbright/greenroom/internal/score"
)

// Scorer evaluates a finished session.
type Scorer interface {
	Evaluate(ctx context.Context, in score.Input) interview.ScoringResult
}

// Sink persists a finished session's outcome.
type Sink interface {
	Save(ctx context.Context, sess *interview.Session, answers []string, scoring interview.ScoringResult) error
}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	Completed  bool
	Exited     bool
	TimedOut   bool
	Scoring    interview.ScoringResult
	PersistErr error
	StartedAt  time.Time
	FinishedAt time.Time
}

type actionRequest struct {
	command string
	reply   chan ipc.Response
}

// Controller owns one session from start to finish or exit.
type Controller struct {
	logger *slog.Logger
	sess   *interview.Session
	ledger *interview.Ledger
	coord  *capture.Coordinator
	scorer Scorer
	sink   Sink

	events  chan capture.Event
	actions chan actionRequest
	done    chan struct{}

	terminated atomic.Bool
}

// persistTimeout bounds the detached save after scoring completes.
const persistTimeout = 15 * time.Second

// NewController wires the session loop. The returned controller's Emit must
// be handed to the capture coordinator so recognizer callbacks land on the
// loop.
func NewController(
	logger *slog.Logger,
	sess *interview.Session,
	ledger *interview.Ledger,
	scorer Scorer,
	sink Sink,
) *Controller {
	return &Controller{
		logger:  logger,
		sess:    sess,
		ledger:  ledger,
		scorer:  scorer,
		sink:    sink,
		events:  make(chan capture.Event, 64),
		actions: make(chan actionRequest),
		done:    make(chan struct{}),
	}
}

// SetCoordinator attaches the capture coordinator. Must be called before Run.
func (c *Controller) SetCoordinator(coord *capture.Coordinator) {
	c.coord = coord
}

// Emit queues a recognizer event onto the loop, dropping it if the session
// already ended or the queue is saturated.
func (c *Controller) Emit(event capture.Event) {
	select {
	case c.events <- event:
	case <-c.done:
	default:
	}
}

// Run executes the session loop until finish, exit, timer expiry, or context
// cancellation.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}

	c.coord.StartCamera(ctx)
	if notice := c.coord.TakeNotice(); notice != "" {
		c.logger.Warn("session notice", "notice", notice)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	defer c.finishLoop()

	c.logger.Info("session started",
		"session_id", c.sess.ID,
		"title", c.sess.Title,
		"questions", len(c.sess.Questions),
		"duration_seconds", c.sess.DurationSeconds,
	)

	for {
		select {
		case <-ctx.Done():
			c.coord.Teardown(context.Background())
			result.Exited = true
			result.FinishedAt = time.Now()
			c.logger.Info("session interrupted", "session_id", c.sess.ID)
			return result

		case <-ticker.C:
			if c.sess.Tick() {
				c.logger.Info("session time expired", "session_id", c.sess.ID)
				c.finish(ctx, &result, true)
				return result
			}

		case event := <-c.events:
			if event.Err != nil {
				c.coord.ApplyRecognizerError(ctx, event.Err)
			} else {
				c.coord.ApplySegment(event.Segment)
			}

		case act := <-c.actions:
			final := c.dispatch(ctx, act, &result)
			if final {
				return result
			}
		}
	}
}

// Handle serves one IPC command by queueing it onto the loop goroutine.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	if c.terminated.Load() {
		return ipc.Response{OK: false, Final: true, Error: "session already ended"}
	}

	act := actionRequest{command: req.Command, reply: make(chan ipc.Response, 1)}
	select {
	case c.actions <- act:
	case <-c.done:
		return ipc.Response{OK: false, Final: true, Error: "session already ended"}
	case <-time.After(2 * time.Second):
		return ipc.Response{OK: false, Error: "session is busy"}
	}

	select {
	case resp := <-act.reply:
		return resp
	case <-time.After(60 * time.Second):
		return ipc.Response{OK: false, Error: "command timed out"}
	}
}

// dispatch runs one command on the loop goroutine. It reports whether the
// session ended.
func (c *Controller) dispatch(ctx context.Context, act actionRequest, result *Result) bool {
	switch act.command {
	case "status":
		act.reply <- c.statusResponse("status")
		return false

	case "next":
		if c.sess.OnLast() {
			act.reply <- c.errorResponse("already on the last question; finish to end the session")
			return false
		}
		if err := c.coord.SwitchIndex(ctx, c.sess.CurrentIndex+1); err != nil {
			act.reply <- c.errorResponse(err.Error())
			return false
		}
		if err := c.sess.Advance(); err != nil {
			act.reply <- c.errorResponse(err.Error())
			return false
		}
		act.reply <- c.statusResponse("advanced")
		return false

	case "prev":
		if c.sess.CurrentIndex == 0 {
			act.reply <- c.errorResponse("already on the first question")
			return false
		}
		if err := c.coord.SwitchIndex(ctx, c.sess.CurrentIndex-1); err != nil {
			act.reply <- c.errorResponse(err.Error())
			return false
		}
		if err := c.sess.Retreat(); err != nil {
			act.reply <- c.errorResponse(err.Error())
			return false
		}
		act.reply <- c.statusResponse("moved back")
		return false

	case "record":
		recording, err := c.coord.Toggle(ctx)
		if err != nil {
			act.reply <- c.errorResponse(fmt.Sprintf("toggle recording: %v", err))
			return false
		}
		message := "recording stopped"
		if recording {
			message = "recording started"
		}
		act.reply <- c.statusResponse(message)
		return false

	case "reset":
		if err := c.coord.Reset(ctx); err != nil {
			act.reply <- c.errorResponse(err.Error())
			return false
		}
		act.reply <- c.statusResponse("answer cleared")
		return false

	case "finish":
		c.finish(ctx, result, false)
		act.reply <- ipc.Response{
			OK:      true,
			Final:   true,
			Message: fmt.Sprintf("session scored %d/100", result.Scoring.OverallScore),
		}
		return true

	case "exit":
		c.coord.Teardown(ctx)
		result.Exited = true
		result.FinishedAt = time.Now()
		c.logger.Info("session exited without scoring", "session_id", c.sess.ID)
		act.reply <- ipc.Response{OK: true, Final: true, Message: "session exited; nothing saved"}
		return true

	default:
		act.reply <- c.errorResponse(fmt.Sprintf("unknown command: %s", act.command))
		return false
	}
}

// finish tears the session down, scores it, and persists the outcome. The
// scoring result is carried forward even when persistence fails.
func (c *Controller) finish(ctx context.Context, result *Result, timedOut bool) {
	c.coord.Teardown(ctx)

	answers := c.ledger.Snapshot()
	result.Scoring = c.scorer.Evaluate(ctx, score.Input{
		Role:       c.sess.Role,
		Difficulty: c.sess.Difficulty,
		Questions:  c.sess.Questions,
		Answers:    answers,
	})

	if c.sink != nil {
		// Detached from the loop context so cancellation cannot drop a
		// scored session on the floor.
		saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.sink.Save(saveCtx, c.sess, answers, result.Scoring); err != nil {
			c.logger.Error("persist session result", "session_id", c.sess.ID, "error", err)
			result.PersistErr = err
		}
	}

	result.Completed = true
	result.TimedOut = timedOut
	result.FinishedAt = time.Now()
	c.logger.Info("session finished",
		"session_id", c.sess.ID,
		"overall_score", result.Scoring.OverallScore,
		"timed_out", timedOut,
	)
}

// finishLoop marks the controller terminated and unblocks pending handlers.
func (c *Controller) finishLoop() {
	if c.terminated.CompareAndSwap(false, true) {
		close(c.done)
	}
}

func (c *Controller) statusResponse(message string) ipc.Response {
	state := "idle"
	if c.coord.Recording() {
		state = "recording"
	}
	resp := ipc.Response{
		OK:               true,
		State:            state,
		Message:          message,
		Index:            c.sess.CurrentIndex,
		Total:            len(c.sess.Questions),
		Question:         c.sess.Question(),
		Transcript:       c.coord.Transcript(),
		RemainingSeconds: c.sess.RemainingSeconds,
		Recording:        c.coord.Recording(),
	}
	if notice := c.coord.TakeNotice(); notice != "" {
		resp.Message = notice
	}
	return resp
}

func (c *Controller) errorResponse(message string) ipc.Response {
	state := "idle"
	if c.coord.Recording() {
		state = "recording"
	}
	return ipc.Response{OK: false, State: state, Error: message}
}
