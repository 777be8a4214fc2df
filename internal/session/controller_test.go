package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/greenroom/internal/capture"
	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/ipc"
	"github.com/rbright/greenroom/internal/score"
)

type fakeRecognizer struct{}

func (fakeRecognizer) Start(context.Context, capture.Handlers) error { return nil }
func (fakeRecognizer) Stop(context.Context) error                    { return nil }

type fakeScorer struct {
	mu     sync.Mutex
	calls  int
	inputs []score.Input
}

func (f *fakeScorer) Evaluate(_ context.Context, in score.Input) interview.ScoringResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, in)
	return interview.ScoringResult{OverallScore: 42, Feedback: "Good foundation."}
}

type fakeSink struct {
	mu      sync.Mutex
	saves   int
	answers []string
	err     error
}

func (f *fakeSink) Save(_ context.Context, _ *interview.Session, answers []string, _ interview.ScoringResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.answers = answers
	return f.err
}

func newTestSession(t *testing.T, questions int) *interview.Session {
	t.Helper()
	qs := make([]string, questions)
	for i := range qs {
		qs[i] = "question"
	}
	sess, err := interview.NewSession("sess-1", interview.Template{
		Title:      "Backend Developer Interview",
		Role:       "Backend Developer",
		Difficulty: interview.DifficultyMedium,
	}, qs)
	require.NoError(t, err)
	return sess
}

func startController(t *testing.T, scorer Scorer, sink Sink, questions int) (*Controller, *interview.Ledger, chan Result, context.CancelFunc) {
	t.Helper()
	sess := newTestSession(t, questions)
	ledger := interview.NewLedger(len(sess.Questions))

	ctrl := NewController(slog.New(slog.NewTextHandler(io.Discard, nil)), sess, ledger, scorer, sink)
	coord := capture.NewCoordinator(slog.New(slog.NewTextHandler(io.Discard, nil)), capture.NopCamera{}, fakeRecognizer{}, ledger, ctrl.Emit)
	ctrl.SetCoordinator(coord)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan Result, 1)
	go func() { results <- ctrl.Run(ctx) }()

	// Wait until the loop is serving actions.
	require.Eventually(t, func() bool {
		resp := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
		return resp.OK
	}, time.Second, 10*time.Millisecond)

	return ctrl, ledger, results, cancel
}

func TestStatusSnapshot(t *testing.T) {
	ctrl, _, results, cancel := startController(t, &fakeScorer{}, &fakeSink{}, 3)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Equal(t, 0, resp.Index)
	require.Equal(t, 3, resp.Total)
	require.Equal(t, "question", resp.Question)
	require.False(t, resp.Recording)

	cancel()
	result := <-results
	require.True(t, result.Exited)
	require.False(t, result.Completed)
}

func TestNavigationBounds(t *testing.T) {
	ctrl, _, results, cancel := startController(t, &fakeScorer{}, &fakeSink{}, 2)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "prev"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "first question")

	resp = ctrl.Handle(context.Background(), ipc.Request{Command: "next"})
	require.True(t, resp.OK)
	require.Equal(t, 1, resp.Index)

	resp = ctrl.Handle(context.Background(), ipc.Request{Command: "next"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "last question")

	cancel()
	<-results
}

func TestRecordingStopsOnNavigation(t *testing.T) {
	ctrl, _, results, cancel := startController(t, &fakeScorer{}, &fakeSink{}, 2)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "record"})
	require.True(t, resp.OK)
	require.True(t, resp.Recording)

	resp = ctrl.Handle(context.Background(), ipc.Request{Command: "next"})
	require.True(t, resp.OK)
	require.False(t, resp.Recording)

	cancel()
	<-results
}

func TestSegmentsReachLedgerThroughLoop(t *testing.T) {
	ctrl, ledger, results, cancel := startController(t, &fakeScorer{}, &fakeSink{}, 2)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "record"})
	require.True(t, resp.OK)

	ctrl.Emit(capture.Event{Segment: "my answer"})

	require.Eventually(t, func() bool {
		answer, err := ledger.Answer(0)
		return err == nil && answer == "my answer"
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-results
}

func TestFinishScoresAndPersists(t *testing.T) {
	scorer := &fakeScorer{}
	sink := &fakeSink{}
	ctrl, ledger, results, cancel := startController(t, scorer, sink, 2)
	defer cancel()

	require.NoError(t, ledger.Set(0, "a full answer to the first question"))

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "finish"})
	require.True(t, resp.OK)
	require.True(t, resp.Final)
	require.Contains(t, resp.Message, "42")

	result := <-results
	require.True(t, result.Completed)
	require.False(t, result.TimedOut)
	require.Equal(t, 42, result.Scoring.OverallScore)
	require.NoError(t, result.PersistErr)

	require.Equal(t, 1, scorer.calls)
	require.Equal(t, "Backend Developer", scorer.inputs[0].Role)
	require.Equal(t, 1, sink.saves)
	require.Equal(t, "a full answer to the first question", sink.answers[0])
}

func TestFinishCarriesScoreWhenPersistFails(t *testing.T) {
	sink := &fakeSink{err: context.DeadlineExceeded}
	ctrl, _, results, cancel := startController(t, &fakeScorer{}, sink, 2)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "finish"})
	require.True(t, resp.OK)

	result := <-results
	require.True(t, result.Completed)
	require.Equal(t, 42, result.Scoring.OverallScore)
	require.Error(t, result.PersistErr)
}

func TestTimerExpiryFinishesExactlyOnce(t *testing.T) {
	scorer := &fakeScorer{}
	sink := &fakeSink{}
	sess := newTestSession(t, 2)
	sess.RemainingSeconds = 1
	ledger := interview.NewLedger(len(sess.Questions))

	ctrl := NewController(slog.New(slog.NewTextHandler(io.Discard, nil)), sess, ledger, scorer, sink)
	coord := capture.NewCoordinator(slog.New(slog.NewTextHandler(io.Discard, nil)), capture.NopCamera{}, fakeRecognizer{}, ledger, ctrl.Emit)
	ctrl.SetCoordinator(coord)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan Result, 1)
	go func() { results <- ctrl.Run(ctx) }()

	var result Result
	select {
	case result = <-results:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish on timer expiry")
	}

	require.True(t, result.Completed)
	require.True(t, result.TimedOut)
	require.Equal(t, 42, result.Scoring.OverallScore)
	require.Equal(t, 1, scorer.calls)
	require.Equal(t, 1, sink.saves)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "finish"})
	require.False(t, resp.OK)
	require.True(t, resp.Final)
	require.Contains(t, resp.Error, "ended")
	require.Equal(t, 1, scorer.calls)
	require.Equal(t, 1, sink.saves)
}

func TestExitPersistsNothing(t *testing.T) {
	scorer := &fakeScorer{}
	sink := &fakeSink{}
	ctrl, _, results, cancel := startController(t, scorer, sink, 2)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "exit"})
	require.True(t, resp.OK)
	require.True(t, resp.Final)

	result := <-results
	require.True(t, result.Exited)
	require.False(t, result.Completed)
	require.Equal(t, 0, scorer.calls)
	require.Equal(t, 0, sink.saves)
}

func TestCommandsAfterTerminationAreFinal(t *testing.T) {
	ctrl, _, results, cancel := startController(t, &fakeScorer{}, &fakeSink{}, 2)
	defer cancel()

	ctrl.Handle(context.Background(), ipc.Request{Command: "exit"})
	<-results

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "status"})
	require.False(t, resp.OK)
	require.True(t, resp.Final)
	require.Contains(t, resp.Error, "ended")
}

func TestUnknownCommand(t *testing.T) {
	ctrl, _, results, cancel := startController(t, &fakeScorer{}, &fakeSink{}, 2)
	defer cancel()

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: "bogus"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")

	cancel()
	<-results
}
