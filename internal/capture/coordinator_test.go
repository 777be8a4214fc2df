package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/greenroom/internal/interview"
)

type fakeRecognizer struct {
	startErr error
	stopErr  error
	starts   int
	stops    int
	handlers Handlers
}

func (f *fakeRecognizer) Start(_ context.Context, handlers Handlers) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.handlers = handlers
	return nil
}

func (f *fakeRecognizer) Stop(context.Context) error {
	f.stops++
	return f.stopErr
}

type fakeCamera struct {
	acquireErr error
	acquired   int
	released   int
}

func (f *fakeCamera) Acquire(context.Context) error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired++
	return nil
}

func (f *fakeCamera) Release() { f.released++ }

func newTestCoordinator(t *testing.T, rec Recognizer, camera Camera) (*Coordinator, *interview.Ledger, *[]Event) {
	t.Helper()
	ledger := interview.NewLedger(3)
	events := &[]Event{}
	coord := NewCoordinator(slog.New(slog.NewTextHandler(io.Discard, nil)), camera, rec, ledger, func(e Event) {
		*events = append(*events, e)
	})
	return coord, ledger, events
}

func TestToggleStartsAndStops(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, _, _ := newTestCoordinator(t, rec, &fakeCamera{})

	recording, err := coord.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, recording)
	require.True(t, coord.Recording())
	require.Equal(t, 1, rec.starts)

	recording, err = coord.Toggle(context.Background())
	require.NoError(t, err)
	require.False(t, recording)
	require.False(t, coord.Recording())
	require.Equal(t, 1, rec.stops)
}

func TestToggleStartFailureStaysIdle(t *testing.T) {
	rec := &fakeRecognizer{startErr: ErrRecognizerUnavailable}
	coord, _, _ := newTestCoordinator(t, rec, &fakeCamera{})

	_, err := coord.Toggle(context.Background())
	require.ErrorIs(t, err, ErrRecognizerUnavailable)
	require.False(t, coord.Recording())
}

func TestApplySegmentMirrorsIntoLedger(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, ledger, _ := newTestCoordinator(t, rec, &fakeCamera{})

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)

	coord.ApplySegment("I would start with")
	coord.ApplySegment("a load balancer")

	require.Equal(t, "I would start with a load balancer ", coord.Transcript())
	answer, err := ledger.Answer(0)
	require.NoError(t, err)
	require.Equal(t, "I would start with a load balancer", answer)
}

func TestApplySegmentIgnoredWhenIdle(t *testing.T) {
	coord, ledger, _ := newTestCoordinator(t, &fakeRecognizer{}, &fakeCamera{})

	coord.ApplySegment("stray segment after stop")

	require.Empty(t, coord.Transcript())
	answer, err := ledger.Answer(0)
	require.NoError(t, err)
	require.Empty(t, answer)
}

func TestRecognizerCallbacksEmitEvents(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, _, events := newTestCoordinator(t, rec, &fakeCamera{})

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)

	rec.handlers.OnSegment("hello")
	rec.handlers.OnError(errors.New("stream broke"))

	require.Len(t, *events, 2)
	require.Equal(t, "hello", (*events)[0].Segment)
	require.Error(t, (*events)[1].Err)
}

func TestMicrophoneErrorForcesRecordingOff(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, ledger, _ := newTestCoordinator(t, rec, &fakeCamera{})

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)
	coord.ApplySegment("partial answer before the mic died")

	coord.ApplyRecognizerError(context.Background(), ErrMicrophoneAccess)

	require.False(t, coord.Recording())
	require.Equal(t, 1, rec.stops)
	require.Contains(t, coord.TakeNotice(), "microphone")
	require.Empty(t, coord.TakeNotice())

	answer, err := ledger.Answer(0)
	require.NoError(t, err)
	require.Equal(t, "partial answer before the mic died", answer)
}

func TestTransientRecognizerErrorKeepsRecording(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, ledger, _ := newTestCoordinator(t, rec, &fakeCamera{})

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)

	coord.ApplyRecognizerError(context.Background(), errors.New("transient stream hiccup"))

	require.True(t, coord.Recording())
	require.Zero(t, rec.stops)
	require.Empty(t, coord.TakeNotice())

	coord.ApplySegment("still being captured")
	answer, err := ledger.Answer(0)
	require.NoError(t, err)
	require.Equal(t, "still being captured", answer)
}

func TestSwitchIndexStopsRecordingAndLoadsAnswer(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, ledger, _ := newTestCoordinator(t, rec, &fakeCamera{})
	require.NoError(t, ledger.Set(1, "earlier answer"))

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)

	require.NoError(t, coord.SwitchIndex(context.Background(), 1))
	require.False(t, coord.Recording())
	require.Equal(t, "earlier answer ", coord.Transcript())
}

func TestSwitchIndexRejectsOutOfRange(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, &fakeRecognizer{}, &fakeCamera{})
	require.Error(t, coord.SwitchIndex(context.Background(), 7))
}

func TestResetClearsBufferAndLedger(t *testing.T) {
	rec := &fakeRecognizer{}
	coord, ledger, _ := newTestCoordinator(t, rec, &fakeCamera{})

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)
	coord.ApplySegment("discard me")

	require.NoError(t, coord.Reset(context.Background()))
	require.False(t, coord.Recording())
	require.Empty(t, coord.Transcript())

	answer, err := ledger.Answer(0)
	require.NoError(t, err)
	require.Empty(t, answer)
}

func TestTeardownIdempotent(t *testing.T) {
	rec := &fakeRecognizer{}
	camera := &fakeCamera{}
	coord, _, _ := newTestCoordinator(t, rec, camera)

	coord.StartCamera(context.Background())
	require.Equal(t, 1, camera.acquired)

	_, err := coord.Toggle(context.Background())
	require.NoError(t, err)

	coord.Teardown(context.Background())
	coord.Teardown(context.Background())

	require.Equal(t, 1, rec.stops)
	require.Equal(t, 1, camera.released)
	require.False(t, coord.Recording())
}

func TestStartCameraFailureIsNonFatal(t *testing.T) {
	camera := &fakeCamera{acquireErr: errors.New("no such device")}
	coord, _, _ := newTestCoordinator(t, &fakeRecognizer{}, camera)

	coord.StartCamera(context.Background())
	require.Contains(t, coord.TakeNotice(), "camera")
}
