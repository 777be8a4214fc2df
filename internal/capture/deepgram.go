package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	listenws "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen/v1/websocket"

	"github.com/rbright/greenroom/internal/audio"
)

// LiveRecognizer streams microphone PCM to Deepgram's live transcription
// websocket and reports final segments through Handlers.
type LiveRecognizer struct {
	logger   *slog.Logger
	apiKey   string
	language string
	input    string
	fallback string

	mu      sync.Mutex
	client  *listenws.WSCallback
	capture *audio.Capture
	cancel  context.CancelFunc
	pumped  sync.WaitGroup
}

// NewLiveRecognizer builds a recognizer from configured credentials and
// audio device preferences.
func NewLiveRecognizer(logger *slog.Logger, apiKey, language, input, fallback string) *LiveRecognizer {
	return &LiveRecognizer{
		logger:   logger,
		apiKey:   apiKey,
		language: language,
		input:    input,
		fallback: fallback,
	}
}

// Start opens the microphone and the Deepgram websocket, then pumps PCM
// chunks until Stop or microphone exhaustion.
func (r *LiveRecognizer) Start(ctx context.Context, handlers Handlers) error {
	if strings.TrimSpace(r.apiKey) == "" {
		return ErrRecognizerUnavailable
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return fmt.Errorf("speech capture already running")
	}

	selection, err := audio.SelectDevice(ctx, r.input, r.fallback)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMicrophoneAccess, err)
	}
	if selection.Warning != "" {
		r.logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	transcriptOptions := &clientinterfaces.LiveTranscriptionOptions{
		Model:          "nova-2",
		Language:       r.language,
		Encoding:       "linear16",
		SampleRate:     16000,
		Channels:       1,
		InterimResults: true,
		SmartFormat:    true,
	}

	handler := &liveHandler{logger: r.logger, handlers: handlers}
	client, err := listen.NewWSUsingCallback(streamCtx, r.apiKey, &clientinterfaces.ClientOptions{}, transcriptOptions, handler)
	if err != nil {
		cancel()
		return fmt.Errorf("create transcription client: %w", err)
	}
	if !client.Connect() {
		cancel()
		return fmt.Errorf("connect transcription websocket: %w", ErrRecognizerUnavailable)
	}

	capture, err := audio.StartCapture(streamCtx, selection.Device)
	if err != nil {
		client.Stop()
		cancel()
		return fmt.Errorf("%w: %v", ErrMicrophoneAccess, err)
	}

	r.client = client
	r.capture = capture
	r.cancel = cancel

	r.pumped.Add(1)
	go func() {
		defer r.pumped.Done()
		for chunk := range capture.Chunks() {
			if err := client.WriteBinary(chunk); err != nil {
				r.logger.Error("send audio chunk", "error", err)
				if handlers.OnError != nil {
					handlers.OnError(fmt.Errorf("send audio: %w", err))
				}
				return
			}
		}
	}()

	r.logger.Info("speech capture started",
		"device", selection.Device.ID,
		"language", r.language,
	)
	return nil
}

// Stop halts the microphone stream and closes the websocket. Safe to call
// when not running.
func (r *LiveRecognizer) Stop(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}

	if err := r.capture.Stop(); err != nil {
		r.logger.Warn("stop audio capture", "error", err)
	}
	r.pumped.Wait()
	r.client.Stop()
	r.cancel()

	bytes := r.capture.BytesCaptured()
	r.client = nil
	r.capture = nil
	r.cancel = nil

	r.logger.Info("speech capture stopped", "bytes_captured", bytes)
	return nil
}

// liveHandler adapts Deepgram's callback interface to Handlers. Only final
// non-empty transcripts are forwarded; interim results keep the socket warm
// but never reach the ledger.
type liveHandler struct {
	logger   *slog.Logger
	handlers Handlers
}

func (h *liveHandler) Open(*msginterfaces.OpenResponse) error {
	h.logger.Debug("transcription socket open")
	return nil
}

func (h *liveHandler) Message(mr *msginterfaces.MessageResponse) error {
	if mr == nil || !mr.IsFinal || len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if transcript == "" {
		return nil
	}
	if h.handlers.OnSegment != nil {
		h.handlers.OnSegment(transcript)
	}
	return nil
}

func (h *liveHandler) Metadata(*msginterfaces.MetadataResponse) error { return nil }

func (h *liveHandler) SpeechStarted(*msginterfaces.SpeechStartedResponse) error { return nil }

func (h *liveHandler) UtteranceEnd(*msginterfaces.UtteranceEndResponse) error { return nil }

func (h *liveHandler) Close(*msginterfaces.CloseResponse) error {
	h.logger.Debug("transcription socket closed")
	return nil
}

func (h *liveHandler) Error(er *msginterfaces.ErrorResponse) error {
	err := fmt.Errorf("transcription stream: %s", er.ErrMsg)
	h.logger.Error("transcription error", "error", er.ErrMsg)
	if h.handlers.OnError != nil {
		h.handlers.OnError(err)
	}
	return nil
}

func (h *liveHandler) UnhandledEvent(byData []byte) error {
	h.logger.Debug("unhandled transcription event", "bytes", len(byData))
	return nil
}
