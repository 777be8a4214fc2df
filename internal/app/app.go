// Package app wires configuration, stores, providers, and the session loop
// behind the command-line surface.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/greenroom/internal/audio"
	"github.com/rbright/greenroom/internal/bootstrap"
	"github.com/rbright/greenroom/internal/capture"
	"github.com/rbright/greenroom/internal/cli"
	"github.com/rbright/greenroom/internal/config"
	"github.com/rbright/greenroom/internal/doctor"
	"github.com/rbright/greenroom/internal/generate"
	"github.com/rbright/greenroom/internal/history"
	"github.com/rbright/greenroom/internal/identity"
	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/ipc"
	"github.com/rbright/greenroom/internal/kvstore"
	"github.com/rbright/greenroom/internal/llm"
	"github.com/rbright/greenroom/internal/logging"
	"github.com/rbright/greenroom/internal/recordstore"
	"github.com/rbright/greenroom/internal/results"
	"github.com/rbright/greenroom/internal/score"
	"github.com/rbright/greenroom/internal/session"
	"github.com/rbright/greenroom/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr, Stdin: stdin}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("greenroom"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("greenroom"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	if parsed.Command == cli.CommandTemplates {
		return r.commandTemplates()
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfg, err := config.Load(parsed.EnvPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}

	if parsed.Anonymous {
		// Forces the local-state path even with record-store credentials set.
		cfg.StoreURL, cfg.StoreAPIKey, cfg.AccessToken = "", "", ""
	}

	logger.Info("command start", "command", parsed.Command, "log", logRuntime.Path)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfg)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandResults:
		return r.commandResults(ctx, cfg, logger, parsed.Arg)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandNext, cli.CommandPrev, cli.CommandRecord, cli.CommandReset:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandFinish, cli.CommandExit:
		if !parsed.Yes && !r.confirm(parsed.Command) {
			fmt.Fprintln(r.Stdout, "aborted")
			return 0
		}
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandStart:
		for _, warning := range cfg.Warnings() {
			fmt.Fprintf(r.Stderr, "warning: %s\n", warning)
			logger.Warn("config warning", "message", warning)
		}
		return r.commandStart(ctx, cfg, logger, parsed.Arg)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// confirm asks before ending a session. Anything but an explicit yes aborts.
func (r Runner) confirm(command cli.Command) bool {
	prompt := "Finish the session and save the result? [y/N] "
	if command == cli.CommandExit {
		prompt = "Exit the session without saving? [y/N] "
	}
	fmt.Fprint(r.Stdout, prompt)

	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (r Runner) commandTemplates() int {
	for _, tpl := range interview.BuiltinTemplates() {
		fmt.Fprintf(r.Stdout, "%s  %-35s %-12s %-7s %2d questions, %d min\n",
			tpl.ID, tpl.Title, tpl.Category, tpl.Difficulty, len(tpl.Questions), tpl.DurationMinutes)
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandResults(ctx context.Context, cfg *config.Config, logger *slog.Logger, id string) int {
	kv, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	store := results.New(logger, kv, recordClient(cfg), identityProvider(cfg))
	record, err := store.Load(ctx, id)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprint(r.Stdout, results.Render(record))
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "no active session")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if !handled {
		fmt.Fprintln(r.Stdout, "no active session")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	recording := "idle"
	if resp.Recording {
		recording = "recording"
	}
	fmt.Fprintf(r.Stdout, "question %d/%d [%s] %s\n", resp.Index+1, resp.Total, recording, resp.Question)
	fmt.Fprintf(r.Stdout, "time remaining %s\n", interview.FormatClock(resp.RemainingSeconds))
	if strings.TrimSpace(resp.Transcript) != "" {
		fmt.Fprintf(r.Stdout, "answer: %s\n", strings.TrimSpace(resp.Transcript))
	}
	if resp.Message != "" && resp.Message != "status" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active session; run 'greenroom start <template-id>' first")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandStart(ctx context.Context, cfg *config.Config, logger *slog.Logger, templateID string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: a session is already running; finish or exit it first")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	kv, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	provider := identityProvider(cfg)
	records := recordClient(cfg)
	chain := providerChain(cfg, logger)

	var generator *generate.Generator
	if chain.Available() {
		generator = generate.New(logger, chain)
	}

	resolver := bootstrap.New(logger, kv, history.New(kv), records, provider, generator)
	sess, source, err := resolver.Resolve(ctx, templateID)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	ledger := interview.NewLedger(len(sess.Questions))
	var scoringClient llm.Client
	if chain.Available() {
		scoringClient = chain
	}
	scorer := score.New(logger, scoringClient)
	sink := results.New(logger, kv, records, provider)

	controller := session.NewController(logger, sess, ledger, scorer, sink)
	camera := capture.NewDeviceCamera(cfg.CameraDevice)
	recognizer := capture.NewLiveRecognizer(logger, cfg.DeepgramAPIKey, cfg.Language, cfg.AudioInput, cfg.AudioFallback)
	coordinator := capture.NewCoordinator(logger, camera, recognizer, ledger, controller.Emit)
	controller.SetCoordinator(coordinator)

	fmt.Fprintf(r.Stdout, "session %s started from %s template %q\n", sess.ID, source, templateID)
	fmt.Fprintf(r.Stdout, "%d questions, %s on the clock\n", len(sess.Questions), interview.FormatClock(sess.RemainingSeconds))
	fmt.Fprintf(r.Stdout, "question 1: %s\n", sess.Questions[0])

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, sess.ID, result)
	return r.printOutcome(sess, result)
}

func (r Runner) printOutcome(sess *interview.Session, result session.Result) int {
	switch {
	case result.Completed:
		if result.TimedOut {
			fmt.Fprintln(r.Stdout, "time expired; session scored automatically")
		}
		fmt.Fprint(r.Stdout, results.Render(results.Record{
			ID:      sess.ID,
			Title:   sess.Title,
			Date:    result.FinishedAt.UTC().Format("2006-01-02"),
			Scoring: result.Scoring,
		}))
		if result.PersistErr != nil {
			fmt.Fprintf(r.Stderr, "warning: result was scored but not saved: %v\n", result.PersistErr)
		} else {
			fmt.Fprintf(r.Stdout, "\nsaved as %s\n", sess.ID)
		}
		return 0
	case result.Exited:
		fmt.Fprintln(r.Stdout, "session ended; nothing saved")
		return 0
	default:
		return 1
	}
}

// providerChain builds the ordered language model fallback chain from
// configured credentials.
func providerChain(cfg *config.Config, logger *slog.Logger) *llm.Chain {
	var clients []llm.Client
	if cfg.HasOpenAI() {
		clients = append(clients, llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	}
	if cfg.HasYandex() {
		client, err := llm.NewYandex(cfg.YandexOAuthToken, cfg.YandexFolderID)
		if err != nil {
			logger.Warn("yandex provider unavailable", "error", err)
		} else {
			clients = append(clients, client)
		}
	}
	return llm.NewChain(logger, clients...)
}

func openStore(cfg *config.Config) (*kvstore.Store, error) {
	dir := strings.TrimSpace(cfg.StateDir)
	if dir == "" {
		resolved, err := kvstore.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = resolved
	}
	return kvstore.Open(dir)
}

func recordClient(cfg *config.Config) *recordstore.Client {
	if !cfg.HasRecordStore() {
		return nil
	}
	return recordstore.New(cfg.StoreURL, cfg.StoreAPIKey)
}

func identityProvider(cfg *config.Config) identity.Provider {
	if !cfg.HasRecordStore() {
		return identity.Anonymous{}
	}
	return identity.NewTokenProvider(cfg.StoreURL, cfg.StoreAPIKey, cfg.AccessToken)
}

func logSessionResult(logger *slog.Logger, sessionID string, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"session_id", sessionID,
		"completed", result.Completed,
		"exited", result.Exited,
		"timed_out", result.TimedOut,
		"overall_score", result.Scoring.OverallScore,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}

	if result.PersistErr != nil {
		logger.Error("session finished but save failed", append(fields, "error", result.PersistErr.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	timeout := 220 * time.Millisecond
	if command == "finish" {
		// Finishing waits on scoring.
		timeout = 90 * time.Second
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
