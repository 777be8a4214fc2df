// Package doctor runs runtime readiness diagnostics for config, state,
// devices, and remote services.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rbright/greenroom/internal/audio"
	"github.com/rbright/greenroom/internal/config"
	"github.com/rbright/greenroom/internal/kvstore"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg *config.Config) Report {
	checks := []Check{
		checkStateDir(cfg),
		checkLLM(cfg),
		checkDeepgram(cfg),
		checkAudioSelection(cfg),
		checkCamera(cfg),
		checkRecordStore(ctx, cfg),
	}
	return Report{Checks: checks}
}

// checkStateDir verifies the local store directory is creatable and writable.
func checkStateDir(cfg *config.Config) Check {
	dir := strings.TrimSpace(cfg.StateDir)
	if dir == "" {
		resolved, err := kvstore.DefaultDir()
		if err != nil {
			return Check{Name: "state.dir", Pass: false, Message: err.Error()}
		}
		dir = resolved
	}

	if _, err := kvstore.Open(dir); err != nil {
		return Check{Name: "state.dir", Pass: false, Message: err.Error()}
	}

	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "state.dir", Pass: false, Message: fmt.Sprintf("not writable: %v", err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return Check{Name: "state.dir", Pass: true, Message: fmt.Sprintf("writable at %s", dir)}
}

// checkLLM verifies at least one language model provider is configured.
func checkLLM(cfg *config.Config) Check {
	var providers []string
	if cfg.HasOpenAI() {
		providers = append(providers, "openai")
	}
	if cfg.HasYandex() {
		providers = append(providers, "yandex")
	}
	if len(providers) == 0 {
		return Check{Name: "llm.providers", Pass: false, Message: "no provider configured; scoring will use heuristics only"}
	}
	return Check{Name: "llm.providers", Pass: true, Message: strings.Join(providers, ", ")}
}

func checkDeepgram(cfg *config.Config) Check {
	if !cfg.HasDeepgram() {
		return Check{Name: "speech.deepgram", Pass: false, Message: "DEEPGRAM_API_KEY is not set"}
	}
	return Check{Name: "speech.deepgram", Pass: true, Message: "API key configured"}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg *config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.AudioInput, cfg.AudioFallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkCamera stats the configured device node. Absence is reported but the
// session can still run audio-only.
func checkCamera(cfg *config.Config) Check {
	node := strings.TrimSpace(cfg.CameraDevice)
	if node == "" {
		return Check{Name: "camera.device", Pass: true, Message: "not configured (audio-only)"}
	}
	if _, err := os.Stat(node); err != nil {
		return Check{Name: "camera.device", Pass: false, Message: fmt.Sprintf("%s: %v", node, err)}
	}
	return Check{Name: "camera.device", Pass: true, Message: fmt.Sprintf("found %s", node)}
}

// checkRecordStore probes the configured store's auth endpoint.
func checkRecordStore(ctx context.Context, cfg *config.Config) Check {
	if !cfg.HasRecordStore() {
		return Check{Name: "record.store", Pass: true, Message: "not configured (anonymous mode)"}
	}

	url := strings.TrimRight(cfg.StoreURL, "/") + "/auth/v1/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: "record.store", Pass: false, Message: err.Error()}
	}
	req.Header.Set("apikey", cfg.StoreAPIKey)
	req.Header.Set("Authorization", "Bearer "+cfg.AccessToken)

	client := http.Client{Timeout: 3 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "record.store", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Check{Name: "record.store", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "record.store", Pass: true, Message: fmt.Sprintf("authenticated against %s", cfg.StoreURL)}
}
