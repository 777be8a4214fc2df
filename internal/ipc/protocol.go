// Package ipc carries session commands between the CLI and the owner
// process over a unix socket, one JSON line per request and response.
package ipc

// Request is one session command sent to the owner process.
type Request struct {
	Command string `json:"command"`
}

// Response is the owner's reply, carrying a snapshot of session progress.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	Index            int    `json:"index,omitempty"`
	Total            int    `json:"total,omitempty"`
	Question         string `json:"question,omitempty"`
	Transcript       string `json:"transcript,omitempty"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty"`
	Recording        bool   `json:"recording,omitempty"`
	Final            bool   `json:"final,omitempty"`
}
