// Package history tracks previously generated questions per role so the
// generator can bias against repeats across sessions.
package history

import (
	"fmt"
	"strings"

	"github.com/rbright/greenroom/internal/kvstore"
)

const (
	keyPrefix = "question_history_"

	// maxEntries caps the stored rolling history, keeping the most recent.
	maxEntries = 500

	// excludeWindow is how many recent entries are sent as exclusions.
	excludeWindow = 200
)

// Log is the per-role rolling question history backed by the local store.
type Log struct {
	store *kvstore.Store
}

// New wraps a kvstore in a history log.
func New(store *kvstore.Store) *Log {
	return &Log{store: store}
}

// Recent returns up to excludeWindow most recent questions seen for role.
func (l *Log) Recent(role string) ([]string, error) {
	entries, err := l.load(role)
	if err != nil {
		return nil, err
	}
	if len(entries) > excludeWindow {
		entries = entries[len(entries)-excludeWindow:]
	}
	return entries, nil
}

// Append records newly generated questions for role, deduplicating
// case-insensitively and trimming to the maxEntries most recent.
func (l *Log) Append(role string, questions []string) error {
	entries, err := l.load(role)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(entries)+len(questions))
	merged := make([]string, 0, len(entries)+len(questions))
	for _, q := range append(entries, questions...) {
		trimmed := strings.TrimSpace(q)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, trimmed)
	}

	if len(merged) > maxEntries {
		merged = merged[len(merged)-maxEntries:]
	}

	if err := l.store.Put(key(role), merged); err != nil {
		return fmt.Errorf("store question history for %q: %w", role, err)
	}
	return nil
}

func (l *Log) load(role string) ([]string, error) {
	var entries []string
	if _, err := l.store.Get(key(role), &entries); err != nil {
		return nil, fmt.Errorf("load question history for %q: %w", role, err)
	}
	return entries, nil
}

func key(role string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(role))
}
