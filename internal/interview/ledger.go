package interview

import "fmt"

// Ledger is the index-aligned answer storage for one session. Its length is
// fixed at construction and always equals the session's question count; it
// is never reordered or resized afterwards.
type Ledger struct {
	answers []string
}

// NewLedger creates a ledger of n empty answers.
func NewLedger(n int) *Ledger {
	return &Ledger{answers: make([]string, n)}
}

// Len returns the fixed answer count.
func (l *Ledger) Len() int {
	return len(l.answers)
}

// Answer returns the text stored at index.
func (l *Ledger) Answer(index int) (string, error) {
	if err := l.check(index); err != nil {
		return "", err
	}
	return l.answers[index], nil
}

// Set replaces the text stored at index.
func (l *Ledger) Set(index int, text string) error {
	if err := l.check(index); err != nil {
		return err
	}
	l.answers[index] = text
	return nil
}

// Reset clears the text stored at index to empty.
func (l *Ledger) Reset(index int) error {
	return l.Set(index, "")
}

// Snapshot returns a copy of all answers in question order.
func (l *Ledger) Snapshot() []string {
	out := make([]string, len(l.answers))
	copy(out, l.answers)
	return out
}

func (l *Ledger) check(index int) error {
	if index < 0 || index >= len(l.answers) {
		return fmt.Errorf("ledger index %d out of range [0,%d)", index, len(l.answers))
	}
	return nil
}
