package interview

import (
	"errors"
	"fmt"
)

// ErrNoQuestions indicates a session cannot start from an empty question set.
var ErrNoQuestions = errors.New("interview has no questions")

// Session is one run through a fixed, ordered question set. The question
// slice is frozen at construction; only CurrentIndex and RemainingSeconds
// change afterwards.
type Session struct {
	ID               string
	Title            string
	Category         string
	Difficulty       Difficulty
	Role             string
	DurationSeconds  int
	Questions        []string
	CurrentIndex     int
	RemainingSeconds int
}

// NewSession builds a session from resolved template data.
func NewSession(id string, tpl Template, questions []string) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	duration := tpl.DurationMinutes
	if duration <= 0 {
		duration = tpl.Difficulty.DefaultDurationMinutes()
	}

	frozen := make([]string, len(questions))
	copy(frozen, questions)

	return &Session{
		ID:               id,
		Title:            tpl.Title,
		Category:         tpl.Category,
		Difficulty:       tpl.Difficulty,
		Role:             tpl.GeneratorRole(),
		DurationSeconds:  duration * 60,
		Questions:        frozen,
		CurrentIndex:     0,
		RemainingSeconds: duration * 60,
	}, nil
}

// Question returns the text at the active index.
func (s *Session) Question() string {
	return s.Questions[s.CurrentIndex]
}

// OnLast reports whether the active index is the final question.
func (s *Session) OnLast() bool {
	return s.CurrentIndex == len(s.Questions)-1
}

// Advance moves to the next question; it refuses to move past the end.
func (s *Session) Advance() error {
	if s.OnLast() {
		return fmt.Errorf("already on final question %d", s.CurrentIndex+1)
	}
	s.CurrentIndex++
	return nil
}

// Retreat moves to the previous question; it refuses to move before the start.
func (s *Session) Retreat() error {
	if s.CurrentIndex == 0 {
		return errors.New("already on first question")
	}
	s.CurrentIndex--
	return nil
}

// Tick decrements the countdown by one second and reports expiry.
// RemainingSeconds never goes negative.
func (s *Session) Tick() (expired bool) {
	if s.RemainingSeconds <= 0 {
		return true
	}
	s.RemainingSeconds--
	return s.RemainingSeconds == 0
}

// Progress returns (currentIndex+1)/total, 0 for an empty question set.
func (s *Session) Progress() float64 {
	return Progress(s.CurrentIndex, len(s.Questions))
}

// Progress computes the completion fraction for an index within total
// questions, returning 0 when total is not positive.
func Progress(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(index+1) / float64(total)
}

// FormatClock renders seconds as m:ss for status output.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
