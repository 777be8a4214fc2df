// Package results persists and retrieves finished session outcomes:
// remotely for authenticated users, locally for anonymous runs.
package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/greenroom/internal/identity"
	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/kvstore"
	"github.com/rbright/greenroom/internal/recordstore"
)

// ErrNotFound indicates no stored result matches the requested id.
var ErrNotFound = errors.New("result not found")

// resultKey is the local store key for an anonymous session result.
func resultKey(id string) string {
	return "interview_result_" + id
}

// Record is one finished session's stored outcome.
type Record struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Category        string                 `json:"category"`
	Difficulty      string                 `json:"difficulty"`
	DurationMinutes int                    `json:"duration_minutes"`
	Date            string                 `json:"date"`
	Questions       []string               `json:"questions"`
	Answers         []string               `json:"answers"`
	Scoring         interview.ScoringResult `json:"scoring"`
}

// Store saves and loads session results.
type Store struct {
	logger   *slog.Logger
	kv       *kvstore.Store
	records  *recordstore.Client
	identity identity.Provider

	now func() time.Time

	mu        sync.Mutex
	auth      *identity.Session
	authValid bool
}

// New wires a result store. records may be nil when no remote store is
// configured.
func New(logger *slog.Logger, kv *kvstore.Store, records *recordstore.Client, provider identity.Provider) *Store {
	if provider == nil {
		provider = identity.Anonymous{}
	}
	s := &Store{
		logger:   logger,
		kv:       kv,
		records:  records,
		identity: provider,
		now:      time.Now,
	}
	provider.Subscribe(s.invalidateUser)
	return s
}

// invalidateUser drops the cached session when the identity provider reports
// a change; the next caller re-resolves it.
func (s *Store) invalidateUser(*identity.Session) {
	s.mu.Lock()
	s.auth = nil
	s.authValid = false
	s.mu.Unlock()
}

// Save persists one finished session. Authenticated users get remote rows;
// everyone else gets a local record under the session id.
func (s *Store) Save(ctx context.Context, sess *interview.Session, answers []string, scoring interview.ScoringResult) error {
	record := Record{
		ID:              sess.ID,
		Title:           sess.Title,
		Category:        sess.Category,
		Difficulty:      string(sess.Difficulty),
		DurationMinutes: sess.DurationSeconds / 60,
		Date:            s.now().UTC().Format("2006-01-02"),
		Questions:       sess.Questions,
		Answers:         answers,
		Scoring:         scoring,
	}

	auth := s.currentUser(ctx)
	if auth != nil && s.records != nil {
		if err := s.saveRemote(ctx, auth, record); err != nil {
			s.logger.Warn("remote save failed, keeping local copy", "session_id", sess.ID, "error", err)
			return s.saveLocal(record)
		}
		return nil
	}
	return s.saveLocal(record)
}

func (s *Store) saveLocal(record Record) error {
	if err := s.kv.Put(resultKey(record.ID), record); err != nil {
		return fmt.Errorf("store result %q: %w", record.ID, err)
	}
	return nil
}

func (s *Store) saveRemote(ctx context.Context, auth *identity.Session, record Record) error {
	score := record.Scoring.OverallScore
	stored, err := s.records.InsertInterview(ctx, auth, recordstore.InterviewRecord{
		ID:              record.ID,
		UserID:          auth.UserID,
		Title:           record.Title,
		Type:            record.Category,
		Score:           &score,
		DurationMinutes: record.DurationMinutes,
		Date:            record.Date,
		Status:          recordstore.StatusCompleted,
	})
	if err != nil {
		return err
	}

	rows := make([]recordstore.AnswerRecord, len(record.Questions))
	for i, question := range record.Questions {
		row := recordstore.AnswerRecord{
			InterviewID: stored.ID,
			Position:    i,
			Question:    question,
		}
		if i < len(record.Answers) {
			row.Answer = record.Answers[i]
		}
		if i < len(record.Scoring.Answers) {
			row.Score = record.Scoring.Answers[i].Score
			row.Feedback = record.Scoring.Answers[i].Feedback
		}
		rows[i] = row
	}
	return s.records.InsertAnswers(ctx, auth, rows)
}

// Load fetches one stored result, local first, then remote for
// authenticated users.
func (s *Store) Load(ctx context.Context, id string) (Record, error) {
	var record Record
	found, err := s.kv.Get(resultKey(id), &record)
	if err != nil {
		return Record{}, fmt.Errorf("load result %q: %w", id, err)
	}
	if found {
		return record, nil
	}

	auth := s.currentUser(ctx)
	if auth == nil || s.records == nil {
		return Record{}, fmt.Errorf("result %q: %w", id, ErrNotFound)
	}
	return s.loadRemote(ctx, auth, id)
}

func (s *Store) loadRemote(ctx context.Context, auth *identity.Session, id string) (Record, error) {
	row, err := s.records.InterviewByID(ctx, auth, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return Record{}, fmt.Errorf("result %q: %w", id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("fetch result %q: %w", id, err)
	}

	record := Record{
		ID:              row.ID,
		Title:           row.Title,
		Category:        row.Type,
		DurationMinutes: row.DurationMinutes,
		Date:            row.Date,
	}

	overall := 0
	if row.Score != nil {
		overall = *row.Score
	}
	record.Scoring = rebuildScoring(overall)

	answers, err := s.records.AnswersByInterview(ctx, auth, id)
	if err != nil {
		s.logger.Warn("fetch stored answers failed", "result_id", id, "error", err)
	}
	for _, a := range answers {
		record.Questions = append(record.Questions, a.Question)
		record.Answers = append(record.Answers, a.Answer)
		record.Scoring.Answers = append(record.Scoring.Answers, interview.AnswerFeedback{
			Question: a.Question,
			Answer:   a.Answer,
			Score:    a.Score,
			Feedback: a.Feedback,
		})
		record.Scoring.Trend = append(record.Scoring.Trend, interview.TrendPoint{
			Question: fmt.Sprintf("Q%d", a.Position+1),
			Score:    a.Score,
		})
	}
	return record, nil
}

// rebuildScoring reconstructs the skill breakdown from a stored overall
// score. Remote rows keep only the overall; the per-skill spread is
// recomputed with the same offsets the heuristic evaluator uses, so local
// and remote renderings agree.
func rebuildScoring(overall int) interview.ScoringResult {
	feedback := "Insufficient content provided."
	switch {
	case overall > 80:
		feedback = "Strong performance."
	case overall > 60:
		feedback = "Good foundation."
	case overall > 30:
		feedback = "Needs improvement."
	}
	return interview.ScoringResult{
		OverallScore: overall,
		Feedback:     feedback,
		Skills: interview.SkillBreakdown{
			TechnicalKnowledge: interview.Clamp(overall),
			Communication:      interview.Clamp(overall - 5),
			ProblemSolving:     interview.Clamp(overall - 2),
			DomainExpertise:    interview.Clamp(overall - 8),
			Articulation:       interview.Clamp(overall - 5),
			ConfidenceLevel:    interview.Clamp(overall - 3),
		},
	}
}

func (s *Store) currentUser(ctx context.Context) *identity.Session {
	s.mu.Lock()
	if s.authValid {
		auth := s.auth
		s.mu.Unlock()
		return auth
	}
	s.mu.Unlock()

	auth, err := s.identity.Current(ctx)
	if err != nil {
		s.logger.Warn("resolve user session", "error", err)
		return nil
	}

	s.mu.Lock()
	s.auth = auth
	s.authValid = true
	s.mu.Unlock()
	return auth
}

// Render formats one record as terminal output.
func Render(record Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", record.Title, record.Date)
	fmt.Fprintf(&b, "Overall: %d/100  %s\n", record.Scoring.OverallScore, record.Scoring.Feedback)
	b.WriteString("\nSkills:\n")
	skills := record.Scoring.Skills
	fmt.Fprintf(&b, "  Technical Knowledge  %3d\n", skills.TechnicalKnowledge)
	fmt.Fprintf(&b, "  Communication        %3d\n", skills.Communication)
	fmt.Fprintf(&b, "  Problem Solving      %3d\n", skills.ProblemSolving)
	fmt.Fprintf(&b, "  Domain Expertise     %3d\n", skills.DomainExpertise)
	fmt.Fprintf(&b, "  Articulation         %3d\n", skills.Articulation)
	fmt.Fprintf(&b, "  Confidence           %3d\n", skills.ConfidenceLevel)

	if len(record.Scoring.Answers) > 0 {
		b.WriteString("\nAnswers:\n")
		for i, a := range record.Scoring.Answers {
			fmt.Fprintf(&b, "  Q%d (%d/100) %s\n", i+1, a.Score, a.Question)
			if a.Feedback != "" {
				fmt.Fprintf(&b, "      %s\n", a.Feedback)
			}
		}
	}
	return b.String()
}
