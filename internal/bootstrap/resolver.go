// Package bootstrap resolves a template id into a ready-to-run session,
// trying the built-in catalog, the local store, and the remote record store
// in that order.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rbright/greenroom/internal/generate"
	"github.com/rbright/greenroom/internal/history"
	"github.com/rbright/greenroom/internal/identity"
	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/kvstore"
	"github.com/rbright/greenroom/internal/recordstore"
)

// ErrNotFound indicates no tier could resolve the template id.
var ErrNotFound = errors.New("template not found")

// Source names which tier resolved the template.
type Source string

const (
	BuiltinSource Source = "builtin"
	CachedSource  Source = "cached"
	RemoteSource  Source = "remote"
)

// templateKey is the local store key for a cached custom template.
func templateKey(id string) string {
	return "interview_template_" + id
}

// genericQuestions is the last-resort question set used when a template
// resolves but carries no questions and generation is unavailable.
var genericQuestions = []string{
	"Tell me about yourself.",
	"Describe a challenging problem you solved recently.",
	"What are your strengths and weaknesses?",
	"Explain a project you are proud of and why.",
	"How do you handle feedback and deadlines?",
}

// Resolver builds sessions from template ids.
type Resolver struct {
	logger    *slog.Logger
	store     *kvstore.Store
	history   *history.Log
	records   *recordstore.Client
	identity  identity.Provider
	generator *generate.Generator
}

// New wires a resolver. records may be nil when no remote store is
// configured; generator may be nil when no language model provider is.
func New(
	logger *slog.Logger,
	store *kvstore.Store,
	log *history.Log,
	records *recordstore.Client,
	provider identity.Provider,
	generator *generate.Generator,
) *Resolver {
	if provider == nil {
		provider = identity.Anonymous{}
	}
	return &Resolver{
		logger:    logger,
		store:     store,
		history:   log,
		records:   records,
		identity:  provider,
		generator: generator,
	}
}

// Resolve turns a template id into a session. Builtin and remote templates
// regenerate questions when a generator is available, recording them in the
// question history; cached custom templates keep their stored questions.
func (r *Resolver) Resolve(ctx context.Context, id string) (*interview.Session, Source, error) {
	tpl, source, err := r.resolveTemplate(ctx, id)
	if err != nil {
		return nil, "", err
	}

	// Locally cached custom templates run with their questions exactly as
	// cached; only builtin and remote templates regenerate.
	var questions []string
	if source != CachedSource {
		questions = r.freshQuestions(ctx, tpl)
	}
	if len(questions) == 0 {
		questions = tpl.Questions
	}
	if len(questions) == 0 {
		r.logger.Warn("template has no questions, using generic set", "template_id", id)
		questions = genericQuestions
	}

	session, err := interview.NewSession(uuid.NewString(), tpl, questions)
	if err != nil {
		return nil, "", fmt.Errorf("build session from template %q: %w", id, err)
	}

	r.logger.Info("session bootstrapped",
		"template_id", id,
		"source", source,
		"questions", len(session.Questions),
		"duration_seconds", session.DurationSeconds,
	)
	return session, source, nil
}

func (r *Resolver) resolveTemplate(ctx context.Context, id string) (interview.Template, Source, error) {
	if tpl, ok := interview.Builtin(id); ok {
		return tpl, BuiltinSource, nil
	}

	var cached interview.Template
	found, err := r.store.Get(templateKey(id), &cached)
	if err != nil {
		return interview.Template{}, "", fmt.Errorf("load cached template %q: %w", id, err)
	}
	if found {
		return cached, CachedSource, nil
	}

	tpl, err := r.remoteTemplate(ctx, id)
	if err != nil {
		return interview.Template{}, "", err
	}
	return tpl, RemoteSource, nil
}

func (r *Resolver) remoteTemplate(ctx context.Context, id string) (interview.Template, error) {
	if r.records == nil {
		return interview.Template{}, fmt.Errorf("template %q: %w", id, ErrNotFound)
	}
	auth, err := r.identity.Current(ctx)
	if err != nil {
		return interview.Template{}, fmt.Errorf("resolve user for template %q: %w", id, err)
	}
	if auth == nil {
		return interview.Template{}, fmt.Errorf("template %q: %w", id, ErrNotFound)
	}

	record, err := r.records.TemplateByID(ctx, auth, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return interview.Template{}, fmt.Errorf("template %q: %w", id, ErrNotFound)
		}
		return interview.Template{}, fmt.Errorf("fetch template %q: %w", id, err)
	}

	tpl := interview.Template{
		ID:              record.ID,
		Title:           record.Title,
		Category:        record.Category,
		Difficulty:      interview.Difficulty(record.Difficulty),
		DurationMinutes: record.DurationMinutes,
		Role:            record.Role,
		Description:     record.Description,
		Experience:      record.Experience,
	}

	rows, err := r.records.QuestionsByTemplate(ctx, auth, id)
	if err != nil {
		r.logger.Warn("fetch stored questions failed", "template_id", id, "error", err)
	}
	for _, row := range rows {
		tpl.Questions = append(tpl.Questions, row.Text)
	}
	return tpl, nil
}

// freshQuestions asks the generator for a new set, biased away from the
// role's recent history. Any failure returns nil and the caller falls back
// to the template's stored questions.
func (r *Resolver) freshQuestions(ctx context.Context, tpl interview.Template) []string {
	if r.generator == nil {
		return nil
	}

	role := tpl.GeneratorRole()
	exclude, err := r.history.Recent(role)
	if err != nil {
		r.logger.Warn("load question history", "role", role, "error", err)
	}

	questions, err := r.generator.Questions(ctx, generate.Request{
		Role:        role,
		Description: tpl.Description,
		Experience:  tpl.Experience,
		Difficulty:  tpl.Difficulty,
		Exclude:     exclude,
	})
	if err != nil {
		r.logger.Warn("question generation failed, using stored questions", "role", role, "error", err)
		return nil
	}

	if err := r.history.Append(role, questions); err != nil {
		r.logger.Warn("append question history", "role", role, "error", err)
	}
	return questions
}

// CacheTemplate stores a custom template locally so later runs resolve it
// without the record store.
func (r *Resolver) CacheTemplate(tpl interview.Template) error {
	if tpl.ID == "" {
		return errors.New("template id is empty")
	}
	return r.store.Put(templateKey(tpl.ID), tpl)
}
