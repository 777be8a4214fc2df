// Package generate produces fresh interview questions for a role through
// the language model provider chain.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/llm"
)

// Request carries the template metadata driving one generation run.
type Request struct {
	Role        string
	Description string
	Experience  string
	Difficulty  interview.Difficulty
	Exclude     []string
}

// Generator asks the provider chain for a difficulty-sized question set.
type Generator struct {
	logger *slog.Logger
	client llm.Client
}

// New wraps a provider chain (or single client) in a generator.
func New(logger *slog.Logger, client llm.Client) *Generator {
	return &Generator{logger: logger, client: client}
}

const systemPrompt = `You are an experienced technical interviewer preparing a mock interview.
Return ONLY a JSON object of the form {"questions": ["...", "..."]}.
Rules:
- Questions must match the given role and difficulty.
- Cover a mix of conceptual and practical ground; one question per entry.
- Never repeat or trivially rephrase any question listed under excludeQuestions.`

type promptPayload struct {
	Role             string   `json:"role"`
	Description      string   `json:"description,omitempty"`
	Experience       string   `json:"experience,omitempty"`
	Difficulty       string   `json:"difficulty"`
	QuestionCount    int      `json:"questionCount"`
	ExcludeQuestions []string `json:"excludeQuestions,omitempty"`
}

type questionsReply struct {
	Questions []string `json:"questions"`
}

// Questions runs one generation request. Any failure (provider chain down,
// malformed reply, empty set) is returned to the caller, which treats it as
// a soft error and falls back to stored questions.
func (g *Generator) Questions(ctx context.Context, req Request) ([]string, error) {
	if strings.TrimSpace(req.Role) == "" {
		return nil, fmt.Errorf("generation request has no role")
	}

	count := req.Difficulty.QuestionCount()
	payload, err := json.Marshal(promptPayload{
		Role:             req.Role,
		Description:      req.Description,
		Experience:       req.Experience,
		Difficulty:       string(req.Difficulty),
		QuestionCount:    count,
		ExcludeQuestions: req.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	resp, err := g.client.Generate(ctx, llm.SystemUser(systemPrompt, string(payload)))
	if err != nil {
		return nil, fmt.Errorf("generate questions for %q: %w", req.Role, err)
	}

	questions, err := parseQuestions(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse generated questions for %q: %w", req.Role, err)
	}

	if len(questions) > count {
		questions = questions[:count]
	}

	if g.logger != nil {
		g.logger.Info("generated questions",
			"role", req.Role,
			"difficulty", req.Difficulty,
			"count", len(questions),
			"model", resp.Model,
		)
	}
	return questions, nil
}

// parseQuestions decodes the model reply, dropping blank entries.
func parseQuestions(content string) ([]string, error) {
	var reply questionsReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	questions := make([]string, 0, len(reply.Questions))
	for _, q := range reply.Questions {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("reply contains no questions")
	}
	return questions, nil
}
