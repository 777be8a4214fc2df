// Package score turns a finished session's answers into a ScoringResult.
//
// Evaluation first asks the language model provider chain for a structured
// assessment, then clamps that output against how much the candidate
// actually said. If no provider is reachable the engine falls back to a
// deterministic heuristic, so Evaluate never fails.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/llm"
)

// Input bundles everything the evaluator needs about a finished session.
type Input struct {
	Role       string
	Difficulty interview.Difficulty
	Questions  []string
	Answers    []string
}

// Engine evaluates finished sessions.
type Engine struct {
	logger *slog.Logger
	client llm.Client
}

// New builds an engine over a provider chain. A nil client is allowed and
// routes every evaluation through the heuristic path.
func New(logger *slog.Logger, client llm.Client) *Engine {
	return &Engine{logger: logger, client: client}
}

// answeredThreshold is the minimum trimmed answer length that counts as a
// real attempt when computing the answered ratio.
const answeredThreshold = 10

// shortAnswerThreshold marks answers too short to score above the low cap.
const shortAnswerThreshold = 15

// nonAnswerPhrases cap an answer's score when the candidate declined it.
var nonAnswerPhrases = []string{"don't know", "not sure", "no idea"}

const evalSystemPrompt = `You are a strict interview evaluator. Assess the candidate's answers for the given role.
Return ONLY a JSON object with this exact shape:
{
  "overallScore": <0-100>,
  "feedback": "<2-3 sentence overall assessment>",
  "skillBreakdown": {
    "technicalKnowledge": <0-100>,
    "communication": <0-100>,
    "problemSolving": <0-100>,
    "domainExpertise": <0-100>,
    "articulation": <0-100>,
    "confidenceLevel": <0-100>
  },
  "answerFeedback": [
    {"question": "...", "answer": "...", "score": <0-100>, "feedback": "...", "strengths": ["..."], "improvements": ["..."]}
  ],
  "performanceTrend": [{"question": "Q1", "score": <0-100>}]
}
Rules:
- Empty or missing answers score 0.
- Answers that only say the candidate does not know score at most 10.
- Very short answers score at most 20.
- Be honest: do not inflate scores for weak answers.`

type evalPayload struct {
	Role       string     `json:"role"`
	Difficulty string     `json:"difficulty"`
	Exchanges  []exchange `json:"exchanges"`
}

type exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Evaluate scores the session. It never returns an error: provider failures
// and malformed replies degrade to the heuristic result.
func (e *Engine) Evaluate(ctx context.Context, in Input) interview.ScoringResult {
	if e.client != nil {
		result, err := e.remote(ctx, in)
		if err == nil {
			return result
		}
		if e.logger != nil {
			e.logger.Warn("model evaluation failed, using heuristic", "error", err)
		}
	}
	return e.heuristic(in)
}

func (e *Engine) remote(ctx context.Context, in Input) (interview.ScoringResult, error) {
	exchanges := make([]exchange, len(in.Questions))
	for i, q := range in.Questions {
		exchanges[i] = exchange{Question: q, Answer: answerAt(in.Answers, i)}
	}
	payload, err := json.Marshal(evalPayload{
		Role:       in.Role,
		Difficulty: string(in.Difficulty),
		Exchanges:  exchanges,
	})
	if err != nil {
		return interview.ScoringResult{}, fmt.Errorf("encode evaluation request: %w", err)
	}

	resp, err := e.client.Generate(ctx, llm.SystemUser(evalSystemPrompt, string(payload)))
	if err != nil {
		return interview.ScoringResult{}, err
	}

	var result interview.ScoringResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &result); err != nil {
		return interview.ScoringResult{}, fmt.Errorf("decode evaluation reply: %w", err)
	}

	e.clampRemote(&result, in)
	if e.logger != nil {
		e.logger.Info("session evaluated", "model", resp.Model, "overall", result.OverallScore)
	}
	return result, nil
}

// clampRemote bounds the model's output against what the candidate actually
// said. Models routinely score empty transcripts generously; the ratio cap
// and per-answer caps pull those back down.
func (e *Engine) clampRemote(result *interview.ScoringResult, in Input) {
	maxOverall := overallCeiling(in)
	result.OverallScore = interview.Clamp(result.OverallScore)
	if result.OverallScore > maxOverall {
		result.OverallScore = maxOverall
	}

	result.Skills = clampSkills(result.Skills)

	if len(result.Answers) != len(in.Questions) {
		result.Answers = rebuildAnswers(result.Answers, in)
	}
	for i := range result.Answers {
		answer := answerAt(in.Answers, i)
		ceiling := answerCeiling(answer)
		result.Answers[i].Question = in.Questions[i]
		result.Answers[i].Answer = answer
		result.Answers[i].Score = interview.Clamp(result.Answers[i].Score)
		if result.Answers[i].Score > ceiling {
			result.Answers[i].Score = ceiling
		}
	}

	if len(result.Trend) != len(in.Questions) {
		result.Trend = trendFromAnswers(result.Answers)
	} else {
		for i := range result.Trend {
			result.Trend[i].Question = fmt.Sprintf("Q%d", i+1)
			result.Trend[i].Score = interview.Clamp(result.Trend[i].Score)
		}
	}

	if strings.TrimSpace(result.Feedback) == "" {
		result.Feedback = feedbackBand(result.OverallScore)
	}
}

// heuristic produces a deterministic result from answer lengths alone.
func (e *Engine) heuristic(in Input) interview.ScoringResult {
	overall := overallCeiling(in)

	answers := make([]interview.AnswerFeedback, len(in.Questions))
	for i, q := range in.Questions {
		answer := answerAt(in.Answers, i)
		score := 0
		feedback := "Answer too short or missing."
		if len(strings.TrimSpace(answer)) >= shortAnswerThreshold {
			score = interview.Clamp(overall - 5)
			feedback = "Heuristic evaluation."
		}
		answers[i] = interview.AnswerFeedback{
			Question: q,
			Answer:   answer,
			Score:    score,
			Feedback: feedback,
		}
	}

	return interview.ScoringResult{
		OverallScore: overall,
		Feedback:     feedbackBand(overall),
		Skills: clampSkills(interview.SkillBreakdown{
			TechnicalKnowledge: overall,
			Communication:      overall - 5,
			ProblemSolving:     overall - 2,
			DomainExpertise:    overall - 8,
			Articulation:       overall - 5,
			ConfidenceLevel:    overall - 3,
		}),
		Answers: answers,
		Trend:   trendFromAnswers(answers),
	}
}

// overallCeiling is the answered-ratio score: the share of questions with a
// substantive answer, scaled to 100.
func overallCeiling(in Input) int {
	if len(in.Questions) == 0 {
		return 0
	}
	answered := 0
	for i := range in.Questions {
		if len(strings.TrimSpace(answerAt(in.Answers, i))) > answeredThreshold {
			answered++
		}
	}
	ratio := float64(answered) / float64(len(in.Questions))
	return int(math.Round(ratio * 100))
}

// answerCeiling caps a single answer's score by its content.
func answerCeiling(answer string) int {
	trimmed := strings.TrimSpace(answer)
	lower := strings.ToLower(trimmed)
	for _, phrase := range nonAnswerPhrases {
		if strings.Contains(lower, phrase) {
			return 10
		}
	}
	if len(trimmed) < shortAnswerThreshold {
		return 20
	}
	return 100
}

func clampSkills(s interview.SkillBreakdown) interview.SkillBreakdown {
	return interview.SkillBreakdown{
		TechnicalKnowledge: interview.Clamp(s.TechnicalKnowledge),
		Communication:      interview.Clamp(s.Communication),
		ProblemSolving:     interview.Clamp(s.ProblemSolving),
		DomainExpertise:    interview.Clamp(s.DomainExpertise),
		Articulation:       interview.Clamp(s.Articulation),
		ConfidenceLevel:    interview.Clamp(s.ConfidenceLevel),
	}
}

func feedbackBand(overall int) string {
	switch {
	case overall > 80:
		return "Strong performance."
	case overall > 60:
		return "Good foundation."
	case overall > 30:
		return "Needs improvement."
	default:
		return "Insufficient content provided."
	}
}

// rebuildAnswers salvages per-answer feedback when the model returned the
// wrong number of entries, keeping matching positions and filling the rest.
func rebuildAnswers(partial []interview.AnswerFeedback, in Input) []interview.AnswerFeedback {
	answers := make([]interview.AnswerFeedback, len(in.Questions))
	for i, q := range in.Questions {
		answer := answerAt(in.Answers, i)
		if i < len(partial) {
			answers[i] = partial[i]
		} else {
			answers[i] = interview.AnswerFeedback{Feedback: "Answer too short or missing."}
		}
		answers[i].Question = q
		answers[i].Answer = answer
	}
	return answers
}

func trendFromAnswers(answers []interview.AnswerFeedback) []interview.TrendPoint {
	trend := make([]interview.TrendPoint, len(answers))
	for i, a := range answers {
		trend[i] = interview.TrendPoint{Question: fmt.Sprintf("Q%d", i+1), Score: a.Score}
	}
	return trend
}

func answerAt(answers []string, i int) string {
	if i < len(answers) {
		return answers[i]
	}
	return ""
}
