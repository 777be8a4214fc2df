package score

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/llm"
)

type stubClient struct {
	content string
	err     error
}

func (s *stubClient) Generate(context.Context, []llm.Message) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.content, Model: "stub"}, nil
}

func (s *stubClient) Name() string { return "stub" }

func threeOfEightAnswered() Input {
	questions := make([]string, 8)
	answers := make([]string, 8)
	for i := range questions {
		questions[i] = "question"
	}
	answers[0] = "I would use a message queue to decouple the producers."
	answers[1] = "Caching at the edge reduces origin load significantly."
	answers[2] = "Start with a single region and shard by tenant later."
	return Input{Role: "Backend Developer", Difficulty: interview.DifficultyMedium, Questions: questions, Answers: answers}
}

func TestHeuristicThreeOfEight(t *testing.T) {
	engine := New(nil, nil)

	result := engine.Evaluate(context.Background(), threeOfEightAnswered())

	require.Equal(t, 38, result.OverallScore)
	require.Equal(t, "Needs improvement.", result.Feedback)
	require.Equal(t, 38, result.Skills.TechnicalKnowledge)
	require.Equal(t, 33, result.Skills.Communication)
	require.Equal(t, 36, result.Skills.ProblemSolving)
	require.Equal(t, 30, result.Skills.DomainExpertise)
	require.Equal(t, 33, result.Skills.Articulation)
	require.Equal(t, 35, result.Skills.ConfidenceLevel)

	require.Len(t, result.Answers, 8)
	require.Equal(t, 33, result.Answers[0].Score)
	require.Equal(t, "Heuristic evaluation.", result.Answers[0].Feedback)
	require.Equal(t, 0, result.Answers[3].Score)
	require.Equal(t, "Answer too short or missing.", result.Answers[3].Feedback)

	require.Len(t, result.Trend, 8)
	require.Equal(t, "Q1", result.Trend[0].Question)
	require.Equal(t, 33, result.Trend[0].Score)
}

func TestHeuristicAllEmpty(t *testing.T) {
	engine := New(nil, nil)

	result := engine.Evaluate(context.Background(), Input{
		Role:       "Frontend Developer",
		Difficulty: interview.DifficultyEasy,
		Questions:  []string{"q1", "q2", "q3", "q4", "q5"},
		Answers:    []string{"", "", "", "", ""},
	})

	require.Equal(t, 0, result.OverallScore)
	require.Equal(t, "Insufficient content provided.", result.Feedback)
	for _, a := range result.Answers {
		require.Equal(t, 0, a.Score)
	}
}

func TestRemoteOverallClampedToAnsweredRatio(t *testing.T) {
	stub := &stubClient{content: `{
		"overallScore": 95,
		"feedback": "Excellent.",
		"skillBreakdown": {"technicalKnowledge": 90, "communication": 90, "problemSolving": 90, "domainExpertise": 90, "articulation": 90, "confidenceLevel": 90},
		"answerFeedback": [],
		"performanceTrend": []
	}`}
	engine := New(nil, stub)

	result := engine.Evaluate(context.Background(), threeOfEightAnswered())

	require.Equal(t, 38, result.OverallScore)
	require.Len(t, result.Answers, 8)
	require.Len(t, result.Trend, 8)
}

func TestRemoteCapsNonAnswers(t *testing.T) {
	stub := &stubClient{content: `{
		"overallScore": 60,
		"feedback": "Mixed.",
		"skillBreakdown": {"technicalKnowledge": 60, "communication": 60, "problemSolving": 60, "domainExpertise": 60, "articulation": 60, "confidenceLevel": 60},
		"answerFeedback": [
			{"question": "q", "answer": "", "score": 80, "feedback": "f"},
			{"question": "q", "answer": "", "score": 80, "feedback": "f"},
			{"question": "q", "answer": "", "score": 80, "feedback": "f"}
		],
		"performanceTrend": [{"question": "Q1", "score": 80}, {"question": "Q2", "score": 80}, {"question": "Q3", "score": 80}]
	}`}
	engine := New(nil, stub)

	result := engine.Evaluate(context.Background(), Input{
		Role:       "Backend Developer",
		Difficulty: interview.DifficultyEasy,
		Questions:  []string{"q1", "q2", "q3"},
		Answers: []string{
			"Honestly I don't know much about this topic at all.",
			"too short",
			"A detailed answer covering tradeoffs and implementation steps.",
		},
	})

	require.Equal(t, 10, result.Answers[0].Score)
	require.Equal(t, 20, result.Answers[1].Score)
	require.Equal(t, 80, result.Answers[2].Score)
}

func TestProviderFailureFallsBackToHeuristic(t *testing.T) {
	engine := New(nil, &stubClient{err: errors.New("providers down")})

	result := engine.Evaluate(context.Background(), threeOfEightAnswered())

	require.Equal(t, 38, result.OverallScore)
	require.Equal(t, "Heuristic evaluation.", result.Answers[0].Feedback)
}

func TestMalformedReplyFallsBackToHeuristic(t *testing.T) {
	engine := New(nil, &stubClient{content: "not json"})

	result := engine.Evaluate(context.Background(), threeOfEightAnswered())

	require.Equal(t, 38, result.OverallScore)
}

func TestAnswerCeiling(t *testing.T) {
	require.Equal(t, 10, answerCeiling("I'm not sure about that one."))
	require.Equal(t, 20, answerCeiling("short reply"))
	require.Equal(t, 100, answerCeiling(strings.Repeat("substantive ", 5)))
}
