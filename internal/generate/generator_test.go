package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/greenroom/internal/interview"
	"github.com/rbright/greenroom/internal/llm"
)

type stubClient struct {
	content string
	err     error
	last    []llm.Message
}

func (s *stubClient) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	s.last = messages
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.content, Model: "stub"}, nil
}

func (s *stubClient) Name() string { return "stub" }

func TestQuestionsTrimsToDifficultyCount(t *testing.T) {
	stub := &stubClient{content: `{"questions":["q1","q2","q3","q4","q5","q6","q7"]}`}
	gen := New(nil, stub)

	questions, err := gen.Questions(context.Background(), Request{
		Role:       "Frontend Developer",
		Difficulty: interview.DifficultyEasy,
	})
	require.NoError(t, err)
	require.Len(t, questions, 5)
	require.Equal(t, "q1", questions[0])
}

func TestQuestionsDropsBlankEntries(t *testing.T) {
	stub := &stubClient{content: `{"questions":["q1","  ","","q2"]}`}
	gen := New(nil, stub)

	questions, err := gen.Questions(context.Background(), Request{
		Role:       "Backend Developer",
		Difficulty: interview.DifficultyMedium,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"q1", "q2"}, questions)
}

func TestQuestionsRejectsEmptyReply(t *testing.T) {
	stub := &stubClient{content: `{"questions":[]}`}
	gen := New(nil, stub)

	_, err := gen.Questions(context.Background(), Request{
		Role:       "Data Scientist",
		Difficulty: interview.DifficultyHard,
	})
	require.Error(t, err)
}

func TestQuestionsPropagatesProviderError(t *testing.T) {
	sentinel := errors.New("providers down")
	stub := &stubClient{err: sentinel}
	gen := New(nil, stub)

	_, err := gen.Questions(context.Background(), Request{
		Role:       "Product Manager",
		Difficulty: interview.DifficultyMedium,
	})
	require.ErrorIs(t, err, sentinel)
}

func TestQuestionsRequiresRole(t *testing.T) {
	gen := New(nil, &stubClient{content: `{"questions":["q"]}`})

	_, err := gen.Questions(context.Background(), Request{Difficulty: interview.DifficultyEasy})
	require.Error(t, err)
}

func TestQuestionsIncludesExclusionsInPrompt(t *testing.T) {
	stub := &stubClient{content: `{"questions":["fresh question"]}`}
	gen := New(nil, stub)

	_, err := gen.Questions(context.Background(), Request{
		Role:       "Frontend Developer",
		Difficulty: interview.DifficultyEasy,
		Exclude:    []string{"What is React?"},
	})
	require.NoError(t, err)
	require.Len(t, stub.last, 2)
	require.Contains(t, stub.last[1].Content, "What is React?")
}
