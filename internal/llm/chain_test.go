package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name  string
	resp  Response
	err   error
	calls int
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Generate(context.Context, []Message) (Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestChainReturnsFirstSuccess(t *testing.T) {
	primary := &stubClient{name: "a", resp: Response{Content: "from a"}}
	secondary := &stubClient{name: "b", resp: Response{Content: "from b"}}
	chain := NewChain(nil, primary, secondary)

	resp, err := chain.Generate(context.Background(), SystemUser("s", "u"))
	require.NoError(t, err)
	require.Equal(t, "from a", resp.Content)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 0, secondary.calls)
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	primary := &stubClient{name: "a", err: errors.New("boom")}
	secondary := &stubClient{name: "b", resp: Response{Content: "from b"}}
	chain := NewChain(nil, primary, secondary)

	resp, err := chain.Generate(context.Background(), SystemUser("s", "u"))
	require.NoError(t, err)
	require.Equal(t, "from b", resp.Content)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, secondary.calls)
}

func TestChainReturnsLastErrorWhenExhausted(t *testing.T) {
	first := &stubClient{name: "a", err: errors.New("first down")}
	second := &stubClient{name: "b", err: errors.New("second down")}
	chain := NewChain(nil, first, second)

	_, err := chain.Generate(context.Background(), SystemUser("s", "u"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "second down")
}

func TestChainWithNoProviders(t *testing.T) {
	chain := NewChain(nil, nil)
	require.False(t, chain.Available())

	_, err := chain.Generate(context.Background(), SystemUser("s", "u"))
	require.ErrorIs(t, err, ErrUnavailable)
}
