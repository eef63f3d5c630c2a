package reasoning

import (
	"context"
	"fmt"
)

// stubClient is a scripted provider for fallback tests.
type stubClient struct {
	name   string
	text   string
	tokens int
	fail   bool
	calls  int
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, int, error) {
	s.calls++
	if s.fail {
		return "", 0, fmt.Errorf("%s unavailable", s.name)
	}
	return s.text, s.tokens, nil
}
