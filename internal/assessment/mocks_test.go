package assessment

import (
	"context"
	"fmt"

	"guardian/internal/reasoning"
)

// scriptedInvoker replays canned responses in order, then repeats the
// last one. With fail set it reports degraded results instead.
type scriptedInvoker struct {
	responses []string
	fail      bool
	prompts   []string
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string, maxTokens int) reasoning.Result {
	s.prompts = append(s.prompts, prompt)
	if s.fail {
		return reasoning.Result{Success: false, Err: fmt.Errorf("providers down")}
	}
	idx := len(s.prompts) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return reasoning.Result{
		Provider:   "scripted",
		Success:    true,
		Text:       s.responses[idx],
		TokensUsed: 17,
	}
}
