package classifier

import (
	"context"
	"fmt"

	"guardian/internal/reasoning"
)

// scriptedInvoker replays one response per pass, in invocation order.
// Passes listed in failPasses (1-based) report a degraded result instead.
type scriptedInvoker struct {
	responses  []string
	failPasses map[int]bool
	calls      int
	prompts    []string
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string, maxTokens int) reasoning.Result {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.failPasses[s.calls] {
		return reasoning.Result{Success: false, Err: fmt.Errorf("pass %d down", s.calls)}
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		return reasoning.Result{Success: false, Err: fmt.Errorf("no scripted response for call %d", s.calls)}
	}
	return reasoning.Result{Provider: "scripted", Success: true, Text: s.responses[idx]}
}
