package decision

import (
	"context"
	"fmt"

	"guardian/internal/reasoning"
)

// scriptedInvoker replays one response per call. A nil or exhausted
// script degrades.
type scriptedInvoker struct {
	responses []string
	failAll   bool
	calls     int
	prompts   []string
}

func (s *scriptedInvoker) Invoke(ctx context.Context, prompt string, maxTokens int) reasoning.Result {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.failAll || s.calls > len(s.responses) {
		return reasoning.Result{Success: false, Err: fmt.Errorf("provider down")}
	}
	return reasoning.Result{Provider: "scripted", Success: true, Text: s.responses[s.calls-1]}
}
